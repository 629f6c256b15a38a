package model_test

import (
	"math"
	"testing"

	"github.com/okian/formation/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLineup(t *testing.T) {
	Convey("Given a lineup with two players", t, func() {
		l := model.Lineup{
			TeamID: "team-1",
			Placements: []model.PlayerPlacement{
				{PlayerID: "p1", X: 0.1, Y: 0.2, IsCaptain: true},
				{PlayerID: "p2", X: 0.5, Y: 0.5},
			},
		}

		Convey("When it is cloned and the clone is mutated", func() {
			c := l.Clone()
			c.Placements[0].X = 0.9

			Convey("Then the original is untouched", func() {
				So(l.Placements[0].X, ShouldEqual, 0.1)
				So(c.TeamID, ShouldEqual, "team-1")
			})
		})

		Convey("When an empty lineup is cloned", func() {
			c := model.Lineup{TeamID: "t"}.Clone()

			Convey("Then placements stay nil", func() {
				So(c.Placements, ShouldBeNil)
			})
		})

		Convey("When players are looked up", func() {
			So(l.Index("p2"), ShouldEqual, 1)
			So(l.Index("missing"), ShouldEqual, -1)
		})
	})
}

func TestValidCoordinate(t *testing.T) {
	Convey("Given coordinate values", t, func() {
		So(model.ValidCoordinate(0), ShouldBeTrue)
		So(model.ValidCoordinate(1), ShouldBeTrue)
		So(model.ValidCoordinate(0.5), ShouldBeTrue)
		So(model.ValidCoordinate(-0.0001), ShouldBeFalse)
		So(model.ValidCoordinate(1.0001), ShouldBeFalse)
		So(model.ValidCoordinate(math.NaN()), ShouldBeFalse)
		So(model.ValidCoordinate(math.Inf(1)), ShouldBeFalse)

		So(model.PlayerPlacement{X: 0.3, Y: 0.7}.InUnitSquare(), ShouldBeTrue)
		So(model.PlayerPlacement{X: 1.3, Y: 0.7}.InUnitSquare(), ShouldBeFalse)
	})
}
