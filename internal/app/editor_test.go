package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/formation/internal/app"
	"github.com/okian/formation/internal/domain/geometry"
	"github.com/okian/formation/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var errOffline = errors.New("offline")

// fakeRemote serves a fixed lineup and records saves.
type fakeRemote struct {
	mu       sync.Mutex
	lineup   model.Lineup
	fetchErr error
	status   model.SaveStatus
	saveErr  error
	saves    []model.SaveRequest
}

func (f *fakeRemote) Lineup(_ context.Context, teamID string) (model.Lineup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return model.Lineup{}, f.fetchErr
	}
	l := f.lineup.Clone()
	l.TeamID = teamID
	return l, nil
}

func (f *fakeRemote) SavePlacement(_ context.Context, req model.SaveRequest) (model.SaveStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, req)
	if f.status == "" {
		return model.SaveOK, nil
	}
	return f.status, f.saveErr
}

func (f *fakeRemote) setFetchErr(err error) {
	f.mu.Lock()
	f.fetchErr = err
	f.mu.Unlock()
}

func (f *fakeRemote) savedRequests() []model.SaveRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SaveRequest(nil), f.saves...)
}

func newEditor(remote *fakeRemote) (*service.Editor, <-chan struct{}) {
	changed := make(chan struct{}, 16)
	e := service.NewEditor(remote,
		service.WithSaveWorkers(1),
		service.WithSaveQueueSize(8),
		service.WithOnChange(func() { changed <- struct{}{} }),
	)
	e.Start(context.Background())
	return e, changed
}

func waitChange(changed <-chan struct{}) bool {
	select {
	case <-changed:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func TestEditor_Drag(t *testing.T) {
	Convey("Given an editor over a loaded two player lineup", t, func() {
		ctx := context.Background()
		remote := &fakeRemote{lineup: homeLineup()}
		e, changed := newEditor(remote)
		defer func() { _ = e.Close(ctx) }()

		So(e.Load(ctx, "home"), ShouldBeNil)
		So(e.Measure(geometry.New(300, 450, 40)), ShouldBeTrue)

		// st sits at (60, 90) and covers [60,100) x [90,130).
		Convey("When a marker is dragged and released", func() {
			So(e.PointerDown(ctx, geometry.Point{X: 70, Y: 100}), ShouldBeTrue)
			id, dragging := e.Dragging()
			So(dragging, ShouldBeTrue)
			So(id, ShouldEqual, "st")

			e.PointerMove(ctx, geometry.Point{X: 100, Y: 130})
			e.PointerMove(ctx, geometry.Point{X: 130, Y: 190})

			m, ok := e.Frame().Marker("st")
			So(ok, ShouldBeTrue)
			So(m.Dragging, ShouldBeTrue)
			So(m.Position.X, ShouldAlmostEqual, 120)
			So(m.Position.Y, ShouldAlmostEqual, 180)

			req, committed, err := e.PointerUp(ctx)

			Convey("Then the new placement is applied at once and saved", func() {
				So(err, ShouldBeNil)
				So(committed, ShouldBeTrue)
				So(req.PlayerID, ShouldEqual, "st")
				So(req.Version, ShouldEqual, 1)
				So(req.X, ShouldAlmostEqual, 0.4)
				So(req.Y, ShouldAlmostEqual, 0.4)

				l := e.Lineup()
				So(l.Placements[1].X, ShouldAlmostEqual, 0.4)

				So(waitChange(changed), ShouldBeTrue)
				saves := remote.savedRequests()
				So(saves, ShouldHaveLength, 1)
				So(saves[0].RequestID, ShouldEqual, req.RequestID)
				So(e.Status(), ShouldEqual, "team home: saved")

				_, dragging := e.Dragging()
				So(dragging, ShouldBeFalse)
			})
		})

		Convey("When a marker is dragged past the pitch edge", func() {
			So(e.PointerDown(ctx, geometry.Point{X: 70, Y: 100}), ShouldBeTrue)
			e.PointerMove(ctx, geometry.Point{X: 900, Y: -400})
			req, committed, err := e.PointerUp(ctx)

			Convey("Then the committed position is clamped", func() {
				So(err, ShouldBeNil)
				So(committed, ShouldBeTrue)
				So(req.X, ShouldAlmostEqual, 260.0/300.0)
				So(req.Y, ShouldEqual, 0)
			})
		})

		Convey("When a drag is cancelled", func() {
			So(e.PointerDown(ctx, geometry.Point{X: 70, Y: 100}), ShouldBeTrue)
			e.PointerMove(ctx, geometry.Point{X: 200, Y: 200})
			e.Cancel(ctx)

			Convey("Then nothing is applied or saved", func() {
				_, committed, err := e.PointerUp(ctx)
				So(err, ShouldBeNil)
				So(committed, ShouldBeFalse)
				So(e.Lineup().Placements[1].X, ShouldEqual, 0.2)
				So(remote.savedRequests(), ShouldBeEmpty)

				m, _ := e.Frame().Marker("st")
				So(m.Dragging, ShouldBeFalse)
			})
		})

		Convey("When the pointer goes down on empty turf", func() {
			So(e.PointerDown(ctx, geometry.Point{X: 5, Y: 5}), ShouldBeFalse)

			Convey("Then no drag starts", func() {
				_, dragging := e.Dragging()
				So(dragging, ShouldBeFalse)
			})
		})

		Convey("When a second pointer goes down during a drag", func() {
			So(e.PointerDown(ctx, geometry.Point{X: 70, Y: 100}), ShouldBeTrue)

			Convey("Then it is ignored", func() {
				So(e.PointerDown(ctx, geometry.Point{X: 160, Y: 410}), ShouldBeFalse)
				id, _ := e.Dragging()
				So(id, ShouldEqual, "st")
			})
		})
	})

	Convey("Given an editor whose surface was never measured", t, func() {
		ctx := context.Background()
		remote := &fakeRemote{lineup: homeLineup()}
		e, _ := newEditor(remote)
		defer func() { _ = e.Close(ctx) }()
		So(e.Load(ctx, "home"), ShouldBeNil)

		Convey("Then markers are drawn but cannot be dragged", func() {
			f := e.Frame()
			So(f.Measured, ShouldBeFalse)
			So(f.Markers, ShouldHaveLength, 2)
			So(e.PointerDown(ctx, f.Markers[1].Center()), ShouldBeFalse)
		})

		Convey("Then an unusable measurement is ignored", func() {
			So(e.Measure(geometry.New(0, 450, 40)), ShouldBeFalse)
			So(e.Frame().Measured, ShouldBeFalse)
		})
	})
}

func TestEditor_Failures(t *testing.T) {
	Convey("Given an editor whose remote rejects saves", t, func() {
		ctx := context.Background()
		remote := &fakeRemote{lineup: homeLineup(), status: model.SaveFailed, saveErr: errOffline}
		e, changed := newEditor(remote)
		defer func() { _ = e.Close(ctx) }()
		So(e.Load(ctx, "home"), ShouldBeNil)
		So(e.Measure(geometry.New(300, 450, 40)), ShouldBeTrue)

		Convey("When a drag commits", func() {
			So(e.PointerDown(ctx, geometry.Point{X: 70, Y: 100}), ShouldBeTrue)
			e.PointerMove(ctx, geometry.Point{X: 100, Y: 100})
			_, committed, err := e.PointerUp(ctx)
			So(err, ShouldBeNil)
			So(committed, ShouldBeTrue)
			So(waitChange(changed), ShouldBeTrue)

			Convey("Then the optimistic position stays and is flagged unsaved", func() {
				So(e.Lineup().Placements[1].X, ShouldAlmostEqual, 0.3)
				m, _ := e.Frame().Marker("st")
				So(m.Unsaved, ShouldBeTrue)
				So(e.Status(), ShouldContainSubstring, "1 unsaved")
				So(e.Status(), ShouldContainSubstring, "offline")
			})
		})
	})

	Convey("Given an editor whose first load fails", t, func() {
		ctx := context.Background()
		remote := &fakeRemote{lineup: homeLineup(), fetchErr: errOffline}
		e, _ := newEditor(remote)
		defer func() { _ = e.Close(ctx) }()

		err := e.Load(ctx, "home")

		Convey("Then the lineup is empty and the status offers a retry", func() {
			So(errors.Is(err, errOffline), ShouldBeTrue)
			So(e.Lineup().Placements, ShouldBeEmpty)
			So(e.Status(), ShouldContainSubstring, "press r to retry")
		})

		Convey("When the remote recovers and the editor reloads", func() {
			remote.setFetchErr(nil)

			Convey("Then the lineup appears", func() {
				So(e.Reload(ctx), ShouldBeNil)
				So(e.Lineup().Placements, ShouldHaveLength, 2)
				So(e.Status(), ShouldEqual, "team home")
			})
		})
	})

	Convey("Given an editor that never loaded", t, func() {
		e, _ := newEditor(&fakeRemote{})
		defer func() { _ = e.Close(context.Background()) }()

		So(errors.Is(e.Reload(context.Background()), service.ErrNoTeam), ShouldBeTrue)
		So(e.Status(), ShouldEqual, "loading...")
	})
}
