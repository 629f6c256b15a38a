package sequence_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/formation/internal/domain/sequence"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryTracker(t *testing.T) {
	Convey("Given a new tracker", t, func() {
		ctx := context.Background()
		tr := sequence.NewInMemoryTracker()

		Convey("Then it starts empty", func() {
			So(tr.Size(), ShouldEqual, 0)
			So(tr.Latest(ctx, "p1"), ShouldEqual, 0)
		})

		Convey("When versions advance in order", func() {
			So(tr.Advance(ctx, "p1", 1), ShouldBeTrue)
			So(tr.Advance(ctx, "p1", 2), ShouldBeTrue)

			Convey("Then the newest one is recorded", func() {
				So(tr.Latest(ctx, "p1"), ShouldEqual, 2)
				So(tr.IsLatest(ctx, "p1", 2), ShouldBeTrue)
				So(tr.IsLatest(ctx, "p1", 1), ShouldBeFalse)
				So(tr.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an older or equal version arrives late", func() {
			tr.Advance(ctx, "p1", 5)

			Convey("Then it is rejected", func() {
				So(tr.Advance(ctx, "p1", 4), ShouldBeFalse)
				So(tr.Advance(ctx, "p1", 5), ShouldBeFalse)
				So(tr.Latest(ctx, "p1"), ShouldEqual, 5)
			})
		})

		Convey("When keys are independent", func() {
			tr.Advance(ctx, "a", 9)
			tr.Advance(ctx, "b", 1)

			Convey("Then one key never affects another", func() {
				So(tr.Latest(ctx, "a"), ShouldEqual, 9)
				So(tr.Latest(ctx, "b"), ShouldEqual, 1)
				So(tr.Size(), ShouldEqual, 2)
			})
		})

		Convey("When a key is forgotten", func() {
			tr.Advance(ctx, "a", 3)
			tr.Advance(ctx, "b", 3)
			tr.Forget(ctx, "a")
			tr.Forget(ctx, "missing")

			Convey("Then it restarts from zero", func() {
				So(tr.Size(), ShouldEqual, 1)
				So(tr.Latest(ctx, "a"), ShouldEqual, 0)
				So(tr.Advance(ctx, "a", 1), ShouldBeTrue)
			})
		})
	})
}

func TestBoundedTracker(t *testing.T) {
	Convey("Given a tracker bounded to two keys", t, func() {
		ctx := context.Background()
		tr := sequence.NewInMemoryTracker(sequence.WithMaxSize(2))

		Convey("When a third key arrives", func() {
			tr.Advance(ctx, "a", 1)
			tr.Advance(ctx, "b", 1)
			tr.Advance(ctx, "a", 2)
			tr.Advance(ctx, "c", 1)

			Convey("Then the least recently advanced key is evicted", func() {
				So(tr.Size(), ShouldEqual, 2)
				So(tr.Latest(ctx, "b"), ShouldEqual, 0)
				So(tr.Latest(ctx, "a"), ShouldEqual, 2)
				So(tr.Latest(ctx, "c"), ShouldEqual, 1)
			})
		})
	})
}

func TestTrackerConcurrency(t *testing.T) {
	Convey("Given many goroutines advancing the same keys", t, func() {
		ctx := context.Background()
		tr := sequence.NewInMemoryTracker()
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for v := uint64(1); v <= 100; v++ {
					tr.Advance(ctx, fmt.Sprintf("p%d", v%4), v)
				}
			}()
		}
		wg.Wait()

		Convey("Then every key holds its maximum", func() {
			So(tr.Size(), ShouldEqual, 4)
			So(tr.Latest(ctx, "p0"), ShouldEqual, 100)
			So(tr.Latest(ctx, "p1"), ShouldEqual, 97)
			So(tr.Latest(ctx, "p2"), ShouldEqual, 98)
			So(tr.Latest(ctx, "p3"), ShouldEqual, 99)
		})
	})
}
