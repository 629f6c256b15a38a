package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/formation/internal/adapters/remote"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/internal/domain/types"
	"github.com/okian/formation/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newClient(url string, opts ...remote.Option) *remote.Client {
	opts = append([]remote.Option{remote.WithLogger(logger.Nop())}, opts...)
	c, err := remote.New(url, opts...)
	So(err, ShouldBeNil)
	return c
}

func TestClientLineup(t *testing.T) {
	Convey("Given a lineup service", t, func() {
		var gotPath, gotID string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotID = r.Header.Get("X-Request-ID")
			switch r.URL.Path {
			case "/teams/t1/lineup":
				_ = json.NewEncoder(w).Encode(types.Lineup{TeamID: "t1", Placements: []types.Placement{
					{PlayerID: "p1", X: 0.25, Y: 0.75, IsCaptain: true, DisplayName: "Ana", JerseyNumber: 10, Version: 3},
				}})
			case "/teams/broken/lineup":
				_, _ = w.Write([]byte("{not json"))
			default:
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(types.ErrorResponse{Code: "not_found", Message: "team not found"})
			}
		}))
		defer srv.Close()
		c := newClient(srv.URL, remote.WithRequestIDs(func() string { return "fixed-id" }))

		Convey("When a known team is fetched", func() {
			l, err := c.Lineup(context.Background(), "t1")

			Convey("Then the wire shape is converted to the domain", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/teams/t1/lineup")
				So(gotID, ShouldEqual, "fixed-id")
				So(l.TeamID, ShouldEqual, "t1")
				So(l.Placements, ShouldResemble, []model.PlayerPlacement{
					{PlayerID: "p1", X: 0.25, Y: 0.75, IsCaptain: true, DisplayName: "Ana", JerseyNumber: 10, Version: 3},
				})
			})
		})

		Convey("When an unknown team is fetched", func() {
			_, err := c.Lineup(context.Background(), "nope")

			Convey("Then ErrNotFound carries the service message", func() {
				So(errors.Is(err, remote.ErrNotFound), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "team not found")
			})
		})

		Convey("When the body is malformed", func() {
			_, err := c.Lineup(context.Background(), "broken")

			Convey("Then ErrDecode is returned", func() {
				So(errors.Is(err, remote.ErrDecode), ShouldBeTrue)
			})
		})
	})
}

func TestClientSavePlacement(t *testing.T) {
	Convey("Given a service that stores version 5 of p1", t, func() {
		var got types.PlacementUpdate
		var gotMethod, gotID string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotID = r.Header.Get("X-Request-ID")
			_ = json.NewDecoder(r.Body).Decode(&got)
			switch {
			case r.URL.Path != "/players/p1/placement":
				w.WriteHeader(http.StatusNotFound)
			case got.Version <= 5:
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(types.ErrorResponse{Code: "stale_version", Message: "version 5 already stored"})
			case got.X > 1:
				w.WriteHeader(http.StatusBadRequest)
			default:
				_ = json.NewEncoder(w).Encode(types.PlacementAck{PlayerID: "p1", X: got.X, Y: got.Y, Version: got.Version})
			}
		}))
		defer srv.Close()
		c := newClient(srv.URL)
		ctx := context.Background()

		Convey("When a newer version is saved", func() {
			status, err := c.SavePlacement(ctx, model.SaveRequest{RequestID: "req-9", PlayerID: "p1", X: 0.4, Y: 0.6, Version: 6})

			Convey("Then it is a PUT carrying the request id and version", func() {
				So(err, ShouldBeNil)
				So(status, ShouldEqual, model.SaveOK)
				So(gotMethod, ShouldEqual, http.MethodPut)
				So(gotID, ShouldEqual, "req-9")
				So(got, ShouldResemble, types.PlacementUpdate{X: 0.4, Y: 0.6, Version: 6})
			})
		})

		Convey("When an older version is saved", func() {
			status, err := c.SavePlacement(ctx, model.SaveRequest{PlayerID: "p1", X: 0.4, Y: 0.6, Version: 4})

			Convey("Then the save is stale", func() {
				So(status, ShouldEqual, model.SaveStale)
				So(errors.Is(err, remote.ErrStale), ShouldBeTrue)
			})
		})

		Convey("When the service rejects the payload", func() {
			status, err := c.SavePlacement(ctx, model.SaveRequest{PlayerID: "p1", X: 2, Y: 0.6, Version: 7})

			Convey("Then the save fails as rejected", func() {
				So(status, ShouldEqual, model.SaveFailed)
				So(errors.Is(err, remote.ErrRejected), ShouldBeTrue)
			})
		})

		Convey("When client errors repeat", func() {
			for i := 0; i < 10; i++ {
				_, _ = c.SavePlacement(ctx, model.SaveRequest{PlayerID: "p1", Version: 1})
			}

			Convey("Then the breaker stays closed", func() {
				So(c.BreakerState(), ShouldEqual, gobreaker.StateClosed)
			})
		})
	})
}

func TestClientBreaker(t *testing.T) {
	Convey("Given a service that keeps failing", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		c := newClient(srv.URL, remote.WithBreaker(2, time.Minute))
		ctx := context.Background()

		Convey("When the failure threshold is reached", func() {
			for i := 0; i < 2; i++ {
				_, err := c.Lineup(ctx, "t1")
				So(errors.Is(err, remote.ErrUnavailable), ShouldBeTrue)
			}
			_, err := c.Lineup(ctx, "t1")

			Convey("Then the circuit opens and requests stop reaching the service", func() {
				So(c.BreakerState(), ShouldEqual, gobreaker.StateOpen)
				So(errors.Is(err, remote.ErrUnavailable), ShouldBeTrue)
				So(errors.Is(err, gobreaker.ErrOpenState), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 2)
			})
		})
	})
}

func TestClientNew(t *testing.T) {
	Convey("Given malformed base URLs", t, func() {
		for _, u := range []string{"", "localhost:8080", "://nope"} {
			_, err := remote.New(u, remote.WithLogger(logger.Nop()))
			So(errors.Is(err, remote.ErrInvalidURL), ShouldBeTrue)
		}
	})
}
