package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/formation/internal/adapters/http/api"
	"github.com/okian/formation/internal/adapters/repository"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/internal/domain/types"
	"github.com/okian/formation/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type failingDeps struct{}

func (failingDeps) Lineup(context.Context, string) (model.Lineup, error) {
	return model.Lineup{}, errors.New("disk on fire")
}

func (failingDeps) SavePlacement(context.Context, string, float64, float64, uint64) (model.PlayerPlacement, error) {
	return model.PlayerPlacement{}, errors.New("disk on fire")
}

func seededStore() *repository.MemoryStore {
	s := repository.NewMemoryStore()
	So(s.PutLineup(context.Background(), model.Lineup{TeamID: "t1", Placements: []model.PlayerPlacement{
		{PlayerID: "gk", X: 0.5, Y: 0.9, DisplayName: "Ana Lima", PositionLabel: "GK", JerseyNumber: 1},
		{PlayerID: "st", X: 0.5, Y: 0.1, DisplayName: "Bo Chen", PositionLabel: "ST", JerseyNumber: 9, IsCaptain: true, Version: 4},
	}}), ShouldBeNil)
	return s
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	opts = append([]api.Option{api.WithLogger(logger.Nop())}, opts...)
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"players": 2}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var e types.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e.Code
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(seededStore())

		Convey("Then the health endpoint reports ok", func() {
			w := serve(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("Then the stats endpoint returns the provider's stats", func() {
			w := serve(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"players":2`)
		})

		Convey("Then the metrics endpoint serves the registry", func() {
			w := serve(mux, "GET", "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then unknown routes are not found", func() {
			w := serve(mux, "GET", "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetLineup(t *testing.T) {
	Convey("Given a store with team t1", t, func() {
		mux := newMux(seededStore())

		Convey("When the lineup is requested", func() {
			w := serve(mux, "GET", "/teams/t1/lineup", "")

			Convey("Then placements come back in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				var body types.Lineup
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.TeamID, ShouldEqual, "t1")
				So(len(body.Placements), ShouldEqual, 2)
				So(body.Placements[1], ShouldResemble, types.Placement{
					PlayerID: "st", X: 0.5, Y: 0.1, IsCaptain: true, DisplayName: "Bo Chen",
					PositionLabel: "ST", JerseyNumber: 9, Version: 4,
				})
			})
		})

		Convey("When an unknown team is requested", func() {
			w := serve(mux, "GET", "/teams/nope/lineup", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})
		})
	})
}

func TestPutPlacement(t *testing.T) {
	Convey("Given a store where st is at version 4", t, func() {
		store := seededStore()
		mux := newMux(store)

		Convey("When a newer version is written", func() {
			w := serve(mux, "PUT", "/players/st/placement", `{"x":0.3,"y":0.2,"version":5}`)

			Convey("Then it is acknowledged and stored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var ack types.PlacementAck
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack, ShouldResemble, types.PlacementAck{PlayerID: "st", X: 0.3, Y: 0.2, Version: 5})
				l, _ := store.Lineup(context.Background(), "t1")
				So(l.Placements[1].X, ShouldEqual, 0.3)
			})
		})

		Convey("When an older version is written", func() {
			w := serve(mux, "PUT", "/players/st/placement", `{"x":0.3,"y":0.2,"version":4}`)

			Convey("Then it conflicts and nothing changes", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "stale_version")
				l, _ := store.Lineup(context.Background(), "t1")
				So(l.Placements[1].X, ShouldEqual, 0.5)
			})
		})

		Convey("When an unknown player is written", func() {
			w := serve(mux, "PUT", "/players/ghost/placement", `{"x":0.3,"y":0.2,"version":1}`)

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When malformed bodies are written", func() {
			bodies := []string{
				`{"x":0.3,"y":0.2`,
				`{"y":0.2,"version":9}`,
				`{"x":0.3,"version":9}`,
				`{"x":0.3,"y":0.2}`,
				`{"x":1.3,"y":0.2,"version":9}`,
				`{"x":0.3,"y":-0.2,"version":9}`,
				`{"x":0.3,"y":0.2,"version":0}`,
				`{"x":0.3,"y":0.2,"version":9,"team":"t1"}`,
			}

			Convey("Then each is a bad request", func() {
				for _, b := range bodies {
					w := serve(mux, "PUT", "/players/st/placement", b)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(errorCode(w), ShouldEqual, "bad_request")
				}
			})
		})

		Convey("When the placement route is read", func() {
			w := serve(mux, "GET", "/players/st/placement", "")

			Convey("Then the method is not allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestGetPitch(t *testing.T) {
	Convey("Given a store with team t1", t, func() {
		mux := newMux(seededStore(), api.WithPitchLimits(600, 900), api.WithMarkerSize(30))

		Convey("When a sized render is requested", func() {
			w := serve(mux, "GET", "/teams/t1/pitch.png?w=200&h=320", "")

			Convey("Then a PNG of that size is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				img, err := png.Decode(w.Body)
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 200)
				So(img.Bounds().Dy(), ShouldEqual, 320)
			})
		})

		Convey("When no size is given", func() {
			w := serve(mux, "GET", "/teams/t1/pitch.png", "")

			Convey("Then the default pitch size is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				img, err := png.Decode(w.Body)
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 300)
				So(img.Bounds().Dy(), ShouldEqual, 450)
			})
		})

		Convey("When the size is out of bounds or malformed", func() {
			for _, q := range []string{"?w=601", "?h=901", "?w=0", "?w=abc", "?h=-5"} {
				w := serve(mux, "GET", "/teams/t1/pitch.png"+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When an unknown team is rendered", func() {
			w := serve(mux, "GET", "/teams/nope/pitch.png", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestBackendFailure(t *testing.T) {
	Convey("Given a backend that fails", t, func() {
		mux := newMux(failingDeps{})

		Convey("Then reads and writes are server errors", func() {
			w := serve(mux, "GET", "/teams/t1/lineup", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorCode(w), ShouldEqual, "internal_error")

			w = serve(mux, "PUT", "/players/st/placement", `{"x":0.3,"y":0.2,"version":5}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given tagged errors", t, func() {
		cause := errors.New("boom")

		Convey("Then kinds and causes are both visible to errors.Is", func() {
			So(errors.Is(api.NewKind("op", api.ErrBadRequest), api.ErrBadRequest), ShouldBeTrue)

			err := api.WrapKind("op", api.ErrConflict, cause)
			So(errors.Is(err, api.ErrConflict), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: conflict: boom")

			So(errors.Is(api.Wrap("op", cause), api.ErrInternal), ShouldBeTrue)
			So(api.Wrap("op", nil), ShouldBeNil)
		})
	})
}
