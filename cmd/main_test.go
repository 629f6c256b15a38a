package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/formation/internal/config"
	"github.com/okian/formation/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const seedYAML = `
lineups:
  - team_id: home
    placements:
      - player_id: gk
        x: 0.5
        y: 0.9
        is_captain: true
        display_name: Alex Keeper
`

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		ctx := context.Background()

		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("FORMATION_ADDR", ":8080")
			_ = os.Setenv("FORMATION_PITCH_PNG_MAX_WIDTH", "400")
			defer func() {
				_ = os.Unsetenv("FORMATION_ADDR")
				_ = os.Unsetenv("FORMATION_PITCH_PNG_MAX_WIDTH")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PitchPNGMaxWidth, convey.ShouldEqual, 400)
			})
		})

		convey.Convey("When the service is built from configuration with a seed file", func() {
			cfg := config.New(ctx)
			cfg.SeedFile = filepath.Join(t.TempDir(), "seed.yaml")
			cfg.PitchPNGMaxWidth = 400
			convey.So(os.WriteFile(cfg.SeedFile, []byte(seedYAML), 0o600), convey.ShouldBeNil)

			svc := newService(cfg, logger.Get())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			ts := httptest.NewServer(newMux(ctx, cfg, svc))
			defer ts.Close()

			convey.Convey("Then the seeded lineup is served", func() {
				resp, err := http.Get(ts.URL + "/teams/home/lineup")
				convey.So(err, convey.ShouldBeNil)
				defer resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

				var body map[string]any
				convey.So(json.NewDecoder(resp.Body).Decode(&body), convey.ShouldBeNil)
				convey.So(body["team_id"], convey.ShouldEqual, "home")
			})

			convey.Convey("Then placements can be written", func() {
				req, _ := http.NewRequest(http.MethodPut, ts.URL+"/players/gk/placement",
					strings.NewReader(`{"x":0.4,"y":0.8,"version":1}`))
				resp, err := http.DefaultClient.Do(req)
				convey.So(err, convey.ShouldBeNil)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then the configured pitch limits apply", func() {
				resp, err := http.Get(ts.URL + "/teams/home/pitch.png?w=500&h=450")
				convey.So(err, convey.ShouldBeNil)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
			})

			convey.Convey("Then docs, health and metrics are mounted", func() {
				for _, path := range []string{"/healthz", "/metrics", "/stats", "/api-docs", "/openapi.yaml"} {
					resp, err := http.Get(ts.URL + path)
					convey.So(err, convey.ShouldBeNil)
					resp.Body.Close()
					convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				}
			})
		})
	})
}
