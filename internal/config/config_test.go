package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/formation/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.MarkerSize, convey.ShouldEqual, 40)
			convey.So(cfg.ClampOnRender, convey.ShouldBeTrue)
			convey.So(cfg.EditorMarkerSize, convey.ShouldEqual, 3)
			convey.So(cfg.SaveWorkerCount, convey.ShouldBeGreaterThan, 0)
			convey.So(cfg.RemoteTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.BreakerOpenTimeout(), convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs that break one rule each", t, func() {
		ctx := context.Background()
		broken := []func(*config.Config){
			func(c *config.Config) { c.Addr = " " },
			func(c *config.Config) { c.MarkerSize = -1 },
			func(c *config.Config) { c.EditorMarkerSize = 0 },
			func(c *config.Config) { c.StoreBackend = "postgres" },
			func(c *config.Config) { c.StoreBackend = config.BackendRedis },
			func(c *config.Config) { c.PitchPNGMaxWidth = 0 },
			func(c *config.Config) { c.SaveQueueSize = 0 },
			func(c *config.Config) { c.BreakerMaxFailures = 0 },
			func(c *config.Config) { c.RemoteURL = "localhost:9080" },
		}

		convey.Convey("Then each fails with ErrInvalidConfig", func() {
			for _, mutate := range broken {
				cfg := config.New(ctx)
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Then the redis backend is valid with an address", func() {
			cfg := config.New(ctx)
			cfg.StoreBackend = config.BackendRedis
			cfg.RedisAddr = "localhost:6379"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
