package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/paxstats/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Source, convey.ShouldEqual, config.SourceFile)
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.KotterThresholdDays, convey.ShouldEqual, 14)
			convey.So(cfg.BuddyWindowDays, convey.ShouldEqual, 183)
			convey.So(cfg.MilestoneStep, convey.ShouldEqual, 100)
			convey.So(cfg.FetchTimeout, convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.RefreshWorkers, convey.ShouldBeGreaterThanOrEqualTo, 1)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "paxstats")
			convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "engine")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the http source has no URLs", func() {
			cfg.Source = config.SourceHTTP
			err := cfg.Validate()

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "events_url")
			})
		})

		convey.Convey("When the postgres source has no DSN", func() {
			cfg.Source = config.SourcePostgres
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the source is unknown", func() {
			cfg.Source = "firestore"
			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "firestore")
		})

		convey.Convey("When the store is unknown", func() {
			cfg.Store = "memcached"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the leader policy is unknown", func() {
			cfg.LeaderPolicy = "ignore"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a window is not positive", func() {
			cfg.KotterThresholdDays = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the metrics namespace is not a valid name part", func() {
			cfg.MetricsNamespace = "pax-stats"
			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "metrics_namespace")
		})

		convey.Convey("When the metrics refresh interval is not positive", func() {
			cfg.MetricsRefreshInterval = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a region has no locations", func() {
			cfg.Regions = map[string][]string{"north": {}}
			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "north")
		})

		convey.Convey("When the timezone is invalid", func() {
			cfg.Timezone = "Mars/Olympus"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the timezone is valid", func() {
			cfg.Timezone = "America/New_York"
			loc, err := cfg.Location()

			convey.Convey("Then it resolves", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(loc.String(), convey.ShouldEqual, "America/New_York")
			})
		})
	})
}
