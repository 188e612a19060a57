package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pobabytouch/leaderboard/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := config.DefaultConfig()

		Convey("Then the server defaults are applied", func() {
			So(cfg.Server.Port, ShouldEqual, 8080)
			So(cfg.Server.ReadTimeout, ShouldEqual, 5*time.Second)
		})

		Convey("And the leaderboard depths match the game rules", func() {
			So(cfg.Leaderboard.HighScoreDepth, ShouldEqual, 10)
			So(cfg.Leaderboard.RankDepth, ShouldEqual, 100)
			So(cfg.Leaderboard.FetchMultiplier, ShouldEqual, 3)
		})

		Convey("And the mirror worker is enabled with the default partition", func() {
			So(cfg.Mirror.Enabled, ShouldBeTrue)
			So(cfg.Mirror.GameModes, ShouldResemble, []string{"Default"})
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a config file with overrides and an env reference", t, func() {
		t.Setenv("TEST_REDIS_ADDR", "redis.internal:6379")

		raw := `
server:
  port: 9090
redis:
  addr: ${TEST_REDIS_ADDR}
leaderboard:
  default_count: 25
mirror:
  game_modes:
    - Default
    - Hard
`
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte(raw), 0o600), ShouldBeNil)

		Convey("When loading it", func() {
			cfg, err := config.Load(path)
			So(err, ShouldBeNil)

			Convey("Then explicit values win", func() {
				So(cfg.Server.Port, ShouldEqual, 9090)
				So(cfg.Leaderboard.DefaultCount, ShouldEqual, 25)
				So(cfg.Mirror.GameModes, ShouldResemble, []string{"Default", "Hard"})
			})

			Convey("And environment variables are expanded", func() {
				So(cfg.Redis.Addr, ShouldEqual, "redis.internal:6379")
			})

			Convey("And unspecified values fall back to defaults", func() {
				So(cfg.Leaderboard.HighScoreDepth, ShouldEqual, 10)
				So(cfg.Postgres.Port, ShouldEqual, 5432)
			})
		})
	})

	Convey("Given a missing config file", t, func() {
		Convey("When loading it", func() {
			_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
