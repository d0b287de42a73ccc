package where

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/thinplay-cli/thinplay/filesystem"
)

func init() {
	// Use in-memory filesystem for tests to avoid creating real directories
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config()", func() {
			So(Config(), ShouldNotBeEmpty)
		})
		Convey("Logs()", func() {
			So(Logs(), ShouldNotBeEmpty)
		})
		Convey("Temp()", func() {
			So(Temp(), ShouldNotBeEmpty)
		})
		Convey("Config override via environment", func() {
			t.Setenv(EnvConfigPath, "/custom/thinplay")
			So(Config(), ShouldEqual, "/custom/thinplay")
		})
	})
}
