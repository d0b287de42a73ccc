package util

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/thinplay-cli/thinplay/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "episode", "episodes"), ShouldEqual, "1 episode")
		So(Quantify(0, "episode", "episodes"), ShouldEqual, "0 episodes")
		So(Quantify(7, "episode", "episodes"), ShouldEqual, "7 episodes")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("closed"), ShouldEqual, "Closed")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestDelete(t *testing.T) {
	Convey("Delete", t, func() {
		fs := filesystem.API()

		Convey("Should remove a file", func() {
			So(fs.WriteFile("/tmp/f.m3u", []byte("x"), 0644), ShouldBeNil)
			So(Delete("/tmp/f.m3u"), ShouldBeNil)
			exists, _ := fs.Exists("/tmp/f.m3u")
			So(exists, ShouldBeFalse)
		})

		Convey("Should remove a directory recursively", func() {
			So(fs.MkdirAll("/tmp/dir/nested", 0755), ShouldBeNil)
			So(fs.WriteFile("/tmp/dir/nested/f", []byte("x"), 0644), ShouldBeNil)
			So(Delete("/tmp/dir"), ShouldBeNil)
			exists, _ := fs.Exists("/tmp/dir")
			So(exists, ShouldBeFalse)
		})

		Convey("Should error for a missing path", func() {
			So(Delete("/tmp/nope"), ShouldNotBeNil)
		})
	})
}
