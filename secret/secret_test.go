package secret

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRoundTrip(t *testing.T) {
	Convey("Given the credential codec", t, func() {
		cases := []string{
			"",
			"hunter2",
			"a",
			"key with spaces and symbols !@#$%^&*()",
			string([]byte{0x00}),
			string([]byte{0x00, 0xff, 0x10, 0x00, 0x7f}),
			"ünïcödé-ключ",
		}

		Convey("Encoding then decoding should return the original bytes exactly", func() {
			for _, input := range cases {
				decoded, err := Decode(Encode(input))
				So(err, ShouldBeNil)
				So(decoded, ShouldEqual, input)
			}
		})

		Convey("Encoding should produce two hex characters per byte", func() {
			So(Encode("abc"), ShouldEqual, "616263")
			So(len(Encode(string([]byte{0, 1, 2}))), ShouldEqual, 6)
		})

		Convey("Decoding malformed input should fail", func() {
			_, err := Decode("zz")
			So(err, ShouldNotBeNil)

			_, err = Decode("abc")
			So(err, ShouldNotBeNil)
		})
	})
}
