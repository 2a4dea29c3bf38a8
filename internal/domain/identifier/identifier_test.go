package identifier_test

import (
	"errors"
	"testing"

	"github.com/okian/elorank/internal/domain/identifier"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEncode(t *testing.T) {
	Convey("Given bijective base-26 encoding", t, func() {
		Convey("When encoding boundary counters", func() {
			cases := map[int]string{
				0:   "a",
				1:   "b",
				25:  "z",
				26:  "aa",
				27:  "ab",
				51:  "az",
				52:  "ba",
				701: "zz",
				702: "aaa",
			}

			Convey("Then each counter maps to the expected identifier", func() {
				for n, want := range cases {
					got, err := identifier.Encode(n)
					So(err, ShouldBeNil)
					So(got, ShouldEqual, want)
				}
			})
		})

		Convey("When encoding a negative counter", func() {
			_, err := identifier.Encode(-1)

			Convey("Then it should fail", func() {
				So(errors.Is(err, identifier.ErrInvalidIdentifier), ShouldBeTrue)
			})
		})
	})
}

func TestBijection(t *testing.T) {
	Convey("Given counters spanning single and double letter identifiers", t, func() {
		seen := make(map[string]int, 800)

		Convey("Then every identifier is distinct and decodes to its counter", func() {
			for n := 0; n <= 800; n++ {
				id := identifier.MustEncode(n)
				_, dup := seen[id]
				So(dup, ShouldBeFalse)
				seen[id] = n

				back, err := identifier.Decode(id)
				So(err, ShouldBeNil)
				So(back, ShouldEqual, n)
			}
			So(len(seen), ShouldEqual, 801)
		})
	})
}

func TestDecodeInvalid(t *testing.T) {
	Convey("Given malformed identifiers", t, func() {
		for _, bad := range []string{"", "A", "a1", "a_b", "é"} {
			_, err := identifier.Decode(bad)
			So(errors.Is(err, identifier.ErrInvalidIdentifier), ShouldBeTrue)
		}
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a fresh generator", t, func() {
		g := identifier.NewGenerator()

		Convey("When drawing 28 identifiers", func() {
			ids := make([]string, 0, 28)
			for i := 0; i < 28; i++ {
				ids = append(ids, g.Next())
			}

			Convey("Then they follow discovery order", func() {
				So(ids[0], ShouldEqual, "a")
				So(ids[25], ShouldEqual, "z")
				So(ids[26], ShouldEqual, "aa")
				So(ids[27], ShouldEqual, "ab")
				So(g.Count(), ShouldEqual, 28)
			})
		})
	})
}
