package elo_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/okian/elorank/internal/domain/elo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpected(t *testing.T) {
	Convey("Given two ratings", t, func() {
		Convey("When they are equal", func() {
			Convey("Then each side expects half", func() {
				So(elo.Expected(1000, 1000), ShouldEqual, 0.5)
			})
		})

		Convey("When one side is 400 points stronger", func() {
			e := elo.Expected(1400, 1000)

			Convey("Then it expects 10/11", func() {
				So(e, ShouldAlmostEqual, 10.0/11.0, 1e-12)
			})
		})

		Convey("Then both expectations sum to one", func() {
			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 500; i++ {
				a := rng.Float64()*3000 - 500
				b := rng.Float64()*3000 - 500
				So(elo.Expected(a, b)+elo.Expected(b, a), ShouldAlmostEqual, 1.0, 1e-12)
			}
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given the default updater", t, func() {
		u := elo.New()

		Convey("Then K defaults to 32", func() {
			So(u.K(), ShouldEqual, 32.0)
		})

		Convey("When two 1000-rated items meet", func() {
			r := u.Update(1000, 1000)

			Convey("Then the winner gains 16 and the loser drops 16", func() {
				So(r.Winner, ShouldEqual, 1016.0)
				So(r.Loser, ShouldEqual, 984.0)
				So(r.Delta, ShouldEqual, 16.0)
			})
		})

		Convey("When an upset happens", func() {
			r := u.Update(900, 1300)

			Convey("Then the winner gains more than half of K", func() {
				So(r.Winner-900, ShouldBeGreaterThan, 16)
				So(r.Winner-900, ShouldBeLessThan, 32)
			})
		})

		Convey("When ratings are negative", func() {
			r := u.Update(-50, -10)

			Convey("Then no clamping is applied", func() {
				So(r.Loser, ShouldBeLessThan, -10)
				So(r.Winner, ShouldBeGreaterThan, -50)
			})
		})
	})
}

func TestZeroSum(t *testing.T) {
	Convey("Given random ratings and K factors", t, func() {
		rng := rand.New(rand.NewSource(42))

		Convey("Then the winner's gain equals the loser's loss", func() {
			for i := 0; i < 1000; i++ {
				k := 1 + rng.Float64()*63
				u := elo.New(elo.WithK(k))
				w := rng.Float64()*4000 - 1000
				l := rng.Float64()*4000 - 1000
				r := u.Update(w, l)

				gain := r.Winner - w
				loss := r.Loser - l
				So(math.Abs(gain+loss), ShouldBeLessThan, 1e-9)
				So(gain, ShouldBeGreaterThanOrEqualTo, 0)
				So(gain, ShouldBeLessThanOrEqualTo, k)
			}
		})
	})
}

func TestWithK(t *testing.T) {
	Convey("Given K factor options", t, func() {
		So(elo.New(elo.WithK(16)).K(), ShouldEqual, 16.0)
		So(elo.New(elo.WithK(0)).K(), ShouldEqual, elo.DefaultK)
		So(elo.New(elo.WithK(-4)).K(), ShouldEqual, elo.DefaultK)
	})
}
