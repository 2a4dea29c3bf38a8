package scheduler_test

import (
	"errors"
	"testing"

	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/scheduler"
	. "github.com/smartystreets/goconvey/convey"
)

func population(counts map[string]int, order ...string) []scheduler.Candidate {
	out := make([]scheduler.Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, scheduler.Candidate{ID: id, Matchups: counts[id]})
	}
	return out
}

// vote mimics a completed vote: both participants gain one matchup.
func vote(counts map[string]int, p model.Pair) {
	counts[p[0]]++
	counts[p[1]]++
}

func TestPool(t *testing.T) {
	Convey("Given candidate populations", t, func() {
		Convey("When fewer than two items exist", func() {
			_, errNone := scheduler.Pool(nil)
			_, errOne := scheduler.Pool([]scheduler.Candidate{{ID: "a"}})

			Convey("Then selection fails with insufficient items", func() {
				So(errors.Is(errNone, scheduler.ErrInsufficientItems), ShouldBeTrue)
				So(errors.Is(errOne, scheduler.ErrInsufficientItems), ShouldBeTrue)
			})
		})

		Convey("When at least two items share the minimal count", func() {
			pool, err := scheduler.Pool(population(map[string]int{"a": 2, "b": 0, "c": 0, "d": 1}, "a", "b", "c", "d"))

			Convey("Then the pool is exactly that tier", func() {
				So(err, ShouldBeNil)
				So(pool, ShouldResemble, []string{"b", "c"})
			})
		})

		Convey("When the minimal tier holds a single item", func() {
			pool, err := scheduler.Pool(population(map[string]int{"a": 1, "b": 1, "c": 0}, "a", "b", "c"))

			Convey("Then the next tier is merged in", func() {
				So(err, ShouldBeNil)
				So(pool, ShouldResemble, []string{"c", "a", "b"})
			})
		})

		Convey("When every tier holds a single item", func() {
			pool, err := scheduler.Pool(population(map[string]int{"a": 7, "b": 3, "c": 0}, "a", "b", "c"))

			Convey("Then escalation stops as soon as two items are pooled", func() {
				So(err, ShouldBeNil)
				So(pool, ShouldResemble, []string{"c", "b"})
			})
		})

		Convey("When ids repeat", func() {
			_, err := scheduler.Pool([]scheduler.Candidate{{ID: "a"}, {ID: "a"}})

			Convey("Then the population is rejected", func() {
				So(errors.Is(err, scheduler.ErrDuplicateItem), ShouldBeTrue)
			})
		})
	})
}

func TestNext_DistinctItems(t *testing.T) {
	Convey("Given a seeded scheduler over eight items", t, func() {
		s := scheduler.New(scheduler.WithSeed(11))
		counts := map[string]int{}
		order := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

		Convey("Then no pair ever contains the same item twice", func() {
			for i := 0; i < 2000; i++ {
				sel, err := s.Next(population(counts, order...))
				So(err, ShouldBeNil)
				So(sel.Pair[0], ShouldNotEqual, sel.Pair[1])
				if i%3 != 0 {
					vote(counts, sel.Pair)
				}
			}
		})
	})
}

func TestNext_MinimalTier(t *testing.T) {
	Convey("Given five items with skewed matchup counts", t, func() {
		s := scheduler.New(scheduler.WithSeed(3))
		counts := map[string]int{"a": 0, "b": 0, "c": 0, "d": 3, "e": 5}
		items := population(counts, "a", "b", "c", "d", "e")
		minimal := map[string]bool{"a": true, "b": true, "c": true}

		Convey("When selecting 1000 times without votes", func() {
			Convey("Then every selected item belongs to the minimal tier", func() {
				for i := 0; i < 1000; i++ {
					sel, err := s.Next(items)
					So(err, ShouldBeNil)
					So(minimal[sel.Pair[0]], ShouldBeTrue)
					So(minimal[sel.Pair[1]], ShouldBeTrue)
					So(sel.Pool, ShouldEqual, 3)
				}
			})
		})

		Convey("When votes drain the minimal tier", func() {
			Convey("Then selected items never exceed the pooled tiers", func() {
				for i := 0; i < 300; i++ {
					pool, err := scheduler.Pool(population(counts, "a", "b", "c", "d", "e"))
					So(err, ShouldBeNil)
					pooled := make(map[string]bool, len(pool))
					for _, id := range pool {
						pooled[id] = true
					}

					sel, err := s.Next(population(counts, "a", "b", "c", "d", "e"))
					So(err, ShouldBeNil)
					So(pooled[sel.Pair[0]], ShouldBeTrue)
					So(pooled[sel.Pair[1]], ShouldBeTrue)
					vote(counts, sel.Pair)
				}
			})
		})
	})
}

func TestNext_NoRepeat(t *testing.T) {
	Convey("Given a scheduler over six items", t, func() {
		s := scheduler.New(scheduler.WithSeed(99))
		counts := map[string]int{}
		order := []string{"a", "b", "c", "d", "e", "f"}

		Convey("When running 100 vote/selection cycles", func() {
			var prev model.Pair
			fallbacks := 0
			for i := 0; i < 100; i++ {
				sel, err := s.Next(population(counts, order...))
				So(err, ShouldBeNil)
				if sel.Fallback {
					fallbacks++
				} else {
					So(sel.Pair.Equal(prev), ShouldBeFalse)
				}
				So(s.Previous(), ShouldResemble, sel.Pair)
				prev = sel.Pair
				vote(counts, sel.Pair)
			}

			Convey("Then the repeat fallback is rare", func() {
				So(fallbacks, ShouldBeLessThan, 5)
			})
		})
	})
}

func TestNext_TwoItems(t *testing.T) {
	Convey("Given only two items", t, func() {
		s := scheduler.New(scheduler.WithSeed(5))
		items := []scheduler.Candidate{{ID: "a"}, {ID: "b"}}

		Convey("When the first pair is selected", func() {
			first, err := s.Next(items)

			Convey("Then no fallback is needed", func() {
				So(err, ShouldBeNil)
				So(first.Fallback, ShouldBeFalse)
				So(first.Attempts, ShouldEqual, 1)
				So(s.State(), ShouldEqual, scheduler.StatePairSelected)
			})

			Convey("And the repeated pair is tolerated after bounded retries", func() {
				for i := 0; i < 10; i++ {
					sel, err := s.Next(items)
					So(err, ShouldBeNil)
					So(sel.Fallback, ShouldBeTrue)
					So(sel.Attempts, ShouldEqual, scheduler.DefaultMaxRepeatRetries+1)
					So(sel.Pair.Equal(model.Pair{"a", "b"}), ShouldBeTrue)
				}
			})
		})
	})

	Convey("Given two items and no retries allowed", t, func() {
		s := scheduler.New(scheduler.WithSeed(5), scheduler.WithMaxRepeatRetries(0))
		items := []scheduler.Candidate{{ID: "a"}, {ID: "b"}}
		_, err := s.Next(items)
		So(err, ShouldBeNil)

		sel, err := s.Next(items)
		So(err, ShouldBeNil)
		So(sel.Fallback, ShouldBeTrue)
		So(sel.Attempts, ShouldEqual, 1)
	})
}

func TestNext_ThreeItemEscalation(t *testing.T) {
	Convey("Given A and B just compared while C has not", t, func() {
		counts := map[string]int{"a": 1, "b": 1, "c": 0}
		items := population(counts, "a", "b", "c")

		Convey("Then the next pair includes C unless the repeat fallback fired", func() {
			for seed := int64(1); seed <= 200; seed++ {
				s := scheduler.New(scheduler.WithSeed(seed))
				prime := population(map[string]int{}, "a", "b")
				_, err := s.Next(prime)
				So(err, ShouldBeNil)

				sel, err := s.Next(items)
				So(err, ShouldBeNil)
				So(sel.Pool, ShouldEqual, 3)
				So(sel.Pair.Contains("c") || sel.Fallback, ShouldBeTrue)
			}
		})

		Convey("Then generous retries always bring C in", func() {
			for seed := int64(1); seed <= 50; seed++ {
				s := scheduler.New(scheduler.WithSeed(seed), scheduler.WithMaxRepeatRetries(60))
				_, err := s.Next(population(map[string]int{}, "a", "b"))
				So(err, ShouldBeNil)

				sel, err := s.Next(items)
				So(err, ShouldBeNil)
				So(sel.Pair.Contains("c"), ShouldBeTrue)
			}
		})
	})
}

func TestNext_OverlapPolicy(t *testing.T) {
	Convey("Given the overlap repeat policy over five items", t, func() {
		s := scheduler.New(scheduler.WithSeed(8), scheduler.WithRepeatPolicy(scheduler.RepeatOverlap), scheduler.WithMaxRepeatRetries(40))
		items := population(map[string]int{}, "a", "b", "c", "d", "e")

		Convey("Then consecutive pairs share no item", func() {
			var prev model.Pair
			for i := 0; i < 100; i++ {
				sel, err := s.Next(items)
				So(err, ShouldBeNil)
				if !sel.Fallback {
					So(sel.Pair.Overlaps(prev), ShouldBeFalse)
				}
				prev = sel.Pair
			}
		})
	})
}

func TestState(t *testing.T) {
	Convey("Given a new scheduler", t, func() {
		s := scheduler.New()

		Convey("Then it starts idle with no previous pair", func() {
			So(s.State(), ShouldEqual, scheduler.StateIdle)
			So(s.State().String(), ShouldEqual, "idle")
			So(s.Previous().Empty(), ShouldBeTrue)
		})
	})
}
