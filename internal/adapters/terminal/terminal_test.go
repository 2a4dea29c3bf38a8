package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/elorank/internal/adapters/persistence"
	service "github.com/okian/elorank/internal/app"
	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/types"
	"github.com/okian/elorank/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeSession struct {
	left, right model.ItemView
	votes       []int
	skips       int
	failVotes   int
	pairErr     error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		left:  model.ItemView{ID: "a", Reference: "cat.png", Rating: 1000},
		right: model.ItemView{ID: "b", Reference: "dog.png", Rating: 1000},
	}
}

func (f *fakeSession) CurrentPair(context.Context) (model.ItemView, model.ItemView, error) {
	return f.left, f.right, f.pairErr
}

func (f *fakeSession) Vote(_ context.Context, winner int) (service.Outcome, error) {
	if f.failVotes > 0 {
		f.failVotes--
		return service.Outcome{}, fmt.Errorf("%w: read-only", persistence.ErrPersistence)
	}
	f.votes = append(f.votes, winner)
	w, l := f.left, f.right
	if winner == 1 {
		w, l = l, w
	}
	w.Rating += 16
	l.Rating -= 16
	return service.Outcome{Winner: w, Loser: l, Gain: 16}, nil
}

func (f *fakeSession) Skip(context.Context) error {
	f.skips++
	return nil
}

func (f *fakeSession) Standings(context.Context, int) ([]types.Entry, error) {
	return []types.Entry{
		{Rank: 1, ID: "b", Reference: "dog.png", Rating: 1016, Matchups: 1},
		{Rank: 2, ID: "a", Reference: "cat.png", Rating: 984, Matchups: 1},
	}, nil
}

func (f *fakeSession) Count(context.Context) int { return 2 }

func run(s Session, input string) (string, error) {
	var out bytes.Buffer
	err := New(s, WithInput(strings.NewReader(input)), WithOutput(&out)).Run(context.Background())
	return out.String(), err
}

func TestParseAction(t *testing.T) {
	Convey("Given typed input", t, func() {
		cases := map[string]action{
			"0": actionVoteLeft, "l": actionVoteLeft, "LEFT": actionVoteLeft,
			"1": actionVoteRight, "r": actionVoteRight, " right ": actionVoteRight,
			"": actionSkip, " ": actionSkip, "s": actionSkip,
			"t": actionStandings,
			"q": actionQuit,
			"2": actionUnknown, "x": actionUnknown,
		}
		for in, want := range cases {
			So(parseAction(in), ShouldEqual, want)
		}
	})
}

func TestTerminalRun(t *testing.T) {
	Convey("Given a terminal over a session", t, func() {
		s := newFakeSession()

		Convey("When the user votes, skips and quits", func() {
			out, err := run(s, "0\nr\n\ns\nq\n0\n")

			Convey("Then each command reaches the session until quit", func() {
				So(err, ShouldBeNil)
				So(s.votes, ShouldResemble, []int{0, 1})
				So(s.skips, ShouldEqual, 2)
				So(out, ShouldContainSubstring, "[0] cat.png  (a, 1000.0, 0 matchups)")
				So(out, ShouldContainSubstring, "cat.png wins: 1016.0 (+16.0)")
				So(out, ShouldContainSubstring, "dog.png wins")
				So(out, ShouldEndWith, "Bye.\n")
			})
		})

		Convey("When input ends without quitting", func() {
			_, err := run(s, "l")
			So(err, ShouldBeNil)
			So(s.votes, ShouldResemble, []int{0})
		})

		Convey("When standings are requested", func() {
			out, err := run(s, "t\nq\n")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "1st")
			So(out, ShouldContainSubstring, "2nd")
			So(out, ShouldContainSubstring, "dog.png")
		})

		Convey("When the command is unknown", func() {
			out, err := run(s, "zz\nq\n")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `Unknown command "zz"`)
			So(s.votes, ShouldBeEmpty)
		})

		Convey("When a vote cannot be saved", func() {
			s.failVotes = 1
			out, err := run(s, "0\n0\nq\n")

			Convey("Then it is reported and can be retried", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Could not save the vote")
				So(s.votes, ShouldResemble, []int{0})
			})
		})

		Convey("When the session has no pair", func() {
			s.pairErr = service.ErrNotStarted
			_, err := run(s, "0\n")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestWriteStandings(t *testing.T) {
	Convey("Given standings entries", t, func() {
		var buf bytes.Buffer
		err := WriteStandings(&buf, []types.Entry{
			{Rank: 1, ID: "c", Reference: "c.png", Rating: 1031.5, Matchups: 3},
			{Rank: 1, ID: "a", Reference: "a.png", Rating: 1031.5, Matchups: 3},
			{Rank: 2, ID: "b", Reference: "b.png", Rating: 937, Matchups: 6},
		})

		Convey("Then a header and one row per entry are written", func() {
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			So(len(lines), ShouldEqual, 4)
			So(lines[0], ShouldStartWith, "RANK")
			So(lines[1], ShouldStartWith, "1st")
			So(lines[2], ShouldStartWith, "1st")
			So(lines[3], ShouldStartWith, "2nd")
			So(lines[3], ShouldContainSubstring, "937.0")
		})
	})
}
