// Package terminal is the interactive line-oriented presentation of a ranking
// session: it shows the current pair and turns typed keys into votes and skips.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/okian/elorank/internal/adapters/persistence"
	service "github.com/okian/elorank/internal/app"
	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/types"
	"github.com/okian/elorank/pkg/logger"
)

// Session is the part of the ranking session the terminal drives.
type Session interface {
	CurrentPair(ctx context.Context) (model.ItemView, model.ItemView, error)
	Vote(ctx context.Context, winner int) (service.Outcome, error)
	Skip(ctx context.Context) error
	Standings(ctx context.Context, n int) ([]types.Entry, error)
	Count(ctx context.Context) int
}

type action int

const (
	actionUnknown action = iota
	actionVoteLeft
	actionVoteRight
	actionSkip
	actionStandings
	actionQuit
)

// parseAction maps one input line to an action. Blank input skips.
func parseAction(line string) action {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "0", "l", "left":
		return actionVoteLeft
	case "1", "r", "right":
		return actionVoteRight
	case "", "s", "skip", "space":
		return actionSkip
	case "t", "standings":
		return actionStandings
	case "q", "quit", "exit":
		return actionQuit
	default:
		return actionUnknown
	}
}

// Terminal runs the prompt loop.
type Terminal struct {
	session        Session
	in             io.Reader
	out            io.Writer
	standingsLimit int
	logger         logger.Logger
}

// New creates a terminal over session reading stdin and writing stdout.
func New(session Session, opts ...Option) *Terminal {
	t := &Terminal{
		session:        session,
		in:             os.Stdin,
		out:            os.Stdout,
		standingsLimit: DefaultStandingsLimit,
		logger:         logger.Get().Named("terminal"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run prompts until the user quits, input ends or ctx is done. A vote that
// fails to persist is reported and the same pair is offered again.
func (t *Terminal) Run(ctx context.Context) error {
	if t.in == nil {
		return ErrNoInput
	}
	scanner := bufio.NewScanner(t.in)

	fmt.Fprintf(t.out, "Ranking %s items. 0/l left, 1/r right, enter/s skip, t standings, q quit.\n",
		humanize.Comma(int64(t.session.Count(ctx))))

	for ctx.Err() == nil {
		left, right, err := t.session.CurrentPair(ctx)
		if err != nil {
			return err
		}
		t.showPair(left, right)

		if !scanner.Scan() {
			return scanner.Err()
		}

		switch parseAction(scanner.Text()) {
		case actionVoteLeft:
			if err := t.vote(ctx, 0); err != nil {
				return err
			}
		case actionVoteRight:
			if err := t.vote(ctx, 1); err != nil {
				return err
			}
		case actionSkip:
			if err := t.session.Skip(ctx); err != nil {
				return err
			}
		case actionStandings:
			entries, err := t.session.Standings(ctx, t.standingsLimit)
			if err != nil {
				return err
			}
			if err := WriteStandings(t.out, entries); err != nil {
				return err
			}
		case actionQuit:
			fmt.Fprintln(t.out, "Bye.")
			return nil
		default:
			fmt.Fprintf(t.out, "Unknown command %q.\n", strings.TrimSpace(scanner.Text()))
		}
	}
	return nil
}

func (t *Terminal) showPair(left, right model.ItemView) {
	fmt.Fprintln(t.out)
	fmt.Fprintf(t.out, "  [0] %s  (%s, %.1f, %s)\n", left.Reference, left.ID, left.Rating, matchups(left.Matchups))
	fmt.Fprintf(t.out, "  [1] %s  (%s, %.1f, %s)\n", right.Reference, right.ID, right.Rating, matchups(right.Matchups))
	fmt.Fprint(t.out, "> ")
}

func (t *Terminal) vote(ctx context.Context, winner int) error {
	out, err := t.session.Vote(ctx, winner)
	if errors.Is(err, persistence.ErrPersistence) {
		t.logger.Warn(ctx, "vote not saved", logger.Error(err))
		fmt.Fprintf(t.out, "Could not save the vote, nothing changed: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "%s wins: %.1f (+%.1f), %s drops to %.1f\n",
		out.Winner.Reference, out.Winner.Rating, out.Gain, out.Loser.Reference, out.Loser.Rating)
	return nil
}

// WriteStandings prints entries as an aligned table with ordinal ranks.
func WriteStandings(w io.Writer, entries []types.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tRATING\tMATCHUPS\tREFERENCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%d\t%s\n", humanize.Ordinal(e.Rank), e.ID, e.Rating, e.Matchups, e.Reference)
	}
	return tw.Flush()
}

func matchups(n int) string {
	if n == 1 {
		return "1 matchup"
	}
	return humanize.Comma(int64(n)) + " matchups"
}
