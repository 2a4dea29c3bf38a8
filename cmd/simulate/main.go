package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/okian/elorank/internal/simulation"
	"github.com/okian/elorank/pkg/logger"
)

func main() {
	var (
		items    = flag.Int("items", simulation.DefaultItems, "Number of synthetic items")
		votes    = flag.Int("votes", simulation.DefaultVotes, "Number of votes to cast")
		noise    = flag.Float64("noise", 0, "Voter noise; 0 means the stronger item always wins")
		spread   = flag.Float64("spread", simulation.DefaultSpread, "Standard deviation of hidden strengths")
		seed     = flag.Int64("seed", 0, "Random seed (default: clock)")
		dir      = flag.String("dir", "", "Source directory (default: a temporary directory)")
		keep     = flag.Bool("keep", false, "Keep the temporary directory")
		driver   = flag.String("driver", simulation.DriverSession, "How votes are cast: session or http")
		timeout  = flag.Duration("timeout", simulation.DefaultTimeout, "HTTP request timeout")
		output   = flag.String("output", "", "Write the JSON report to this file")
		top      = flag.Int("top", simulation.DefaultTopN, "Standings rows in the report")
		kFactor  = flag.Float64("k", 0, "Elo K factor (default 32)")
		policy   = flag.String("policy", "", "Repeat policy: pair or overlap (default pair)")
		retries  = flag.Int("retries", -1, "Repeat retries before a repeat is accepted (default 3)")
		exact    = flag.Bool("exact", false, "Keep exact ratings next to the ledger")
		progress = flag.Int("progress", 0, "Log progress every N votes")
		verbose  = flag.Bool("verbose", false, "Log every vote")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithLevel(level)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := simulation.Run(ctx, simulation.Config{
		Items:    *items,
		Votes:    *votes,
		Noise:    *noise,
		Spread:   *spread,
		Seed:     *seed,
		Dir:      *dir,
		Keep:     *keep,
		Driver:   *driver,
		Timeout:  *timeout,
		Output:   *output,
		Verbose:  *verbose,
		TopN:     *top,
		KFactor:  *kFactor,
		Policy:   *policy,
		Retries:  *retries,
		Exact:    *exact,
		Progress: *progress,
	})
	if err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	fmt.Printf("items %s, votes %s (%s failed, %s upsets) in %s, %.0f votes/s\n",
		humanize.Comma(int64(report.Items)),
		humanize.Comma(int64(report.Votes)),
		humanize.Comma(int64(report.Failures)),
		humanize.Comma(int64(report.Upsets)),
		report.Duration.Round(time.Millisecond),
		report.VotesPerSec)
	fmt.Printf("spearman %.3f, matchups min %d / mean %.1f / max %d\n",
		report.Spearman, report.MinMatchups, report.MeanMatchups, report.MaxMatchups)
	for _, s := range report.Top {
		fmt.Printf("%5s  %-40s %8.1f  strength %7.1f\n", humanize.Ordinal(s.Rank), s.Reference, s.Rating, s.Strength)
	}
}
