package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okian/elorank/internal/adapters/persistence"
	"github.com/okian/elorank/internal/adapters/source"
	"github.com/okian/elorank/internal/adapters/terminal"
	service "github.com/okian/elorank/internal/app"
	"github.com/okian/elorank/internal/config"
	"github.com/okian/elorank/internal/domain/elo"
	"github.com/okian/elorank/internal/domain/scheduler"
	"github.com/okian/elorank/pkg/logger"
)

var errNoSession = errors.New("no ranking session found")

// cli holds what every subcommand shares once flags are parsed.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "elorank <dir>",
		Short: "Rank the files of a directory by pairwise votes",
		Long: "elorank shows two items at a time and keeps an Elo rating per item.\n" +
			"Ratings live in the file names of a working area inside <dir>, so a\n" +
			"session can be stopped at any point and resumed later.",
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE:              c.runTerminal,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (overrides $"+config.EnvConfigPath+")")
	root.AddCommand(c.serveCmd(), c.standingsCmd())
	return root
}

// setup loads configuration and sends logs to stderr so they never mix with
// the interactive output.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context(), config.WithFile(c.configPath))
	if err != nil {
		return err
	}
	if err := logger.Init(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(cfg.LogLevel),
	); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	c.cfg = cfg
	return nil
}

// openSession wires a session over dir. The caller closes the working area.
func (c *cli) openSession(ctx context.Context, dir string) (*service.Session, *persistence.WorkArea, error) {
	layout, err := source.Resolve(dir, c.cfg.WorkDirName)
	if err != nil {
		return nil, nil, err
	}
	area, err := persistence.Open(ctx, layout.WorkArea,
		persistence.WithLedgerName(c.cfg.LedgerName),
		persistence.WithExactRatings(c.cfg.ExactRatings, c.cfg.RatingsDBName),
	)
	if err != nil {
		return nil, nil, err
	}

	provider := source.NewDirProvider(layout.Source, source.WithExtensions(c.cfg.Extensions))
	sched := scheduler.New(
		scheduler.WithSeed(c.cfg.Seed),
		scheduler.WithMaxRepeatRetries(c.cfg.MaxRepeatRetries),
		scheduler.WithRepeatPolicy(scheduler.RepeatPolicy(c.cfg.RepeatPolicy)),
	)
	session := service.NewSession(area, provider,
		service.WithScheduler(sched),
		service.WithRater(elo.New(elo.WithK(c.cfg.KFactor))),
		service.WithInitialRating(c.cfg.InitialRating),
	)
	return session, area, nil
}

func (c *cli) runTerminal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	session, area, err := c.openSession(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = area.Close() }()
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		return err
	}

	term := terminal.New(session,
		terminal.WithInput(cmd.InOrStdin()),
		terminal.WithOutput(cmd.OutOrStdout()),
	)
	done := make(chan error, 1)
	go func() { done <- term.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Reading stdin cannot be interrupted; wait only for a vote in flight.
		session.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "\nInterrupted, progress is saved.")
		return nil
	}
}

func (c *cli) standingsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "standings <dir>",
		Short: "Print the standings of an existing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// Inspecting must not leave a working area behind.
			layout, err := source.Locate(args[0], c.cfg.WorkDirName)
			if err != nil {
				return err
			}
			if _, err := os.Stat(filepath.Join(layout.WorkArea, c.cfg.LedgerName)); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("%w in %s", errNoSession, layout.WorkArea)
				}
				return err
			}

			session, area, err := c.openSession(ctx, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = area.Close() }()
			defer session.Close()

			if err := session.Start(ctx); err != nil {
				return err
			}
			if limit < 1 {
				limit = session.Count(ctx)
			}
			entries, err := session.Standings(ctx, limit)
			if err != nil {
				return err
			}
			return terminal.WriteStandings(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of rows to print (0 prints all)")
	return cmd
}
