package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/elorank/internal/adapters/persistence"
	"github.com/okian/elorank/internal/domain/elo"
	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/scheduler"
	"github.com/okian/elorank/pkg/logger"
)

// Default run parameters.
const (
	DefaultItems   = 50
	DefaultVotes   = 1000
	DefaultSpread  = 200.0
	DefaultTimeout = 10 * time.Second
	DefaultTopN    = 10

	directoryPermission = 0o750
)

func (c Config) withDefaults() Config {
	if c.Items == 0 {
		c.Items = DefaultItems
	}
	if c.Spread == 0 {
		c.Spread = DefaultSpread
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.Driver == "" {
		c.Driver = DriverSession
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.KFactor <= 0 {
		c.KFactor = elo.DefaultK
	}
	if c.Policy == "" {
		c.Policy = string(scheduler.RepeatPair)
	}
	if c.Retries < 0 {
		c.Retries = scheduler.DefaultMaxRepeatRetries
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.Items < 2:
		return fmt.Errorf("%w: need at least 2 items, got %d", ErrInvalidConfig, c.Items)
	case c.Votes < 0:
		return fmt.Errorf("%w: negative vote count", ErrInvalidConfig)
	case c.Noise < 0:
		return fmt.Errorf("%w: negative noise", ErrInvalidConfig)
	case c.Driver != DriverSession && c.Driver != DriverHTTP:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, c.Driver)
	case c.Policy != string(scheduler.RepeatPair) && c.Policy != string(scheduler.RepeatOverlap):
		return fmt.Errorf("%w: unknown repeat policy %q", ErrInvalidConfig, c.Policy)
	}
	return nil
}

// Run executes a complete simulation: it generates items, casts cfg.Votes
// votes through the chosen driver and evaluates the final standings against
// the hidden strengths. Votes that fail to persist are counted, not fatal.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("simulation")
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible synthetic voters

	dir, cleanup, err := prepareDir(cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	items := generateItems(rng, cfg.Items, cfg.Spread)
	if err := writeItems(ctx, dir, items); err != nil {
		return nil, err
	}
	strengths := make(map[string]float64, len(items))
	for _, it := range items {
		strengths[it.Name] = it.Strength
	}

	log.Info(ctx, "starting simulation",
		logger.String("dir", dir),
		logger.String("driver", cfg.Driver),
		logger.Int("items", cfg.Items),
		logger.Int("votes", cfg.Votes),
		logger.Float64("noise", cfg.Noise),
		logger.Any("seed", cfg.Seed))

	drv, err := openDriver(ctx, cfg, dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Warn(ctx, "failed to close driver", logger.Error(err))
		}
	}()

	report := &Report{Items: cfg.Items, Dir: dir, Driver: cfg.Driver}
	start := time.Now()
	for i := 0; i < cfg.Votes; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		left, right, err := drv.Pair(ctx)
		if err != nil {
			return nil, fmt.Errorf("vote %d: %w", i, err)
		}
		ls, lok := strengths[left.Reference]
		rs, rok := strengths[right.Reference]
		if !lok || !rok {
			return nil, fmt.Errorf("%w: %s / %s", ErrUnknownItem, left.Reference, right.Reference)
		}

		winner, upset := decide(rng, cfg.Noise, ls, rs)
		if err := drv.Vote(ctx, model.Pair{left.ID, right.ID}, winner); err != nil {
			if errors.Is(err, persistence.ErrPersistence) || errors.Is(err, ErrVoteRejected) {
				report.Failures++
				log.Warn(ctx, "vote failed", logger.Int("vote", i), logger.Error(err))
				continue
			}
			return nil, fmt.Errorf("vote %d: %w", i, err)
		}
		report.Votes++
		if upset {
			report.Upsets++
		}
		if cfg.Verbose {
			log.Debug(ctx, "vote cast",
				logger.String("left", left.ID),
				logger.String("right", right.ID),
				logger.Int("winner", winner),
				logger.Bool("upset", upset))
		}
		if cfg.Progress > 0 && (i+1)%cfg.Progress == 0 {
			log.Info(ctx, "progress", logger.Int("votes", i+1))
		}
	}
	report.Duration = time.Since(start)
	if secs := report.Duration.Seconds(); secs > 0 {
		report.VotesPerSec = float64(report.Votes) / secs
	}

	entries, err := drv.Standings(ctx, cfg.Items)
	if err != nil {
		return nil, fmt.Errorf("standings: %w", err)
	}
	if err := evaluate(report, entries, strengths, cfg.TopN); err != nil {
		return nil, err
	}

	log.Info(ctx, "simulation finished",
		logger.Int("votes", report.Votes),
		logger.Int("failures", report.Failures),
		logger.Int("upsets", report.Upsets),
		logger.Float64("spearman", report.Spearman),
		logger.Int("minMatchups", report.MinMatchups),
		logger.Int("maxMatchups", report.MaxMatchups),
		logger.Duration("duration", report.Duration))

	if cfg.Output != "" {
		if err := saveReport(ctx, cfg.Output, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	return report, nil
}

// prepareDir returns the source directory and a cleanup that removes it when
// it was created here and not kept.
func prepareDir(cfg Config) (string, func(), error) {
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, directoryPermission); err != nil {
			return "", nil, fmt.Errorf("create %s: %w", cfg.Dir, err)
		}
		return cfg.Dir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "elorank-sim-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	if cfg.Keep {
		return dir, func() {}, nil
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// saveReport writes the report as indented JSON.
func saveReport(ctx context.Context, path string, report *Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Get().Info(ctx, "report saved to file", logger.String("filename", path))
	return nil
}
