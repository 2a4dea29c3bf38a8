// Package config defines process configuration and its loading.
//
// Values come, in increasing precedence, from defaults, an optional YAML file,
// an optional .env file and ELORANK_* environment variables.
package config

import (
	"context"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address of `serve`, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// KFactor is the Elo K factor.
	KFactor float64 `koanf:"k_factor" validate:"gt=0"`

	// InitialRating is assigned to every item at bootstrap.
	InitialRating float64 `koanf:"initial_rating" validate:"gte=0"`

	// MaxRepeatRetries bounds redraws before a repeated pair is accepted.
	MaxRepeatRetries int `koanf:"max_repeat_retries" validate:"gte=0"`

	// RepeatPolicy is "pair" or "overlap".
	RepeatPolicy string `koanf:"repeat_policy" validate:"oneof=pair overlap"`

	// WorkDirName names the working area created inside the source directory.
	WorkDirName string `koanf:"work_dir_name" validate:"required,excludesall=/"`

	// LedgerName names the ledger file inside the working area.
	LedgerName string `koanf:"ledger_name" validate:"required,excludesall=/"`

	// Extensions lists the file types discovered at bootstrap.
	Extensions []string `koanf:"extensions" validate:"min=1,dive,required"`

	// ExactRatings keeps full-precision ratings next to the ledger.
	ExactRatings bool `koanf:"exact_ratings"`

	// RatingsDBName names the exact-rating database inside the working area.
	RatingsDBName string `koanf:"ratings_db_name" validate:"required_if=ExactRatings true,excludesall=/"`

	// Seed fixes the pair selection sequence; 0 seeds from the clock.
	Seed int64 `koanf:"seed"`

	// QueueSize bounds the command queue of `serve`.
	QueueSize int `koanf:"queue_size" validate:"gt=0"`

	// DedupeSize bounds how many vote ids `serve` remembers.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// MaxLeaderboardLimit caps GET /leaderboard.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gt=0"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		KFactor:             32,
		InitialRating:       1000,
		MaxRepeatRetries:    3,
		RepeatPolicy:        "pair",
		WorkDirName:         "Elo",
		LedgerName:          "mappings.txt",
		Extensions:          []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"},
		ExactRatings:        true,
		RatingsDBName:       "ratings.db",
		QueueSize:           64,
		DedupeSize:          10_000,
		MaxLeaderboardLimit: 100,
	}
}
