package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment variable the loader reads.
	EnvPrefix = "ELORANK_"
	// EnvConfigPath names the variable holding the YAML file path.
	EnvConfigPath = EnvPrefix + "CONFIG"
	// DefaultDotEnv is read when present.
	DefaultDotEnv = ".env"
)

type loadSettings struct {
	path   string
	dotEnv string
}

// LoadOption customizes Load.
type LoadOption func(*loadSettings)

// WithFile loads the YAML file at path, taking precedence over ELORANK_CONFIG.
func WithFile(path string) LoadOption {
	return func(s *loadSettings) {
		if path != "" {
			s.path = path
		}
	}
}

// WithDotEnv reads environment variables from path when it exists.
func WithDotEnv(path string) LoadOption {
	return func(s *loadSettings) {
		s.dotEnv = path
	}
}

// Load builds the configuration from defaults, file and environment, then
// validates it. Validation failures wrap ErrInvalidConfig.
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	settings := loadSettings{dotEnv: DefaultDotEnv}
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.dotEnv != "" {
		if err := godotenv.Load(settings.dotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, settings.dotEnv, err)
		}
	}

	base := New(ctx)

	k := koanf.New(".")

	path := settings.path
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if key == "extensions" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// Decoding into a non-empty slice only overwrites its head.
	if k.Exists("extensions") {
		cfg.Extensions = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// splitList turns "png, jpg" into ["png" "jpg"].
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
