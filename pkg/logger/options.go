package logger

import "io"

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type settings struct {
	writer io.Writer
	format string
	level  string
}

// Option configures Init.
type Option func(*settings)

// WithWriter sends log records to w instead of stdout.
// The terminal front end uses this to keep stdout free for prompts.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.writer = w
		}
	}
}

// WithFormat selects the record encoding: "text" or "json".
func WithFormat(format string) Option {
	return func(s *settings) { s.format = format }
}

// WithLevel sets the initial level (debug, info, warn, error).
func WithLevel(level string) Option {
	return func(s *settings) { s.level = level }
}
