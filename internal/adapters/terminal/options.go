package terminal

import (
	"io"

	"github.com/okian/elorank/pkg/logger"
)

// DefaultStandingsLimit is how many rows the "t" command prints.
const DefaultStandingsLimit = 20

// Option applies a configuration option to the Terminal.
type Option func(*Terminal)

// WithInput sets the stream commands are read from.
func WithInput(r io.Reader) Option {
	return func(t *Terminal) {
		t.in = r
	}
}

// WithOutput sets the stream pairs and results are written to.
func WithOutput(w io.Writer) Option {
	return func(t *Terminal) {
		if w != nil {
			t.out = w
		}
	}
}

// WithStandingsLimit sets how many rows the standings command prints.
func WithStandingsLimit(n int) Option {
	return func(t *Terminal) {
		if n > 0 {
			t.standingsLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.logger = l
		}
	}
}
