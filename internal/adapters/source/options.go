package source

import (
	"strings"

	"github.com/okian/elorank/pkg/logger"
)

// DefaultExtensions are the file types discovered when none are configured.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"} //nolint:gochecknoglobals // read-only defaults

// Option applies a configuration option to the DirProvider.
type Option func(*DirProvider)

// WithExtensions sets the accepted file extensions. Matching ignores case.
func WithExtensions(exts []string) Option {
	return func(p *DirProvider) {
		if len(exts) == 0 {
			return
		}
		p.extensions = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			p.extensions[e] = struct{}{}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *DirProvider) {
		if l != nil {
			p.logger = l
		}
	}
}
