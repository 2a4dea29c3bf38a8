// Package source discovers the items of a session and copies them into the
// working area.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/elorank/pkg/logger"
)

// DefaultWorkDirName is the working area created inside the source directory.
const DefaultWorkDirName = "Elo"

// Provider supplies the initial item references.
type Provider interface {
	// Discover returns references in a stable order.
	Discover(ctx context.Context) ([]string, error)
	// Materialize places a copy of the referenced item at dest.
	Materialize(ctx context.Context, reference, dest string) error
}

// Layout is the pair of directories a session runs against.
type Layout struct {
	Source   string
	WorkArea string
}

// Resolve maps the invocation target to a layout. A target whose base name is
// workDirName is an existing working area resumed in place, with its parent as
// the source. Any other directory is a source whose working area is created
// inside it.
func Resolve(target, workDirName string) (Layout, error) {
	layout, err := Locate(target, workDirName)
	if err != nil {
		return Layout{}, err
	}
	if err := os.MkdirAll(layout.WorkArea, 0o755); err != nil { //nolint:gosec // user-owned working area
		return Layout{}, fmt.Errorf("%w: create working area: %v", ErrInvalidSource, err)
	}
	return layout, nil
}

// Locate is Resolve without creating the working area, for callers that only
// inspect an existing session.
func Locate(target, workDirName string) (Layout, error) {
	if workDirName == "" {
		workDirName = DefaultWorkDirName
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return Layout{}, fmt.Errorf("%w: %s: %v", ErrInvalidSource, target, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Layout{}, fmt.Errorf("%w: %s: %v", ErrInvalidSource, target, err)
	}
	if !info.IsDir() {
		return Layout{}, fmt.Errorf("%w: %s is not a directory", ErrInvalidSource, target)
	}

	if filepath.Base(abs) == workDirName {
		return Layout{Source: filepath.Dir(abs), WorkArea: abs}, nil
	}

	return Layout{Source: abs, WorkArea: filepath.Join(abs, workDirName)}, nil
}

// DirProvider discovers files in one directory.
type DirProvider struct {
	dir        string
	extensions map[string]struct{}
	logger     logger.Logger
}

var _ Provider = (*DirProvider)(nil)

// NewDirProvider returns a provider over dir.
func NewDirProvider(dir string, opts ...Option) *DirProvider {
	p := &DirProvider{dir: dir, logger: logger.Get().Named("source")}
	WithExtensions(DefaultExtensions)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Discover lists regular files with an accepted extension in lexical order.
// Names that cannot be written to the ledger are skipped.
func (p *DirProvider) Discover(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	var refs []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if _, ok := p.extensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		if strings.Contains(name, "::") || strings.ContainsAny(name, "\r\n") {
			p.logger.Warn(ctx, "skipping file with reserved characters", logger.String("file", name))
			continue
		}
		refs = append(refs, name)
	}

	p.logger.Debug(ctx, "discovered items", logger.String("dir", p.dir), logger.Int("count", len(refs)))
	return refs, nil
}

// Materialize copies the referenced file to dest, replacing any existing file.
func (p *DirProvider) Materialize(ctx context.Context, reference, dest string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(filepath.Join(p.dir, reference))
	if err != nil {
		return fmt.Errorf("open %s: %w", reference, err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s: %w", reference, err)
	}
	return nil
}
