// Package templates loads, caches and watches directive templates.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/neurodesk/directive/pkg/directive"
)

// builtinFiles holds the stock partials shipped with the module.
//
//go:embed builtin/*.tpl
var builtinFiles embed.FS

// Builtin returns the stock partials as a file system rooted at their
// directory.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtinFiles, "builtin")
	if err != nil {
		panic(err)
	}
	return sub
}

// DefaultExtension is appended to names that have no extension.
const DefaultExtension = ".tpl"

type source struct {
	fsys fs.FS
	dir  string // on-disk root, empty for other file systems
}

// Store resolves template names against an override directory and then an
// ordered list of sources. Parsed templates are cached until the file
// changes or the cache is invalidated. A Store is safe for concurrent use.
type Store struct {
	overrideDir string
	sources     []source
	ext         string
	logger      *slog.Logger

	mu    sync.RWMutex
	cache map[string]*directive.Template
}

// Option configures a Store.
type Option func(*Store)

// WithDir adds an on-disk template directory. Directories are searched in
// the order they are added.
func WithDir(dir string) Option {
	return func(s *Store) {
		s.sources = append(s.sources, source{fsys: os.DirFS(dir), dir: dir})
	}
}

// WithFS adds a file system source, such as Builtin().
func WithFS(fsys fs.FS) Option {
	return func(s *Store) {
		s.sources = append(s.sources, source{fsys: fsys})
	}
}

// WithOverrideDir sets a directory consulted before every source.
func WithOverrideDir(dir string) Option {
	return func(s *Store) { s.overrideDir = dir }
}

// WithExtension sets the extension appended to bare names.
func WithExtension(ext string) Option {
	return func(s *Store) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.ext = ext
	}
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a store.
func New(opts ...Option) *Store {
	s := &Store{
		ext:   DefaultExtension,
		cache: map[string]*directive.Template{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// ErrNotFound is matched by errors.Is for names no source provides.
var ErrNotFound = errors.New("template not found")

// ParseFailure reports a template that exists but does not parse.
type ParseFailure struct {
	Name string
	Err  error
}

func (e *ParseFailure) Error() string { return fmt.Sprintf("template %q: %v", e.Name, e.Err) }

func (e *ParseFailure) Unwrap() error { return e.Err }

func (s *Store) fileName(name string) (string, error) {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if !fs.ValidPath(name) || name == "." {
		return "", fmt.Errorf("invalid template name %q", name)
	}
	if path.Ext(name) == "" {
		name += s.ext
	}
	return name, nil
}

// Source returns the raw source of name and the location it was read from.
func (s *Store) Source(name string) (src string, origin string, err error) {
	file, err := s.fileName(name)
	if err != nil {
		return "", "", err
	}
	if s.overrideDir != "" {
		p := filepath.Join(s.overrideDir, filepath.FromSlash(file))
		data, err := os.ReadFile(p)
		if err == nil {
			return string(data), p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("reading override %q: %w", p, err)
		}
	}
	for _, src := range s.sources {
		data, err := fs.ReadFile(src.fsys, file)
		if err == nil {
			origin := file
			if src.dir != "" {
				origin = filepath.Join(src.dir, filepath.FromSlash(file))
			}
			return string(data), origin, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("reading %q: %w", file, err)
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Get returns the parsed template for name, parsing it on first use.
func (s *Store) Get(name string) (*directive.Template, error) {
	file, err := s.fileName(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	tpl, ok := s.cache[file]
	s.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	src, origin, err := s.Source(name)
	if err != nil {
		return nil, err
	}
	tpl, err = directive.Parse(src)
	if err != nil {
		return nil, &ParseFailure{Name: name, Err: err}
	}
	s.logger.Debug("parsed template", "name", file, "origin", origin)

	s.mu.Lock()
	s.cache[file] = tpl
	s.mu.Unlock()
	return tpl, nil
}

// Resolve implements directive.Resolver.
func (s *Store) Resolve(name string) (*directive.Template, error) {
	return s.Get(name)
}

// Invalidate drops the cached parse of name.
func (s *Store) Invalidate(name string) {
	file, err := s.fileName(name)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.cache, file)
	s.mu.Unlock()
}

// InvalidateAll empties the parse cache.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	s.cache = map[string]*directive.Template{}
	s.mu.Unlock()
}

// Cached reports whether name has a cached parse.
func (s *Store) Cached(name string) bool {
	file, err := s.fileName(name)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[file]
	return ok
}

// Names lists every template name the store can resolve, without the
// default extension, sorted.
func (s *Store) Names() ([]string, error) {
	seen := map[string]struct{}{}
	add := func(fsys fs.FS) error {
		return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || path.Ext(p) != s.ext {
				return nil
			}
			seen[strings.TrimSuffix(p, s.ext)] = struct{}{}
			return nil
		})
	}
	if s.overrideDir != "" {
		if err := add(os.DirFS(s.overrideDir)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("listing overrides: %w", err)
		}
	}
	for _, src := range s.sources {
		if err := add(src.fsys); err != nil {
			return nil, fmt.Errorf("listing templates: %w", err)
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

var _ directive.Resolver = (*Store)(nil)
