package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/neurodesk/directive/pkg/directive"
	"github.com/neurodesk/directive/pkg/i18n"
	"github.com/neurodesk/directive/pkg/netcache"
	"github.com/neurodesk/directive/pkg/output"
	"github.com/neurodesk/directive/pkg/templates"
	v "github.com/neurodesk/directive/pkg/validator"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "directive.yaml"

type directiveConfig struct {
	TemplateDirs       []string          `yaml:"template_dirs"`
	OverrideDir        string            `yaml:"override_dir,omitempty"`
	Extension          string            `yaml:"extension,omitempty"`
	Builtin            *bool             `yaml:"builtin,omitempty"`
	Locale             string            `yaml:"locale,omitempty"`
	Translations       string            `yaml:"translations,omitempty"`
	StrictTranslations bool              `yaml:"strict_translations,omitempty"`
	OutputFormat       string            `yaml:"output_format,omitempty"`
	Parallelism        int               `yaml:"parallelism,omitempty"`
	Queries            map[string]string `yaml:"queries,omitempty"`
	CacheDir           string            `yaml:"cache_dir,omitempty"`

	// dir is the directory of the config file; relative paths resolve
	// against it.
	dir string
}

func defaultConfig() directiveConfig {
	return directiveConfig{
		TemplateDirs: []string{"."},
		Extension:    templates.DefaultExtension,
		Locale:       "en",
		OutputFormat: string(output.FormatText),
		Parallelism:  4,
		dir:          ".",
	}
}

func (c *directiveConfig) loadConfig(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding config file: %w", err)
	}
	c.dir = filepath.Dir(path)
	return nil
}

func (c *directiveConfig) Validate() error {
	return v.All(
		v.Map(c.TemplateDirs, v.NotEmpty, "template_dirs"),
		v.NoDuplicates(c.TemplateDirs, "template_dirs"),
		v.Map(c.TemplateDirs, func(dir, desc string) error {
			return v.IsDir(c.path(dir), desc)
		}, "template_dirs"),
		v.IsDir(c.path(c.OverrideDir), "override_dir"),
		v.NotEmpty(c.Extension, "extension"),
		v.HasNoDirective(c.Extension, "extension"),
		v.NotEmpty(c.Locale, "locale"),
		validLocale(c.Locale),
		v.MatchesAllowed(c.OutputFormat, output.Formats, "output_format"),
		v.Positive(c.Parallelism, "parallelism"),
		v.MapDict(c.Queries, func(name, query string) error {
			return v.All(
				v.NotEmpty(name, "query name"),
				v.HasNoDirective(name, "query name"),
				v.NotEmpty(query, fmt.Sprintf("query %q", name)),
			)
		}, "queries"),
	)
}

func validLocale(locale string) error {
	if locale == "" {
		return nil
	}
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("locale %q: %w", locale, err)
	}
	return nil
}

// path resolves p against the config file directory. URLs are returned
// unchanged.
func (c *directiveConfig) path(p string) string {
	if p == "" || filepath.IsAbs(p) || netcache.IsURL(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

func (c *directiveConfig) newStore(logger *slog.Logger) *templates.Store {
	opts := []templates.Option{
		templates.WithExtension(c.Extension),
		templates.WithLogger(logger),
	}
	if c.OverrideDir != "" {
		opts = append(opts, templates.WithOverrideDir(c.path(c.OverrideDir)))
	}
	for _, dir := range c.TemplateDirs {
		opts = append(opts, templates.WithDir(c.path(dir)))
	}
	if c.Builtin == nil || *c.Builtin {
		opts = append(opts, templates.WithFS(templates.Builtin()))
	}
	return templates.New(opts...)
}

// newTranslator returns nil when no translations are configured, which
// leaves localization text unchanged.
func (c *directiveConfig) newTranslator(ctx context.Context, cache *netcache.Cache, logger *slog.Logger) (*i18n.Catalog, error) {
	if c.Translations == "" {
		return nil, nil
	}
	path, err := cache.Local(ctx, c.path(c.Translations))
	if err != nil {
		return nil, err
	}
	entries, err := i18n.LoadFile(path)
	if err != nil {
		return nil, err
	}
	opts := []i18n.Option{i18n.WithLogger(logger)}
	if c.StrictTranslations {
		opts = append(opts, i18n.Strict())
	}
	cat, err := i18n.NewCatalog(entries, c.Locale, opts...)
	if err != nil {
		return nil, err
	}
	if !cat.Matched() {
		logger.Warn("no translations match locale", "locale", c.Locale)
	}
	return cat, nil
}

func (c *directiveConfig) newCache(logger *slog.Logger) *netcache.Cache {
	dir := c.path(c.CacheDir)
	if dir == "" {
		dir = netcache.DefaultDir()
	}
	cache := netcache.New(dir)
	cache.Logger = logger
	return cache
}

func (c *directiveConfig) newWriter() (*output.Writer, error) {
	conv, err := output.NewConverter(output.Format(c.OutputFormat))
	if err != nil {
		return nil, err
	}
	return output.NewWriter(conv), nil
}

// env bundles everything a command needs to render.
type env struct {
	cfg      directiveConfig
	logger   *slog.Logger
	store    *templates.Store
	catalog  *i18n.Catalog
	cache    *netcache.Cache
	renderer *directive.Renderer
	writer   *output.Writer
}

func loadEnv(ctx context.Context) (*env, error) {
	cfg := defaultConfig()
	if err := cfg.loadConfig(rootConfigPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || rootConfigPath != defaultConfigPath {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	return newEnv(ctx, cfg, slog.Default())
}

func newEnv(ctx context.Context, cfg directiveConfig, logger *slog.Logger) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	e := &env{
		cfg:    cfg,
		logger: logger,
		store:  cfg.newStore(logger),
		cache:  cfg.newCache(logger),
	}

	cat, err := cfg.newTranslator(ctx, e.cache, logger)
	if err != nil {
		return nil, fmt.Errorf("loading translations: %w", err)
	}
	e.catalog = cat

	e.renderer = &directive.Renderer{Resolver: e.store, Logger: logger}
	if cat != nil {
		e.renderer.Translator = cat
	}

	if e.writer, err = cfg.newWriter(); err != nil {
		return nil, err
	}
	return e, nil
}
