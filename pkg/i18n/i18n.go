// Package i18n provides translators for the @(...) localization directive.
package i18n

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"github.com/neurodesk/directive/pkg/directive"
)

// Identity returns every key unchanged.
var Identity directive.Translator = directive.TranslatorFunc(func(ctx context.Context, key string) (string, error) {
	return key, ctx.Err()
})

// MissingError is returned by a strict Catalog for keys it cannot translate.
type MissingError struct {
	Locale string
	Key    string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("no %s translation for %q", e.Locale, e.Key)
}

// Entries maps a BCP 47 locale to its key/text pairs.
type Entries map[string]map[string]string

// Load decodes YAML translation entries from r.
//
//	fr:
//	  Welcome: Bienvenue
func Load(r io.Reader) (Entries, error) {
	var e Entries
	if err := yaml.NewDecoder(r).Decode(&e); err != nil {
		if err == io.EOF {
			return Entries{}, nil
		}
		return nil, fmt.Errorf("decoding translations: %w", err)
	}
	return e, nil
}

// LoadFile decodes YAML translation entries from the named file.
func LoadFile(path string) (Entries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening translations: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Option configures a Catalog.
type Option func(*Catalog)

// Strict makes missing keys an error instead of passing the key through.
func Strict() Option {
	return func(c *Catalog) { c.strict = true }
}

// WithLogger sets the logger that records missing keys at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// Catalog translates keys for one locale, chosen from the locales present
// in Entries by language matching.
type Catalog struct {
	tag     language.Tag
	matched bool
	keys    map[string]struct{}
	cat     catalog.Catalog
	strict  bool
	logger  *slog.Logger
}

// NewCatalog builds a catalog from entries and selects the best match for
// locale. When no locale matches, every key is missing.
func NewCatalog(entries Entries, locale string, opts ...Option) (*Catalog, error) {
	want, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", locale, err)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	b := catalog.NewBuilder()
	tags := make([]language.Tag, 0, len(names))
	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("parsing translation locale %q: %w", name, err)
		}
		tags = append(tags, tag)
		for key, text := range entries[name] {
			if err := b.SetString(tag, key, escapeVerbs(text)); err != nil {
				return nil, fmt.Errorf("adding %s translation for %q: %w", name, key, err)
			}
		}
	}

	c := &Catalog{tag: want, cat: b, keys: map[string]struct{}{}}
	if len(tags) > 0 {
		_, idx, conf := language.NewMatcher(tags).Match(want)
		if conf != language.No {
			c.tag = tags[idx]
			c.matched = true
			for key := range entries[names[idx]] {
				c.keys[key] = struct{}{}
			}
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// Locale returns the selected locale, or the requested one when nothing
// matched.
func (c *Catalog) Locale() language.Tag { return c.tag }

// Matched reports whether any translation locale matched the request.
func (c *Catalog) Matched() bool { return c.matched }

// Translate returns the text for key in the selected locale.
func (c *Catalog) Translate(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, ok := c.keys[key]; !ok {
		if c.strict {
			return "", &MissingError{Locale: c.tag.String(), Key: key}
		}
		c.logger.Debug("missing translation", "locale", c.tag.String(), "key", key)
		return key, nil
	}
	return message.NewPrinter(c.tag, message.Catalog(c.cat)).Sprintf(key), nil
}

// Missing returns the keys without a translation in the selected locale,
// sorted and without duplicates.
func (c *Catalog) Missing(keys []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, k := range keys {
		if _, ok := c.keys[k]; ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// escapeVerbs keeps translations literal when they pass through the
// printer's formatting.
func escapeVerbs(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
