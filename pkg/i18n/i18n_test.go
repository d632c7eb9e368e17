package i18n

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurodesk/directive/pkg/directive"
)

const sample = `
en:
  Welcome: Welcome
fr:
  Welcome: Bienvenue
  Save 50%: Économisez 50%
  Sign in: Se connecter
pt-BR:
  Welcome: Bem-vindo
`

func mustCatalog(t *testing.T, locale string, opts ...Option) *Catalog {
	t.Helper()
	entries, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	c, err := NewCatalog(entries, locale, opts...)
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}
	return c
}

func TestCatalogTranslate(t *testing.T) {
	tests := []struct {
		locale string
		key    string
		want   string
	}{
		{"fr", "Welcome", "Bienvenue"},
		{"fr-CA", "Welcome", "Bienvenue"},
		{"fr", "Save 50%", "Économisez 50%"},
		{"pt-BR", "Welcome", "Bem-vindo"},
		{"en-GB", "Welcome", "Welcome"},
		{"fr", "Unknown key", "Unknown key"},
		{"ja", "Welcome", "Welcome"},
	}
	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.key, func(t *testing.T) {
			got, err := mustCatalog(t, tt.locale).Translate(context.Background(), tt.key)
			if err != nil {
				t.Fatalf("Translate error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCatalogMatch(t *testing.T) {
	if c := mustCatalog(t, "fr-CA"); !c.Matched() || c.Locale().String() != "fr" {
		t.Fatalf("fr-CA matched %v (%v)", c.Locale(), c.Matched())
	}
	if c := mustCatalog(t, "ja"); c.Matched() {
		t.Fatalf("ja should not match, got %v", c.Locale())
	}
}

func TestCatalogStrict(t *testing.T) {
	c := mustCatalog(t, "fr", Strict())
	if _, err := c.Translate(context.Background(), "Welcome"); err != nil {
		t.Fatalf("present key failed: %v", err)
	}
	_, err := c.Translate(context.Background(), "Log out")
	var miss *MissingError
	if !errors.As(err, &miss) {
		t.Fatalf("err = %v, want *MissingError", err)
	}
	if miss.Key != "Log out" || miss.Locale != "fr" {
		t.Fatalf("missing error = %+v", miss)
	}
}

func TestCatalogCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := mustCatalog(t, "fr").Translate(ctx, "Welcome"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestCatalogMissing(t *testing.T) {
	got := mustCatalog(t, "fr").Missing([]string{"Welcome", "Log out", "Help", "Log out"})
	if diff := cmp.Diff([]string{"Help", "Log out"}, got); diff != "" {
		t.Fatalf("Missing() mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogInRenderer(t *testing.T) {
	tpl := directive.MustParse("<a>@(Sign  in)</a> @{t('Welcome')}")
	out, err := directive.NewRenderer(mustCatalog(t, "fr")).Render(context.Background(), tpl, nil, nil)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "<a>Se connecter</a> Bienvenue" {
		t.Fatalf("got %q", out)
	}

	_, err = directive.NewRenderer(mustCatalog(t, "fr", Strict())).Render(context.Background(), directive.MustParse("@(Nope)"), nil, nil)
	var miss *MissingError
	var rerr *directive.RenderError
	if !errors.As(err, &miss) || !errors.As(err, &rerr) {
		t.Fatalf("err = %v", err)
	}
}

func TestIdentity(t *testing.T) {
	got, err := Identity.Translate(context.Background(), "as is")
	if err != nil || got != "as is" {
		t.Fatalf("Identity = %q, %v", got, err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i18n.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if entries["fr"]["Sign in"] != "Se connecter" {
		t.Fatalf("entries = %v", entries)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	empty, err := Load(strings.NewReader(""))
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty input = %v, %v", empty, err)
	}
}

func TestNewCatalogErrors(t *testing.T) {
	if _, err := NewCatalog(Entries{}, "not a locale!"); err == nil {
		t.Fatal("expected bad requested locale error")
	}
	if _, err := NewCatalog(Entries{"??": {"a": "b"}}, "en"); err == nil {
		t.Fatal("expected bad entry locale error")
	}
}
