package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neurodesk/directive/pkg/directive"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newTestEnv builds an env over a temporary project directory holding the
// given files.
func newTestEnv(t *testing.T, files map[string]string, edit func(*directiveConfig)) (*env, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, filepath.Join(dir, name), content)
	}
	cfg := defaultConfig()
	cfg.dir = dir
	cfg.TemplateDirs = []string{"templates"}
	cfg.CacheDir = "cache"
	if err := os.MkdirAll(filepath.Join(dir, "templates"), 0o755); err != nil {
		t.Fatal(err)
	}
	if edit != nil {
		edit(&cfg)
	}
	e, err := newEnv(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newEnv error: %v", err)
	}
	return e, dir
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "directive.yaml")
	writeFile(t, path, `
template_dirs: [views, partials]
extension: html
locale: fr-CA
parallelism: 2
queries:
  recent: SELECT * FROM posts ORDER BY id DESC LIMIT 5
`)
	cfg := defaultConfig()
	if err := cfg.loadConfig(path); err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if cfg.Extension != "html" || cfg.Locale != "fr-CA" || cfg.Parallelism != 2 {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.OutputFormat != "text" {
		t.Fatalf("default output format lost: %q", cfg.OutputFormat)
	}
	if got := cfg.path("views"); got != filepath.Join(dir, "views") {
		t.Fatalf("path(views) = %q", got)
	}
	if got := cfg.path("/abs"); got != "/abs" {
		t.Fatalf("path(/abs) = %q", got)
	}

	writeFile(t, path, "unknown_key: 1\n")
	if err := cfg.loadConfig(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "")
	if err := cfg.loadConfig(empty); err != nil {
		t.Fatalf("empty config: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		edit    func(*directiveConfig)
		wantErr string
	}{
		{"defaults", func(c *directiveConfig) {}, ""},
		{"missing dir", func(c *directiveConfig) { c.TemplateDirs = []string{"nope"} }, "template_dirs[0]"},
		{"duplicate dir", func(c *directiveConfig) { c.TemplateDirs = []string{".", "."} }, "duplicate"},
		{"bad format", func(c *directiveConfig) { c.OutputFormat = "pdf" }, "output_format"},
		{"bad locale", func(c *directiveConfig) { c.Locale = "??" }, "locale"},
		{"zero parallelism", func(c *directiveConfig) { c.Parallelism = 0 }, "parallelism"},
		{"directive extension", func(c *directiveConfig) { c.Extension = "@{x}" }, "extension"},
		{"empty query", func(c *directiveConfig) { c.Queries = map[string]string{"q": ""} }, `query "q"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.dir = dir
			tt.edit(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadModel(t *testing.T) {
	e, dir := newTestEnv(t, map[string]string{
		"m.json": `{"score": 95, "tags": ["a"]}`,
		"m.yaml": "score: 95\ntags: [a]\n",
		"m.star": "score = 90 + 5\ntags = ['a']\n",
		"m.txt":  "score",
	}, nil)

	want := directive.FromGo(map[string]any{"score": 95, "tags": []any{"a"}})
	for _, name := range []string{"m.json", "m.yaml", "m.star"} {
		t.Run(name, func(t *testing.T) {
			got, err := e.loadModel(context.Background(), filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("loadModel error: %v", err)
			}
			if !directive.Equal(got, want) {
				t.Fatalf("model = %s, want %s", got, want)
			}
		})
	}

	if _, err := e.loadModel(context.Background(), filepath.Join(dir, "m.txt")); err == nil {
		t.Fatal("expected unsupported format error")
	}
	if m, err := e.loadModel(context.Background(), ""); err != nil || m.String() != "{}" {
		t.Fatalf("empty path = %v, %v", m, err)
	}
}

func TestLoadTemplateFileOrStore(t *testing.T) {
	e, dir := newTestEnv(t, map[string]string{
		"templates/page.tpl": "store @{M.x}",
		"loose.txt":          "file @{M.x}",
		"broken.txt":         "\n @{if x}",
	}, nil)

	cases := []struct{ arg, want string }{
		{"page", "store 1"},
		{filepath.Join(dir, "loose.txt"), "file 1"},
	}
	for _, c := range cases {
		arg, want := c.arg, c.want
		tpl, err := e.loadTemplate(arg)
		if err != nil {
			t.Fatalf("loadTemplate(%q) error: %v", arg, err)
		}
		out, err := e.renderer.Render(context.Background(), tpl, directive.FromGo(map[string]any{"x": 1}), nil)
		if err != nil || out != want {
			t.Fatalf("render %q = %q, %v", arg, out, err)
		}
	}

	_, err := e.loadTemplate(filepath.Join(dir, "broken.txt"))
	if err == nil || !strings.Contains(err.Error(), "broken.txt:2:2:") {
		t.Fatalf("err = %v, want file position", err)
	}
}

func TestRenderWithTranslationsAndRepository(t *testing.T) {
	e, _ := newTestEnv(t, map[string]string{
		"templates/hello.tpl": "@(Hello), @{M.name}!@{if R} @{R.x}@{fi}",
		"i18n.yaml":           "fr:\n  Hello: Bonjour\n",
	}, func(c *directiveConfig) {
		c.Locale = "fr"
		c.Translations = "i18n.yaml"
	})
	tpl, err := e.loadTemplate("hello")
	if err != nil {
		t.Fatal(err)
	}
	out, err := e.renderer.Render(context.Background(), tpl,
		directive.FromGo(map[string]any{"name": "Ada"}), directive.FromGo(map[string]any{"x": "y"}))
	if err != nil {
		t.Fatal(err)
	}
	if out != "Bonjour, Ada! y" {
		t.Fatalf("got %q", out)
	}
}

func TestLoadModelFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "title: Remote\n")
	}))
	defer srv.Close()

	e, dir := newTestEnv(t, nil, nil)
	m, err := e.loadModel(context.Background(), srv.URL+"/model.yaml")
	if err != nil {
		t.Fatalf("loadModel error: %v", err)
	}
	if !directive.Equal(m, directive.Object{"title": directive.String("Remote")}) {
		t.Fatalf("model = %s", m)
	}
	if entries, err := os.ReadDir(filepath.Join(dir, "cache")); err != nil || len(entries) == 0 {
		t.Fatalf("cache not populated: %v", err)
	}
}
