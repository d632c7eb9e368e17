package validator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAll(t *testing.T) {
	first := errors.New("first")
	if err := All(nil, first, errors.New("second")); err != first {
		t.Fatalf("All = %v, want first", err)
	}
	if err := All(nil, nil); err != nil {
		t.Fatalf("All = %v", err)
	}
}

func TestMapDescribesPosition(t *testing.T) {
	err := Map([]string{"a", "", "c"}, NotEmpty, "dirs")
	if err == nil || err.Error() != "dirs[1] must not be empty" {
		t.Fatalf("err = %v", err)
	}
}

func TestMapDictIsOrdered(t *testing.T) {
	items := map[string]string{"b": "", "a": "", "c": "ok"}
	for i := 0; i < 10; i++ {
		err := MapDict(items, func(k, v string) error {
			return NotEmpty(v, k)
		}, "entries")
		if err == nil || err.Error() != "entries: a must not be empty" {
			t.Fatalf("err = %v", err)
		}
	}
}

func TestChecks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		err     error
		wantErr string
	}{
		{"not empty", NotEmpty("x", "name"), ""},
		{"empty", NotEmpty("", "name"), "name must not be empty"},
		{"no duplicates", NoDuplicates([]int{1, 2, 3}, "ids"), ""},
		{"duplicates", NoDuplicates([]string{"a", "b", "a"}, "ids"), "duplicate value: a"},
		{"allowed", MatchesAllowed("text", []string{"text", "markdown"}, "format"), ""},
		{"not allowed", MatchesAllowed("pdf", []string{"text", "markdown"}, "format"), "must be one of"},
		{"positive", Positive(4, "parallelism"), ""},
		{"zero", Positive(0, "parallelism"), "must be positive"},
		{"plain", HasNoDirective(".tpl", "extension"), ""},
		{"directive", HasNoDirective("@{x}", "extension"), "must not contain template directives"},
		{"localization", HasNoDirective("@(x)", "extension"), "must not contain template directives"},
		{"valid template", ValidTemplate("@{name}.html", "pattern"), ""},
		{"invalid template", ValidTemplate("@{if x}", "pattern"), "pattern: invalid template"},
		{"dir", IsDir(dir, "template dir"), ""},
		{"empty dir", IsDir("", "template dir"), ""},
		{"file", IsDir(file, "template dir"), "is not a directory"},
		{"missing", IsDir(filepath.Join(dir, "none"), "template dir"), "template dir:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr == "" {
				if tt.err != nil {
					t.Fatalf("unexpected error: %v", tt.err)
				}
				return
			}
			if tt.err == nil || !strings.Contains(tt.err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want it to contain %q", tt.err, tt.wantErr)
			}
		})
	}
}

type item struct{ name string }

func (i item) Validate() error { return NotEmpty(i.name, "name") }

func TestEach(t *testing.T) {
	if err := Each([]item{{"a"}, {""}}); err == nil || err.Error() != "item 1: name must not be empty" {
		t.Fatalf("err = %v", err)
	}
}
