package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConverter(t *testing.T) {
	for _, f := range []Format{FormatText, FormatMarkdown, ""} {
		if _, err := NewConverter(f); err != nil {
			t.Errorf("NewConverter(%q) error: %v", f, err)
		}
	}
	if _, err := NewConverter("pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteToText(t *testing.T) {
	var buf strings.Builder
	if err := NewWriter(nil).WriteTo(&buf, "# not converted"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "# not converted" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWriteToMarkdown(t *testing.T) {
	conv, err := NewConverter(FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	var buf strings.Builder
	if err := NewWriter(conv).WriteTo(&buf, "# Title\n\n- a\n- b\n\n<span>raw</span>\n"); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{"<h1>Title</h1>", "<li>a</li>", "<span>raw</span>"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q lacks %q", got, want)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.txt")
	w := NewWriter(nil)
	if err := w.WriteFile(path, "first"); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := w.WriteFile(path, "second"); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Fatalf("file = %q", data)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}
