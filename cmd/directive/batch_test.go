package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunBatch(t *testing.T) {
	e, dir := newTestEnv(t, map[string]string{
		"templates/a.tpl":     "A @{M.n}",
		"templates/sub/b.tpl": "B @{M.n}",
		"model.json":          `{"n": 7}`,
	}, nil)
	out := filepath.Join(dir, "out")
	opts := &batchFlags{outDir: out, namePattern: "@{index}-@{base}.txt"}
	opts.model = filepath.Join(dir, "model.json")

	if err := runBatch(context.Background(), e, []string{"a", "sub/b"}, opts); err != nil {
		t.Fatalf("runBatch error: %v", err)
	}
	for name, want := range map[string]string{"0-a.txt": "A 7", "1-b.txt": "B 7"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if string(data) != want {
			t.Fatalf("%s = %q, want %q", name, data, want)
		}
	}
}

func TestRunBatchDefaultPattern(t *testing.T) {
	e, dir := newTestEnv(t, map[string]string{
		"templates/doc.tpl": "# @{M.title}",
	}, func(c *directiveConfig) { c.OutputFormat = "markdown" })
	out := filepath.Join(dir, "out")
	if err := runBatch(context.Background(), e, []string{"doc"}, &batchFlags{outDir: out}); err != nil {
		t.Fatalf("runBatch error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(out, "doc.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<h1>") {
		t.Fatalf("markdown not converted: %q", data)
	}
}

func TestRunBatchFailure(t *testing.T) {
	e, dir := newTestEnv(t, map[string]string{
		"templates/good.tpl": "ok",
		"templates/bad.tpl":  "@{foreach x in y}",
	}, nil)
	out := filepath.Join(dir, "out")
	err := runBatch(context.Background(), e, []string{"bad"}, &batchFlags{outDir: out})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(filepath.Join(out, "bad.txt")); !os.IsNotExist(statErr) {
		t.Fatalf("output written for failed template: %v", statErr)
	}

	if err := runBatch(context.Background(), e, []string{"good"}, &batchFlags{outDir: out, namePattern: "@{if}"}); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}
