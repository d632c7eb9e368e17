package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neurodesk/directive/pkg/directive"
	"github.com/neurodesk/directive/pkg/repository"
	"github.com/neurodesk/directive/pkg/starlark"
	"gopkg.in/yaml.v3"
)

// loadModel reads the M binding from a JSON, YAML or Starlark file or URL.
// An empty name yields an empty object.
func (e *env) loadModel(ctx context.Context, name string) (directive.Value, error) {
	if name == "" {
		return directive.Object{}, nil
	}
	path, err := e.cache.Local(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		m, err := directive.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("decoding model %s: %w", path, err)
		}
		return m, nil
	case ".yaml", ".yml":
		var raw any
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding model %s: %w", path, err)
		}
		return directive.FromGo(raw), nil
	case ".star", ".starlark", ".bzl":
		m, err := starlark.LoadModel(path, data, nil, e.logger)
		if err != nil {
			return nil, fmt.Errorf("evaluating model %s: %w", path, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model format %q", filepath.Ext(path))
	}
}

// loadRepository reads the R binding from a SQLite database file or URL.
// An empty name yields Null.
func (e *env) loadRepository(ctx context.Context, name string) (directive.Value, error) {
	if name == "" {
		return directive.Null{}, nil
	}
	path, err := e.cache.Local(ctx, name)
	if err != nil {
		return nil, err
	}
	repo, err := repository.Open(path, e.logger)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	r, err := repo.Load(ctx, e.cfg.Queries)
	if err != nil {
		return nil, fmt.Errorf("loading repository: %w", err)
	}
	return r, nil
}

// loadTemplate parses arg as a file when it names one and otherwise
// resolves it through the store.
func (e *env) loadTemplate(arg string) (*directive.Template, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, err
		}
		tpl, err := directive.Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s:%w", arg, err)
		}
		return tpl, nil
	}
	return e.store.Get(arg)
}

// templateName returns the name used for output files and log records.
func templateName(arg string) string {
	return strings.TrimSuffix(filepath.ToSlash(arg), filepath.Ext(arg))
}
