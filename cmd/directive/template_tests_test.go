package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testDefinitions = `
- name: Grades
  source: "@{if score > 90}A@{else}B@{fi}"
  model: {score: 95}
  expect: A
- name: Grades
  source: "@{if score > 90}A@{else}B@{fi}"
  model: {score: 10}
  expect: B
- template: page
  model: {items: [x, y]}
  expect:
    contains: ["<li>x</li>", "<li>y</li>"]
- name: broken
  source: "@{if x}"
  expect:
    error: never closed
- name: repo
  source: "@{R.site}"
  repo: {site: example}
  expect: example
`

func TestLoadTemplateTestSpecs(t *testing.T) {
	e, dir := newTestEnv(t, map[string]string{
		"templates/page.tpl": "@{include('list')}",
		"tests.yaml":         testDefinitions,
	}, nil)
	specs, err := loadTemplateTestSpecs(filepath.Join(dir, "tests.yaml"))
	if err != nil {
		t.Fatalf("loadTemplateTestSpecs error: %v", err)
	}

	var names []string
	for _, s := range specs {
		names = append(names, s.resolvedName)
	}
	if diff := cmp.Diff([]string{"grades", "grades-2", "page", "broken", "repo"}, names); diff != "" {
		t.Fatalf("resolved names mismatch (-want +got):\n%s", diff)
	}

	for _, s := range specs {
		if err := s.run(context.Background(), e); err != nil {
			t.Errorf("%s: %v", s.resolvedName, err)
		}
	}
}

func TestExpectationFailures(t *testing.T) {
	e, _ := newTestEnv(t, nil, nil)
	want := "nope"
	cases := []templateTestSpec{
		{Source: "yes", Expect: expectation{Equals: &want}},
		{Source: "yes", Expect: expectation{Contains: []string{"no"}}},
		{Source: "yes", Expect: expectation{Error: "boom"}},
		{Source: "@{if x}", Expect: expectation{Equals: &want}},
	}
	for i, c := range cases {
		if err := c.run(context.Background(), e); err == nil {
			t.Errorf("case %d passed unexpectedly", i)
		}
	}
}

func TestFilterTemplateSpecs(t *testing.T) {
	specs := []templateTestSpec{
		{Name: "Alpha", resolvedName: "alpha"},
		{Template: "page", resolvedName: "page"},
		{Name: "Alpha", resolvedName: "alpha-2"},
	}
	got := filterTemplateSpecs(specs, []string{"ALPHA-2", " page "})
	if len(got) != 2 || got[0].Template != "page" || got[1].resolvedName != "alpha-2" {
		t.Fatalf("filtered = %+v", got)
	}
	if got := filterTemplateSpecs(specs, nil); len(got) != 3 {
		t.Fatalf("no selectors kept %d specs", len(got))
	}
}

func TestLoadTemplateTestSpecsInvalid(t *testing.T) {
	_, dir := newTestEnv(t, map[string]string{
		"both.yaml":    "- {template: a, source: b}\n",
		"neither.yaml": "- {name: x}\n",
		"unknown.yaml": "- {source: a, nope: 1}\n",
		"badexp.yaml":  "- {source: a, expect: {}}\n",
	}, nil)
	for _, f := range []string{"both.yaml", "neither.yaml", "unknown.yaml", "badexp.yaml", "absent.yaml"} {
		if _, err := loadTemplateTestSpecs(filepath.Join(dir, f)); err == nil {
			t.Errorf("%s: expected error", f)
		}
	}
}
