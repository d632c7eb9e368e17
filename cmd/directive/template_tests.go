package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/neurodesk/directive/pkg/directive"
	v "github.com/neurodesk/directive/pkg/validator"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var templateTestsCmd = cobra.Command{
	Use:   "test [selector ...]",
	Short: "Render the cases of a template test file and compare the output",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context())
		if err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")
		specs, err := loadTemplateTestSpecs(file)
		if err != nil {
			return err
		}
		if len(specs) == 0 {
			return fmt.Errorf("no template tests defined in %s", file)
		}

		selected := filterTemplateSpecs(specs, args)
		if len(selected) == 0 {
			return fmt.Errorf("no template tests matched the provided selectors")
		}

		w := cmd.OutOrStdout()
		var failures []string
		for _, spec := range selected {
			if err := spec.run(cmd.Context(), e); err != nil {
				fmt.Fprintf(w, "FAIL %s: %v\n", spec.resolvedName, err)
				failures = append(failures, spec.resolvedName)
				continue
			}
			fmt.Fprintf(w, "ok   %s\n", spec.resolvedName)
		}
		if len(failures) > 0 {
			return fmt.Errorf("failed tests: %s", strings.Join(uniqueStrings(failures), ", "))
		}
		return nil
	},
}

type templateTestSpec struct {
	Name     string         `yaml:"name"`
	Template string         `yaml:"template"`
	Source   string         `yaml:"source"`
	Model    map[string]any `yaml:"model"`
	Repo     map[string]any `yaml:"repo"`
	Expect   expectation    `yaml:"expect"`

	resolvedName string `yaml:"-"`
}

// expectation is either a plain string, the exact output, or a mapping
// with equals, contains or error. A missing expectation only requires the
// render to succeed.
type expectation struct {
	Equals   *string  `yaml:"equals"`
	Contains []string `yaml:"contains"`
	Error    string   `yaml:"error"`
}

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

func (x *expectation) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		s := value.Value
		x.Equals = &s
		return nil
	case yaml.MappingNode:
		type alias expectation
		var tmp alias
		if err := value.Decode(&tmp); err != nil {
			return err
		}
		if tmp.Equals == nil && len(tmp.Contains) == 0 && tmp.Error == "" {
			return fmt.Errorf("expectation needs equals, contains or error")
		}
		*x = expectation(tmp)
		return nil
	default:
		return fmt.Errorf("unsupported expectation type: %v", value.Kind)
	}
}

func (x expectation) check(out string, err error) error {
	if x.Error != "" {
		if err == nil {
			return fmt.Errorf("expected error containing %q, got output %q", x.Error, out)
		}
		if !strings.Contains(err.Error(), x.Error) {
			return fmt.Errorf("error %q does not contain %q", err, x.Error)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if x.Equals != nil && out != *x.Equals {
		return fmt.Errorf("got %q, want %q", out, *x.Equals)
	}
	for _, c := range x.Contains {
		if !strings.Contains(out, c) {
			return fmt.Errorf("output %q does not contain %q", out, c)
		}
	}
	return nil
}

func (s templateTestSpec) Identifier() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Template
}

func (s *templateTestSpec) ensureResolvedName(counter map[string]int) {
	if s.resolvedName != "" {
		return
	}
	base := s.Identifier()
	if base == "" {
		base = "inline"
	}
	base = strings.ToLower(base)
	base = invalidNameChars.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "template"
	}
	count := counter[base]
	if count > 0 {
		s.resolvedName = fmt.Sprintf("%s-%d", base, count+1)
	} else {
		s.resolvedName = base
	}
	counter[base] = count + 1
}

func (s templateTestSpec) Validate() error {
	if (s.Template == "") == (s.Source == "") {
		return fmt.Errorf("exactly one of template and source is required")
	}
	return nil
}

func (s templateTestSpec) run(ctx context.Context, e *env) error {
	var (
		tpl *directive.Template
		err error
	)
	if s.Source != "" {
		tpl, err = directive.Parse(s.Source)
	} else {
		tpl, err = e.store.Get(s.Template)
	}
	if err != nil {
		return s.Expect.check("", err)
	}
	var repo directive.Value = directive.Null{}
	if s.Repo != nil {
		repo = directive.FromGo(s.Repo)
	}
	out, err := e.renderer.Render(ctx, tpl, directive.FromGo(s.Model), repo)
	return s.Expect.check(out, err)
}

func loadTemplateTestSpecs(path string) ([]templateTestSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var specs []templateTestSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&specs); err != nil {
		return nil, fmt.Errorf("decoding test definitions: %w", err)
	}

	if err := v.Each(specs); err != nil {
		return nil, fmt.Errorf("invalid test definitions: %w", err)
	}
	counter := map[string]int{}
	for i := range specs {
		if specs[i].Model == nil {
			specs[i].Model = map[string]any{}
		}
		specs[i].ensureResolvedName(counter)
	}
	return specs, nil
}

func filterTemplateSpecs(specs []templateTestSpec, selectors []string) []templateTestSpec {
	set := map[string]struct{}{}
	for _, s := range selectors {
		if s = strings.TrimSpace(s); s != "" {
			set[strings.ToLower(s)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return specs
	}

	var filtered []templateTestSpec
	for _, spec := range specs {
		for _, key := range []string{spec.Identifier(), spec.Template, spec.resolvedName} {
			if _, ok := set[strings.ToLower(key)]; ok && key != "" {
				filtered = append(filtered, spec)
				break
			}
		}
	}
	return filtered
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return values
	}
	sort.Strings(values)
	out := values[:1]
	for _, s := range values[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

func init() {
	templateTestsCmd.Flags().StringP("file", "f", "template_tests.yaml", "Template test definitions")
	rootCmd.AddCommand(&templateTestsCmd)
}
