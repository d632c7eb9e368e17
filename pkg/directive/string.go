package directive

import (
	"context"
	"fmt"
	"strings"
)

// TemplateString is template source embedded in configuration, such as an
// output file name pattern.
type TemplateString string

func (t TemplateString) Validate() error {
	if _, err := Parse(string(t)); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

// Render parses and renders the string against model with no hooks.
func (t TemplateString) Render(model Value) (string, error) {
	tpl, err := Parse(string(t))
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	return NewRenderer(nil).Render(context.Background(), tpl, model, nil)
}

// HasDirectives reports whether s contains a directive opener.
func HasDirectives(s string) bool {
	return strings.Contains(s, "@{") || strings.Contains(s, "@(")
}

// MapResolver resolves partials from in-memory sources, parsing on every
// call.
type MapResolver map[string]string

func (m MapResolver) Resolve(name string) (*Template, error) {
	src, ok := m[name]
	if !ok {
		return nil, ErrTemplateNotFound{name}
	}
	return Parse(src)
}

type ErrTemplateNotFound struct{ Name string }

func (e ErrTemplateNotFound) Error() string { return "template not found: " + e.Name }
