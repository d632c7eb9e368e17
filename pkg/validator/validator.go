// Package validator holds small composable checks for configuration values.
package validator

import (
	"cmp"
	"fmt"
	"os"
	"slices"

	"github.com/neurodesk/directive/pkg/directive"
)

// All returns the first non-nil error.
func All(errors ...error) error {
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}

type Validatable interface {
	Validate() error
}

func Each[T Validatable](items []T) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// Map applies f to every item with a description naming its position.
func Map[T any](items []T, f func(T, string) error, description string) error {
	for i, item := range items {
		if err := f(item, fmt.Sprintf("%s[%d]", description, i)); err != nil {
			return err
		}
	}
	return nil
}

// MapDict applies f to every entry in key order, so the reported error is
// stable.
func MapDict[K cmp.Ordered, T any](items map[K]T, f func(K, T) error, description string) error {
	keys := make([]K, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := f(k, items[k]); err != nil {
			return fmt.Errorf("%s: %w", description, err)
		}
	}
	return nil
}

func NotEmpty(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	return nil
}

func NoDuplicates[T comparable](slice []T, description string) error {
	seen := make(map[T]struct{})
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s contains duplicate value: %v", description, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func MatchesAllowed[T comparable](field T, allowed []T, description string) error {
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, field)
	}
	return nil
}

// Positive rejects zero and negative numbers.
func Positive[T cmp.Ordered](n T, description string) error {
	var zero T
	if n <= zero {
		return fmt.Errorf("%s must be positive, got %v", description, n)
	}
	return nil
}

// HasNoDirective rejects values that would be read as template syntax.
func HasNoDirective(field string, description string) error {
	if directive.HasDirectives(field) {
		return fmt.Errorf("%s must not contain template directives", description)
	}
	return nil
}

// ValidTemplate rejects template source that does not parse.
func ValidTemplate(src string, description string) error {
	if err := directive.TemplateString(src).Validate(); err != nil {
		return fmt.Errorf("%s: %w", description, err)
	}
	return nil
}

// IsDir rejects paths that are not existing directories. Empty paths pass.
func IsDir(path string, description string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", description, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %s is not a directory", description, path)
	}
	return nil
}
