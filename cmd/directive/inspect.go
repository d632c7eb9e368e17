package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/neurodesk/directive/pkg/directive"
	"github.com/spf13/cobra"
)

var tokensCmd = cobra.Command{
	Use:   "tokens [template]",
	Short: "Print the token stream of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context())
		if err != nil {
			return err
		}
		src, err := e.readSource(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, tok := range directive.Tokenize(src) {
			fmt.Fprintf(w, "%d:%d\t%s\t%q\n", tok.Pos.Line, tok.Pos.Column, tok.Kind, tok.Text)
		}
		return nil
	},
}

var astCmd = cobra.Command{
	Use:   "ast [template]",
	Short: "Print the parsed node tree of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context())
		if err != nil {
			return err
		}
		tpl, err := e.loadTemplate(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), directive.Pretty(tpl))
		return nil
	},
}

var checkCmd = cobra.Command{
	Use:   "check [template ...]",
	Short: "Parse templates and report errors and untranslated text",
	Long:  "Parse the named templates, or every template the configured directories provide, and report positioned parse errors. With translations configured, localization keys missing from the selected locale are reported as well.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context())
		if err != nil {
			return err
		}
		names := args
		if len(names) == 0 {
			if names, err = e.store.Names(); err != nil {
				return err
			}
		}
		if len(names) == 0 {
			return fmt.Errorf("no templates found")
		}

		w := cmd.OutOrStdout()
		var failed int
		for _, name := range names {
			tpl, err := e.loadTemplate(name)
			if err != nil {
				failed++
				fmt.Fprintf(w, "FAIL %s: %v\n", name, err)
				continue
			}
			if e.catalog != nil {
				if missing := e.catalog.Missing(directive.Localizations(tpl)); len(missing) > 0 {
					fmt.Fprintf(w, "WARN %s: untranslated in %s: %s\n", name, e.catalog.Locale(), strings.Join(missing, ", "))
					if e.cfg.StrictTranslations {
						failed++
						continue
					}
				}
			}
			fmt.Fprintf(w, "ok   %s\n", name)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d templates failed", failed, len(names))
		}
		return nil
	},
}

// readSource returns the raw text of a template file or store entry.
func (e *env) readSource(arg string) (string, error) {
	data, err := os.ReadFile(arg)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	src, _, err := e.store.Source(arg)
	return src, err
}

func init() {
	rootCmd.AddCommand(&tokensCmd)
	rootCmd.AddCommand(&astCmd)
	rootCmd.AddCommand(&checkCmd)
}
