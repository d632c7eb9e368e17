package main

import (
	"context"
	"fmt"
	"os"

	"github.com/neurodesk/directive/pkg/directive"
	"github.com/spf13/cobra"
)

type renderFlags struct {
	model  string
	repoDB string
	out    string
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model file (.json, .yaml or .star) bound to M")
	cmd.Flags().StringVar(&f.repoDB, "repo-db", "", "SQLite database whose tables are bound to R")
}

// bindings loads the model and repository named by the flags.
func (f *renderFlags) bindings(ctx context.Context, e *env) (model, repo directive.Value, err error) {
	if model, err = e.loadModel(ctx, f.model); err != nil {
		return nil, nil, err
	}
	if repo, err = e.loadRepository(ctx, f.repoDB); err != nil {
		return nil, nil, err
	}
	return model, repo, nil
}

// emit writes text to path, or to stdout when path is empty.
func (e *env) emit(path, text string) error {
	if path == "" {
		return e.writer.WriteTo(os.Stdout, text)
	}
	if err := e.writer.WriteFile(path, text); err != nil {
		return err
	}
	e.logger.Info("wrote output", "path", path)
	return nil
}

var renderOpts renderFlags

var renderCmd = cobra.Command{
	Use:   "render [template]",
	Short: "Render a template against a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := loadEnv(ctx)
		if err != nil {
			return err
		}

		tpl, err := e.loadTemplate(args[0])
		if err != nil {
			return err
		}
		model, repo, err := renderOpts.bindings(ctx, e)
		if err != nil {
			return err
		}

		out, err := e.renderer.Render(ctx, tpl, model, repo)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", args[0], err)
		}
		return e.emit(renderOpts.out, out)
	},
}

func init() {
	renderOpts.register(&renderCmd)
	renderCmd.Flags().StringVarP(&renderOpts.out, "out", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(&renderCmd)
}
