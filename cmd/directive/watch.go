package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var watchOpts renderFlags

// rerender renders arg and writes it, logging failures instead of
// returning them so that watching continues.
func (e *env) rerender(ctx context.Context, arg string, opts *renderFlags) {
	tpl, err := e.loadTemplate(arg)
	if err != nil {
		e.logger.Error("loading template", "template", arg, "error", err)
		return
	}
	model, repo, err := opts.bindings(ctx, e)
	if err != nil {
		e.logger.Error("loading bindings", "template", arg, "error", err)
		return
	}
	out, err := e.renderer.Render(ctx, tpl, model, repo)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("rendering", "template", arg, "error", err)
		}
		return
	}
	if err := e.emit(opts.out, out); err != nil {
		e.logger.Error("writing output", "template", arg, "error", err)
	}
}

var watchCmd = cobra.Command{
	Use:   "watch [template]",
	Short: "Re-render a template whenever a template file changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := loadEnv(ctx)
		if err != nil {
			return err
		}
		if watchOpts.out == "" {
			return fmt.Errorf("watch requires --out")
		}

		e.rerender(ctx, args[0], &watchOpts)
		// Partials are cached individually, so any change re-renders.
		return e.store.Watch(ctx, func(name string) {
			e.logger.Debug("re-rendering", "template", args[0], "changed", name)
			e.rerender(ctx, args[0], &watchOpts)
		})
	},
}

func init() {
	watchOpts.register(&watchCmd)
	watchCmd.Flags().StringVarP(&watchOpts.out, "out", "o", "", "Output file, replaced atomically on every render")
	rootCmd.AddCommand(&watchCmd)
}
