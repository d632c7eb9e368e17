package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/neurodesk/directive/pkg/directive"
	"github.com/neurodesk/directive/pkg/output"
	v "github.com/neurodesk/directive/pkg/validator"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type batchFlags struct {
	renderFlags
	outDir      string
	namePattern string
	parallelism int
}

var batchOpts batchFlags

// outputPattern returns the configured pattern, or one derived from the
// output format.
func (f *batchFlags) outputPattern(format string) directive.TemplateString {
	if f.namePattern != "" {
		return directive.TemplateString(f.namePattern)
	}
	if output.Format(format) == output.FormatMarkdown {
		return "@{name}.html"
	}
	return "@{name}.txt"
}

// batchJob is one template of a batch.
type batchJob struct {
	index int
	arg   string
}

func (j batchJob) fields() directive.Object {
	return directive.Object{
		"name":  directive.String(templateName(j.arg)),
		"base":  directive.String(filepath.Base(templateName(j.arg))),
		"index": directive.Number(j.index),
	}
}

// runBatch renders every template concurrently. The first failure cancels
// the rest; nothing is written for a template that failed.
func runBatch(ctx context.Context, e *env, args []string, opts *batchFlags) error {
	pattern := opts.outputPattern(e.cfg.OutputFormat)
	if err := v.ValidTemplate(string(pattern), "output name pattern"); err != nil {
		return err
	}
	model, repo, err := opts.bindings(ctx, e)
	if err != nil {
		return err
	}

	limit := opts.parallelism
	if limit <= 0 {
		limit = e.cfg.Parallelism
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, arg := range args {
		job := batchJob{index: i, arg: arg}
		g.Go(func() error {
			tpl, err := e.loadTemplate(job.arg)
			if err != nil {
				return err
			}
			out, err := e.renderer.Render(ctx, tpl, model, repo)
			if err != nil {
				return fmt.Errorf("rendering %s: %w", job.arg, err)
			}
			name, err := pattern.Render(job.fields())
			if err != nil {
				return fmt.Errorf("naming output of %s: %w", job.arg, err)
			}
			return e.emit(filepath.Join(opts.outDir, filepath.FromSlash(name)), out)
		})
	}
	return g.Wait()
}

var batchCmd = cobra.Command{
	Use:   "batch [template ...]",
	Short: "Render many templates concurrently into a directory",
	Long:  "Render each template against the same model and repository. Output file names come from --name, a template over the fields name, base and index.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 0 {
			if args, err = e.store.Names(); err != nil {
				return err
			}
		}
		if len(args) == 0 {
			return fmt.Errorf("no templates to render")
		}
		return runBatch(cmd.Context(), e, args, &batchOpts)
	},
}

func init() {
	batchOpts.register(&batchCmd)
	batchCmd.Flags().StringVarP(&batchOpts.outDir, "out-dir", "o", ".", "Directory receiving the rendered files")
	batchCmd.Flags().StringVar(&batchOpts.namePattern, "name", "", "Output file name template (default @{name}.txt, or @{name}.html for markdown)")
	batchCmd.Flags().IntVarP(&batchOpts.parallelism, "parallel", "j", 0, "Concurrent renders (default from config)")
	rootCmd.AddCommand(&batchCmd)
}
