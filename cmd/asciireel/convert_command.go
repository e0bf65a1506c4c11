package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"asciireel/internal/config"
	"asciireel/internal/pipeline"
	"asciireel/internal/preflight"
)

type convertOptions struct {
	noAudio bool
	quiet   bool
	width   int
	workers int
}

// newTools is swapped in tests.
var newTools = pipeline.DefaultTools

func runConvert(cmd *cobra.Command, ctx *commandContext, input, output string, opts convertOptions) error {
	base, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := applyOverrides(*base, opts)
	if err != nil {
		return err
	}

	if failed := preflight.Failed(preflight.RunAll(&cfg)); len(failed) > 0 {
		parts := make([]string, 0, len(failed))
		for _, r := range failed {
			parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return fmt.Errorf("preflight failed (%s); run `asciireel check` for details", strings.Join(parts, "; "))
	}

	out := cmd.OutOrStdout()
	interactive := !opts.quiet && isTerminal(out)
	logger, err := ctx.newLogger(interactive)
	if err != nil {
		return err
	}

	var observer pipeline.Observer
	if !opts.quiet {
		observer = newProgressReporter(out, interactive)
	}
	controller, err := pipeline.New(&cfg, newTools(&cfg, logger), logger, pipeline.WithObserver(observer))
	if err != nil {
		return err
	}

	summary, runErr := controller.Run(cmd.Context(), input, output)
	if !opts.quiet && len(summary.Stages) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderSummary(summary, interactive))
	}
	return runErr
}

// applyOverrides layers command-line flags over the loaded config.
func applyOverrides(cfg config.Config, opts convertOptions) (config.Config, error) {
	if opts.noAudio {
		cfg.Audio.Enabled = false
	}
	if opts.width > 0 {
		cfg.Render.OutputWidth = opts.width
	}
	if opts.workers > 0 {
		cfg.Batch.Workers = opts.workers
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
