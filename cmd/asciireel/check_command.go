package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asciireel/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify external tools and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			results := preflight.RunAll(cfg)
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, passFail(r.Passed), r.Detail, colorize))
			}
			encoder := cfg.Video.Encoder + " -> ." + cfg.Video.Container
			fmt.Fprintln(out, renderStatusLine("Encoder", outcomeInfo, encoder, colorize))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}
