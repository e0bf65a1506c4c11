package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var opts convertOptions

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "asciireel <input> [output]",
		Short: "Render a video as ASCII art",
		Long: "asciireel converts a video into an ASCII-art rendition, keeping its timing\n" +
			"and soundtrack. The output defaults to output_ascii.<container>.",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) || (cmd.Parent() == nil && len(args) == 0) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			output := ""
			if len(args) > 1 {
				output = args[1]
			}
			return runConvert(cmd, ctx, args[0], output, opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVar(&opts.noAudio, "no-audio", false, "Produce a silent video")
	rootCmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress banners and progress")
	rootCmd.Flags().IntVar(&opts.width, "width", 0, "Override render.output_width")
	rootCmd.Flags().IntVar(&opts.workers, "workers", 0, "Override batch.workers")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))

	return rootCmd
}
