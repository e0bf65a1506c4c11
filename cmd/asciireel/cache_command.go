package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"asciireel/internal/stalecache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the extraction staleness cache",
	}
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the recorded input and whether it is still current",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache := stalecache.New(cfg.Paths.CacheFile, nil)
			record, ok, err := cache.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "No cache record at %s\n", cache.Path())
				return nil
			}

			pairs := [][2]string{
				{"Cache file", cache.Path()},
				{"Input", record.InputIdentity},
				{"Stamp", record.ModificationStamp},
				{"State", cacheState(cache, record)},
			}
			if info, err := os.Stat(cache.Path()); err == nil {
				pairs = append(pairs, [2]string{"Recorded", humanize.Time(info.ModTime())})
			}
			fmt.Fprintln(out, renderKeyValues(pairs))
			return nil
		},
	}
}

func cacheState(cache *stalecache.Cache, record stalecache.Record) string {
	if _, err := os.Stat(record.InputIdentity); err != nil {
		return "input missing"
	}
	if cache.IsValid(record.InputIdentity) {
		return "current"
	}
	return "stale"
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the cache record so the next run extracts frames again",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache := stalecache.New(cfg.Paths.CacheFile, nil)
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cache.Path())
			return nil
		},
	}
}
