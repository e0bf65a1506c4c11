// Package main hosts the asciireel CLI entrypoint and command graph.
//
// The root command converts a video: `asciireel <input> [output]`. The
// config, cache, and check subcommands scaffold configuration, inspect the
// staleness cache, and verify the external tools. Configuration is resolved
// once per invocation and shared by every subcommand; conversion itself lives
// in internal/pipeline.
package main
