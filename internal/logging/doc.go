// Package logging assembles structured slog loggers and formatting helpers used
// across asciireel.
//
// It owns the console and JSON handlers, routes output to stderr plus an
// optional log file, and exposes context-aware helpers so stage code tags log
// lines with the run id and stage name. A no-op logger is provided for tests.
package logging
