package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

const (
	statusLabelWidth = 14
	statusIndent     = "  "
)

// outcome tags a stage, a tool check or the final state in a status line.
type outcome struct {
	tag   string
	color string
}

var (
	outcomeOK    = outcome{tag: "OK", color: ansiGreen}
	outcomeError = outcome{tag: "ERROR", color: ansiRed}
	outcomeInfo  = outcome{tag: "INFO", color: ansiBlue}
)

func passFail(passed bool) outcome {
	if passed {
		return outcomeOK
	}
	return outcomeError
}

func renderStatusLine(label string, o outcome, message string, colorize bool) string {
	line := fmt.Sprintf("%s%-*s [%s]", statusIndent, statusLabelWidth, label+":", o.tag)
	if message != "" {
		line += " " + message
	}
	if colorize {
		return o.color + line + ansiReset
	}
	return line
}

// renderBanner announces a stage before its progress output.
func renderBanner(title string, colorize bool) string {
	line := "==> " + strings.TrimSpace(title)
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
