package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool names an external binary the pipeline runs.
type Tool struct {
	Name    string
	Command string
	Purpose string
}

// Status is the PATH lookup result for one Tool.
type Status struct {
	Tool
	// Path is the resolved executable when Available.
	Path      string
	Available bool
	Detail    string
}

// Tools lists the binaries the pipeline invokes, in the order they run.
func Tools(ffmpeg, ffprobe, magick string) []Tool {
	return []Tool{
		{Name: "FFprobe", Command: ffprobe, Purpose: "source inspection"},
		{Name: "FFmpeg", Command: ffmpeg, Purpose: "extraction, audio and encoding"},
		{Name: "ImageMagick", Command: magick, Purpose: "glyph rasterization"},
	}
}

// Lookup resolves every tool on PATH. A blank command is reported as
// unconfigured rather than looked up.
func Lookup(tools []Tool) []Status {
	results := make([]Status, 0, len(tools))
	for _, tool := range tools {
		tool.Command = strings.TrimSpace(tool.Command)
		status := Status{Tool: tool}
		switch path, err := exec.LookPath(tool.Command); {
		case tool.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", tool.Command)
		default:
			status.Path = path
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}
