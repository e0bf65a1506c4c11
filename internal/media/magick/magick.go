package magick

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

// Request describes one rasterization.
type Request struct {
	TextPath   string
	OutputPath string
	Width      int
	Height     int
	Font       string
	PointSize  int
	OffsetX    int
	OffsetY    int
	Foreground string
	Background string
}

// Args builds the magick argument list drawing req.TextPath into target.
func Args(req Request, target string) []string {
	return []string{
		"-size", fmt.Sprintf("%dx%d", req.Width, req.Height),
		"xc:" + req.Background,
		"-font", req.Font,
		"-pointsize", strconv.Itoa(req.PointSize),
		"-fill", req.Foreground,
		"-annotate", fmt.Sprintf("+%d+%d", req.OffsetX, req.OffsetY),
		"@" + req.TextPath,
		target,
	}
}

// Rasterizer runs the magick binary.
type Rasterizer struct {
	Binary  string
	Timeout time.Duration
}

// New returns a Rasterizer for binary, defaulting to "magick".
func New(binary string, timeout time.Duration) *Rasterizer {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "magick"
	}
	return &Rasterizer{Binary: binary, Timeout: timeout}
}

// Rasterize draws req.TextPath into req.OutputPath.
func (r *Rasterizer) Rasterize(ctx context.Context, req Request) error {
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("rasterize: invalid size %dx%d", req.Width, req.Height)
	}
	if req.PointSize <= 0 {
		return fmt.Errorf("rasterize: invalid point size %d", req.PointSize)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	tmp := partialPath(req.OutputPath)
	defer os.Remove(tmp)

	cmd := commandContext(ctx, r.Binary, Args(req, tmp)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", r.Binary, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", r.Binary, err, msg)
		}
		return fmt.Errorf("%s: %w", r.Binary, err)
	}

	info, err := os.Stat(tmp)
	if err != nil {
		return fmt.Errorf("%s produced no image: %w", r.Binary, err)
	}
	if info.Size() == 0 {
		return errors.New(r.Binary + " produced an empty image")
	}
	if err := os.Rename(tmp, req.OutputPath); err != nil {
		return fmt.Errorf("move raster into place: %w", err)
	}
	return nil
}

// partialPath keeps the extension so magick still infers the output format.
func partialPath(output string) string {
	ext := filepath.Ext(output)
	if ext == "" {
		return output + ".partial"
	}
	return strings.TrimSuffix(output, ext) + ".partial" + ext
}

// FitPointSize returns the point size that fits rows lines of text into an
// image height pixels tall, never less than 1.
func FitPointSize(height, rows int) int {
	if rows <= 0 {
		return 1
	}
	return max(1, height/rows)
}
