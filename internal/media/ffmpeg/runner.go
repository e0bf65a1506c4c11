package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

// Runner executes ffmpeg.
type Runner struct {
	Binary string
	// Timeout bounds each invocation. Zero means no limit.
	Timeout time.Duration
}

// New returns a Runner for binary, defaulting to "ffmpeg".
func New(binary string, timeout time.Duration) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{Binary: binary, Timeout: timeout}
}

// Run executes ffmpeg with args and returns stdout. A failure error carries
// the tail of stderr.
func (r *Runner) Run(ctx context.Context, args []string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := commandContext(ctx, r.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", r.Binary, ctxErr)
		}
		if tail := lastLines(stderr.String(), 5); tail != "" {
			return nil, fmt.Errorf("%s: %w: %s", r.Binary, err, tail)
		}
		return nil, fmt.Errorf("%s: %w", r.Binary, err)
	}
	return stdout.Bytes(), nil
}

// ExtractFrames writes one image per sampled frame into req.OutputDir.
func (r *Runner) ExtractFrames(ctx context.Context, req ExtractRequest) error {
	if req.Width <= 0 || req.Height <= 0 || req.FPS <= 0 {
		return fmt.Errorf("extract frames: invalid geometry %dx%d@%d", req.Width, req.Height, req.FPS)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return fmt.Errorf("extract frames: %w", err)
	}
	_, err := r.Run(ctx, ExtractArgs(req))
	return err
}

// DecodeGray returns the raw grayscale bytes of the image at path scaled to
// width x height.
func (r *Runner) DecodeGray(ctx context.Context, path string, width, height int) ([]byte, error) {
	out, err := r.Run(ctx, DecodeGrayArgs(path, width, height))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("decode gray: empty output")
	}
	return out, nil
}

// ExtractAudio writes input's first audio stream to output.
func (r *Runner) ExtractAudio(ctx context.Context, input, output string) error {
	if _, err := r.Run(ctx, ExtractAudioArgs(input, output)); err != nil {
		return err
	}
	return requireOutput(output)
}

// CompressAudio applies filter to input and writes output.
func (r *Runner) CompressAudio(ctx context.Context, input, output, filter string) error {
	if _, err := r.Run(ctx, CompressAudioArgs(input, output, filter)); err != nil {
		return err
	}
	return requireOutput(output)
}

// Assemble encodes frames, in order, into a silent video at fps. The concat
// script is written next to output.
func (r *Runner) Assemble(ctx context.Context, frames []string, fps int, output string, opts VideoOptions) error {
	listPath := strings.TrimSuffix(output, filepath.Ext(output)) + ".ffconcat"
	file, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	if err := WriteConcatList(file, frames, fps); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close concat list: %w", err)
	}
	if _, err := r.Run(ctx, AssembleArgs(listPath, fps, output, opts)); err != nil {
		return err
	}
	return requireOutput(output)
}

// Mux combines video and audio into output.
func (r *Runner) Mux(ctx context.Context, video, audio, bitrate, output string) error {
	if _, err := r.Run(ctx, MuxArgs(video, audio, bitrate, output)); err != nil {
		return err
	}
	return requireOutput(output)
}

// CopyVideo rewraps video into output.
func (r *Runner) CopyVideo(ctx context.Context, video, output string) error {
	if _, err := r.Run(ctx, CopyArgs(video, output)); err != nil {
		return err
	}
	return requireOutput(output)
}

func requireOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("expected output %s: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("expected output %s: file is empty", path)
	}
	return nil
}

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
