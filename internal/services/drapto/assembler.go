package drapto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"asciireel/internal/logging"
	"asciireel/internal/media/ffmpeg"
)

// Intermediate encodes the ordered rasters into a single file Drapto can read.
type Intermediate interface {
	Assemble(ctx context.Context, frames []string, fps int, output string, opts ffmpeg.VideoOptions) error
}

// losslessOptions keep the intermediate free of generation loss.
var losslessOptions = ffmpeg.VideoOptions{CRF: 0, Preset: "ultrafast"}

// Assembler produces an AV1 video from rasters via a lossless intermediate.
type Assembler struct {
	intermediate Intermediate
	client       Client
	logger       *slog.Logger
}

// NewAssembler wires the intermediate encoder and the Drapto client.
func NewAssembler(intermediate Intermediate, client Client, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{
		intermediate: intermediate,
		client:       client,
		logger:       logging.NewComponentLogger(logger, "drapto"),
	}
}

// Assemble encodes frames at fps into output, which must be an mkv path.
func (a *Assembler) Assemble(ctx context.Context, frames []string, fps int, output string) error {
	if a.intermediate == nil || a.client == nil {
		return errors.New("drapto assembler not configured")
	}
	if !strings.EqualFold(filepath.Ext(output), ".mkv") {
		return fmt.Errorf("drapto output must be mkv: %s", output)
	}
	dir := filepath.Dir(output)
	stem := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
	intermediatePath := filepath.Join(dir, stem+".lossless.mkv")
	encodeDir := filepath.Join(dir, "av1")

	if err := a.intermediate.Assemble(ctx, frames, fps, intermediatePath, losslessOptions); err != nil {
		return fmt.Errorf("lossless intermediate: %w", err)
	}
	defer os.Remove(intermediatePath)

	if err := os.MkdirAll(encodeDir, 0o755); err != nil {
		return fmt.Errorf("create drapto output dir: %w", err)
	}
	defer os.RemoveAll(encodeDir)

	sampler := logging.NewProgressSampler(10)
	encoded, err := a.client.Encode(ctx, intermediatePath, encodeDir, func(update ProgressUpdate) {
		switch update.Stage {
		case "warning":
			logging.WarnWithContext(a.logger, update.Message, "drapto_warning")
			return
		case "error":
			a.logger.Error(update.Message, logging.String(logging.FieldEventType, "drapto_error"))
			return
		}
		if sampler.ShouldLog(update.Percent, update.Stage) {
			a.logger.Info("drapto progress",
				logging.String("drapto_stage", update.Stage),
				logging.Float64("percent", update.Percent),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("drapto encode: %w", err)
	}
	if err := os.Rename(encoded, output); err != nil {
		return fmt.Errorf("move drapto output: %w", err)
	}
	return nil
}
