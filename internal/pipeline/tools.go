package pipeline

import (
	"context"
	"log/slog"
	"time"

	"asciireel/internal/config"
	"asciireel/internal/media/ffmpeg"
	"asciireel/internal/media/ffprobe"
	"asciireel/internal/media/magick"
	"asciireel/internal/services/drapto"
)

// Prober inspects the source video.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.VideoInfo, error)
}

// FrameExtractor writes the sampled, scaled frames of a video to disk.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, req ffmpeg.ExtractRequest) error
}

// GrayscaleDecoder returns one byte per pixel for an image scaled to
// width x height.
type GrayscaleDecoder interface {
	DecodeGray(ctx context.Context, path string, width, height int) ([]byte, error)
}

// Rasterizer draws a text artifact into an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, req magick.Request) error
}

// AudioProcessor extracts and compresses the soundtrack.
type AudioProcessor interface {
	ExtractAudio(ctx context.Context, input, output string) error
	CompressAudio(ctx context.Context, input, output, filter string) error
}

// VideoAssembler encodes ordered images into a silent video.
type VideoAssembler interface {
	Assemble(ctx context.Context, frames []string, fps int, output string) error
}

// Muxer writes the final output file.
type Muxer interface {
	Mux(ctx context.Context, video, audio, bitrate, output string) error
	CopyVideo(ctx context.Context, video, output string) error
}

// Tools bundles the external collaborators of a run.
type Tools struct {
	Prober     Prober
	Extractor  FrameExtractor
	Decoder    GrayscaleDecoder
	Rasterizer Rasterizer
	Audio      AudioProcessor
	Assembler  VideoAssembler
	Muxer      Muxer
}

func (t Tools) complete() bool {
	return t.Prober != nil && t.Extractor != nil && t.Decoder != nil && t.Rasterizer != nil &&
		t.Audio != nil && t.Assembler != nil && t.Muxer != nil
}

// DefaultTools binds every collaborator to the configured binaries.
func DefaultTools(cfg *config.Config, logger *slog.Logger) Tools {
	timeout := time.Duration(cfg.Tools.TimeoutSeconds) * time.Second
	runner := ffmpeg.New(cfg.FFmpegBinary(), timeout)

	var assembler VideoAssembler = x264Assembler{
		runner: runner,
		opts:   ffmpeg.VideoOptions{CRF: cfg.Video.CRF, Preset: cfg.Video.Preset},
	}
	if cfg.Video.Encoder == config.EncoderDrapto {
		assembler = drapto.NewAssembler(runner, drapto.NewLibrary(), logger)
	}

	return Tools{
		Prober:     ffprobeProber{binary: cfg.FFprobeBinary()},
		Extractor:  runner,
		Decoder:    runner,
		Rasterizer: magick.New(cfg.MagickBinary(), timeout),
		Audio:      runner,
		Assembler:  assembler,
		Muxer:      runner,
	}
}

type ffprobeProber struct {
	binary string
}

func (p ffprobeProber) Probe(ctx context.Context, path string) (ffprobe.VideoInfo, error) {
	return ffprobe.Probe(ctx, p.binary, path)
}

type x264Assembler struct {
	runner *ffmpeg.Runner
	opts   ffmpeg.VideoOptions
}

func (a x264Assembler) Assemble(ctx context.Context, frames []string, fps int, output string) error {
	return a.runner.Assemble(ctx, frames, fps, output, a.opts)
}
