package pipeline

import (
	"fmt"
	"math"

	"asciireel/internal/config"
	"asciireel/internal/media/ffprobe"
)

// VideoMetadata is the geometry and timing of one run, fixed after probing.
type VideoMetadata struct {
	Width     int
	Height    int
	SourceFPS int
	// OutputFPS is the rate frames are sampled at and re-encoded with.
	OutputFPS    int
	OutputWidth  int
	OutputHeight int
	HasAudio     bool
	Codec        string
	// Duration is the source length in seconds, 0 when the probe had none.
	Duration float64
}

// BuildMetadata derives run metadata from a probe. An unusable source frame
// rate falls back to the configured rate.
func BuildMetadata(info ffprobe.VideoInfo, render config.Render, video config.Video) (VideoMetadata, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return VideoMetadata{}, fmt.Errorf("invalid source dimensions %dx%d", info.Width, info.Height)
	}
	meta := VideoMetadata{
		Width:       info.Width,
		Height:      info.Height,
		SourceFPS:   sourceFPS(info.FrameRate, video.FrameRate),
		OutputWidth: render.OutputWidth,
		HasAudio:    info.HasAudio,
		Codec:       info.Codec,
		Duration:    info.Duration,
	}
	meta.OutputHeight = OutputHeight(info.Width, info.Height, render.OutputWidth, render.AspectCorrection)
	meta.OutputFPS = video.FrameRate
	if video.MatchSourceRate {
		meta.OutputFPS = meta.SourceFPS
	}
	return meta, nil
}

// OutputHeight is the text grid height for a source of width x height drawn
// outputWidth glyphs wide. aspect compensates for glyphs being taller than
// wide. The result is at least 1.
func OutputHeight(width, height, outputWidth int, aspect float64) int {
	if width <= 0 || height <= 0 || outputWidth <= 0 {
		return 1
	}
	rows := int(math.Floor(float64(outputWidth) * float64(height) / float64(width) * aspect))
	if rows < 1 {
		return 1
	}
	return rows
}

func sourceFPS(raw string, fallback int) int {
	num, den, err := ffprobe.ParseFrameRate(raw)
	if err != nil {
		return fallback
	}
	fps := int(math.Round(float64(num) / float64(den)))
	if fps < 1 {
		return fallback
	}
	return fps
}
