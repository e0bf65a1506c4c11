package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream holds the per-stream fields the pipeline reads.
type Stream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

// Format holds the container duration.
type Format struct {
	Duration string `json:"duration"`
}

// VideoInfo is the subset of a probe the conversion pipeline needs.
type VideoInfo struct {
	Width  int
	Height int
	// FrameRate is the raw r_frame_rate fraction, e.g. "30000/1001".
	FrameRate string
	HasAudio  bool
	Codec     string
	// Duration is the container duration in seconds, 0 when unknown.
	Duration float64
}

var commandContext = exec.CommandContext

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Probe inspects path and summarizes its first video stream.
func Probe(ctx context.Context, binary string, path string) (VideoInfo, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return VideoInfo{}, err
	}
	return result.VideoInfo()
}

// VideoInfo summarizes the first video stream. It fails when there is no
// video stream or its dimensions are not positive.
func (r Result) VideoInfo() (VideoInfo, error) {
	video, ok := r.firstStream("video")
	if !ok {
		return VideoInfo{}, errors.New("ffprobe: no video stream")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return VideoInfo{}, fmt.Errorf("ffprobe: invalid video dimensions %dx%d", video.Width, video.Height)
	}
	return VideoInfo{
		Width:     video.Width,
		Height:    video.Height,
		FrameRate: video.RFrameRate,
		HasAudio:  r.AudioStreamCount() > 0,
		Codec:     video.CodecName,
		Duration:  r.DurationSeconds(),
	}, nil
}

func (r Result) firstStream(codecType string) (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			return stream, true
		}
	}
	return Stream{}, false
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countStreams("audio")
}

func (r Result) countStreams(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when it
// is missing or malformed.
func (r Result) DurationSeconds() float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0
	}
	return d
}

// ParseFrameRate splits a "num/den" or plain numeric rate. It fails when the
// value is malformed, the denominator is zero, or the rate is not positive.
func ParseFrameRate(value string) (num, den int64, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, errors.New("frame rate: empty value")
	}
	numPart, denPart, hasSlash := strings.Cut(value, "/")
	if !hasSlash {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return 0, 0, fmt.Errorf("frame rate: invalid value %q", value)
		}
		return int64(math.Round(f * 1000)), 1000, nil
	}
	num, err = strconv.ParseInt(strings.TrimSpace(numPart), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("frame rate: invalid numerator in %q", value)
	}
	den, err = strconv.ParseInt(strings.TrimSpace(denPart), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("frame rate: invalid denominator in %q", value)
	}
	if den == 0 {
		return 0, 0, fmt.Errorf("frame rate: zero denominator in %q", value)
	}
	if num <= 0 || den < 0 {
		return 0, 0, fmt.Errorf("frame rate: non-positive rate %q", value)
	}
	return num, den, nil
}
