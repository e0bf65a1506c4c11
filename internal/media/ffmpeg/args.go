package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strconv"
)

var preamble = []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y"}

func withPreamble(args ...string) []string {
	out := make([]string, 0, len(preamble)+len(args))
	out = append(out, preamble...)
	return append(out, args...)
}

// ExtractRequest describes one frame extraction.
type ExtractRequest struct {
	Input     string
	OutputDir string
	// Pattern is a printf-style file name such as "frame_%06d.png".
	Pattern string
	Width   int
	Height  int
	FPS     int
}

// ExtractArgs samples Input at FPS, scales each frame to Width x Height, and
// numbers the images from 1.
func ExtractArgs(req ExtractRequest) []string {
	return withPreamble(
		"-i", req.Input,
		"-an", "-sn",
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", req.FPS, req.Width, req.Height),
		"-start_number", "1",
		filepath.Join(req.OutputDir, req.Pattern),
	)
}

// DecodeGrayArgs emits one raw 8-bit grayscale frame of exactly width x height
// pixels on stdout.
func DecodeGrayArgs(path string, width, height int) []string {
	return withPreamble(
		"-i", path,
		"-vf", fmt.Sprintf("scale=%d:%d,format=gray", width, height),
		"-frames:v", "1",
		"-f", "rawvideo",
		"pipe:1",
	)
}

// ExtractAudioArgs copies the first audio stream of input to PCM.
func ExtractAudioArgs(input, output string) []string {
	return withPreamble(
		"-i", input,
		"-vn", "-sn",
		"-map", "0:a:0",
		"-acodec", "pcm_s16le",
		output,
	)
}

// CompressAudioArgs applies filter to input.
func CompressAudioArgs(input, output, filter string) []string {
	return withPreamble(
		"-i", input,
		"-af", filter,
		"-acodec", "pcm_s16le",
		output,
	)
}

// VideoOptions are the libx264 encoder settings.
type VideoOptions struct {
	CRF    int
	Preset string
}

// AssembleArgs encodes the images listed in concatList at fps.
func AssembleArgs(concatList string, fps int, output string, opts VideoOptions) []string {
	preset := opts.Preset
	if preset == "" {
		preset = "medium"
	}
	return withPreamble(
		"-f", "concat",
		"-safe", "0",
		"-i", concatList,
		"-fps_mode", "cfr",
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(opts.CRF),
		"-pix_fmt", "yuv420p",
		output,
	)
}

// MuxArgs combines the silent video with audio, re-encoding the audio to AAC
// and stopping at the shorter stream.
func MuxArgs(video, audio, bitrate, output string) []string {
	return withPreamble(
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", bitrate,
		"-shortest",
		output,
	)
}

// CopyArgs rewraps video into output without re-encoding.
func CopyArgs(video, output string) []string {
	return withPreamble("-i", video, "-c", "copy", output)
}
