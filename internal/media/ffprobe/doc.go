// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and Parse decodes its JSON, so callers can test the
// decoding without the binary installed. VideoInfo summarizes the first video
// stream, and ParseFrameRate splits ffprobe's "num/den" frame rate fractions.
package ffprobe
