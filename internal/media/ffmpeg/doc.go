// Package ffmpeg drives the ffmpeg binary for every decode and encode step of
// a conversion: frame extraction, grayscale decoding, soundtrack extraction
// and compression, frame assembly, and the final remux.
//
// Argument lists are built by exported *Args functions so they can be checked
// without ffmpeg installed. Runner executes them with stderr captured and
// attached to the returned error.
package ffmpeg
