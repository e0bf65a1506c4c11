// Package drapto integrates the Drapto Go library as an optional AV1 backend
// for the video assembly stage.
//
// Assembler first encodes the ordered rasters into a lossless intermediate
// with ffmpeg, then hands that file to Drapto and moves the result to the
// requested output path. Drapto's Reporter callbacks are reduced to
// ProgressUpdate values so the caller can log or draw them.
package drapto
