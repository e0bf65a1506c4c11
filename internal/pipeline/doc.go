// Package pipeline converts one source video into its ASCII-art rendition.
//
// A Controller walks a fixed sequence of stages (probe, extract, convert,
// audio, render, combine) inside a locked per-input workspace. Each stage
// records its artifacts in the workspace manifest and skips work whose
// artifact already exists, so a run interrupted without cleanup can be
// resumed. Extracted frames are reused only when the staleness cache still
// matches the input and the manifest was built with the same geometry and
// frame rate. The workspace is removed when Run returns, whatever the outcome.
//
// External programs sit behind the interfaces in tools.go; DefaultTools binds
// them to ffprobe, ffmpeg, ImageMagick, and optionally Drapto.
package pipeline
