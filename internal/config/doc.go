// Package config loads, normalizes, and validates asciireel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for the
// external tool binaries (ASCIIREEL_FFMPEG, ASCIIREEL_FFPROBE,
// ASCIIREEL_MAGICK). The Config value is built once per process and handed to
// the pipeline by value; nothing in this package keeps mutable global state.
package config
