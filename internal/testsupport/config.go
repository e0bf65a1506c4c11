package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"asciireel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Batches are small so pipeline tests cross chunk boundaries with few frames.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.CacheFile = filepath.Join(base, "cache", "extract.cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Batch.ConvertSize = 2
	cfgVal.Batch.RenderSize = 2
	cfgVal.Workspace.StaleAfterHours = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOutputWidth overrides the text grid width.
func WithOutputWidth(width int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.OutputWidth = width
	}
}

// WithAudio toggles soundtrack handling.
func WithAudio(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.Enabled = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the configured ffmpeg, ffprobe,
// and magick binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Tools.FFmpeg, b.cfg.Tools.FFprobe, b.cfg.Tools.Magick}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
