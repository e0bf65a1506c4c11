package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"asciireel/internal/config"
	"asciireel/internal/media/ffmpeg"
	"asciireel/internal/media/ffprobe"
	"asciireel/internal/media/magick"
	"asciireel/internal/pipeline"
	"asciireel/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "xdg-cache"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// stubTools satisfies every pipeline collaborator by writing placeholder
// files.
type stubTools struct {
	frames int
}

func (s stubTools) Probe(context.Context, string) (ffprobe.VideoInfo, error) {
	return ffprobe.VideoInfo{Width: 64, Height: 48, FrameRate: "10/1", HasAudio: true}, nil
}

func (s stubTools) ExtractFrames(_ context.Context, req ffmpeg.ExtractRequest) error {
	for i := 1; i <= s.frames; i++ {
		if err := os.WriteFile(filepath.Join(req.OutputDir, fmt.Sprintf(req.Pattern, i)), []byte("png"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (stubTools) DecodeGray(_ context.Context, _ string, width, height int) ([]byte, error) {
	return bytes.Repeat([]byte{128}, width*height), nil
}

func (stubTools) Rasterize(_ context.Context, req magick.Request) error {
	return os.WriteFile(req.OutputPath, []byte("raster"), 0o644)
}

func (stubTools) ExtractAudio(_ context.Context, _, output string) error {
	return os.WriteFile(output, []byte("wav"), 0o644)
}

func (stubTools) CompressAudio(_ context.Context, _, output, _ string) error {
	return os.WriteFile(output, []byte("wav"), 0o644)
}

func (stubTools) Assemble(_ context.Context, _ []string, _ int, output string) error {
	return os.WriteFile(output, []byte("video"), 0o644)
}

func (stubTools) Mux(_ context.Context, _, _, _, output string) error {
	return os.WriteFile(output, []byte("final"), 0o644)
}

func (stubTools) CopyVideo(_ context.Context, _, output string) error {
	return os.WriteFile(output, []byte("final"), 0o644)
}

func useStubTools(t *testing.T, frames int) {
	t.Helper()
	prev := newTools
	stub := stubTools{frames: frames}
	newTools = func(*config.Config, *slog.Logger) pipeline.Tools {
		return pipeline.Tools{
			Prober:     stub,
			Extractor:  stub,
			Decoder:    stub,
			Rasterizer: stub,
			Audio:      stub,
			Assembler:  stub,
			Muxer:      stub,
		}
	}
	t.Cleanup(func() { newTools = prev })
}
