package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"asciireel/internal/config"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("ASCIIREEL_FFMPEG", "")
	t.Setenv("ASCIIREEL_FFPROBE", "")
	t.Setenv("ASCIIREEL_MAGICK", "")
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateHome(t)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(home, ".cache", "asciireel", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	wantCache := filepath.Join(home, ".cache", "asciireel", "extract.cache")
	if cfg.Paths.CacheFile != wantCache {
		t.Fatalf("unexpected cache file: got %q want %q", cfg.Paths.CacheFile, wantCache)
	}
	wantLogs := filepath.Join(home, ".local", "share", "asciireel", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Render.Charset != " .:-=+*#%@" {
		t.Fatalf("unexpected charset %q", cfg.Render.Charset)
	}
	if cfg.Render.OutputWidth != 120 || cfg.Render.AspectCorrection != 0.5 {
		t.Fatalf("unexpected render grid defaults: %+v", cfg.Render)
	}
	if cfg.Video.FrameRate != 24 || !cfg.Video.MatchSourceRate {
		t.Fatalf("unexpected video defaults: %+v", cfg.Video)
	}
	if cfg.DefaultOutputPath() != "output_ascii.mp4" {
		t.Fatalf("unexpected default output %q", cfg.DefaultOutputPath())
	}
	if !cfg.Audio.Enabled || cfg.Audio.Bitrate != "192k" {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" || cfg.MagickBinary() != "magick" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateHome(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `[paths]
work_dir = "~/reel-work"
cache_file = "/var/tmp/reel.cache"

[render]
charset = " .oO"
output_width = 80

[video]
frame_rate = 30
container = "MKV"
encoder = "drapto"

[batch]
workers = 4
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("expected resolved path %q, got %q", configPath, resolved)
	}
	home, _ := os.UserHomeDir()
	if cfg.Paths.WorkDir != filepath.Join(home, "reel-work") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Render.Charset != " .oO" {
		t.Fatalf("expected leading space preserved, got %q", cfg.Render.Charset)
	}
	if cfg.Render.OutputWidth != 80 {
		t.Fatalf("unexpected output width %d", cfg.Render.OutputWidth)
	}
	if cfg.Video.Container != "mkv" || cfg.Video.Encoder != config.EncoderDrapto {
		t.Fatalf("unexpected video config: %+v", cfg.Video)
	}
	if cfg.Batch.Workers != 4 || cfg.Batch.ConvertSize != 100 {
		t.Fatalf("unexpected batch config: %+v", cfg.Batch)
	}
}

func TestToolEnvironmentOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("ASCIIREEL_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("ASCIIREEL_MAGICK", "convert")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected ffmpeg override, got %q", cfg.FFmpegBinary())
	}
	if cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("expected ffprobe default, got %q", cfg.FFprobeBinary())
	}
	if cfg.MagickBinary() != "convert" {
		t.Fatalf("expected magick override, got %q", cfg.MagickBinary())
	}
}

func TestCreateSample(t *testing.T) {
	isolateHome(t)

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	text := string(data)
	for _, section := range []string{"[paths]", "[render]", "[video]", "[audio]", "[batch]", "[tools]", "[workspace]", "[logging]"} {
		if !strings.Contains(text, section) {
			t.Fatalf("sample config missing %s", section)
		}
	}

	var sample config.Config
	if err := toml.Unmarshal(data, &sample); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	defaults := config.Default()
	if sample.Render.Charset != defaults.Render.Charset {
		t.Fatalf("sample charset %q differs from default %q", sample.Render.Charset, defaults.Render.Charset)
	}
	if sample.Batch != defaults.Batch {
		t.Fatalf("sample batch %+v differs from default %+v", sample.Batch, defaults.Batch)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	isolateHome(t)

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"short charset", func(c *config.Config) { c.Render.Charset = "#" }, "render.charset"},
		{"wide glyph", func(c *config.Config) { c.Render.Charset = " 漢" }, "double-width"},
		{"line break", func(c *config.Config) { c.Render.Charset = " \n#" }, "line breaks"},
		{"container", func(c *config.Config) { c.Video.Container = "avi" }, "video.container"},
		{"encoder", func(c *config.Config) { c.Video.Encoder = "libvpx" }, "video.encoder"},
		{"drapto container", func(c *config.Config) { c.Video.Encoder = config.EncoderDrapto }, "requires"},
		{"crf", func(c *config.Config) { c.Video.CRF = 70 }, "video.crf"},
		{"bitrate", func(c *config.Config) { c.Audio.Bitrate = "192000" }, "audio.bitrate"},
		{"workers", func(c *config.Config) { c.Batch.Workers = 0 }, "batch.workers"},
		{"level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"cache inside work dir", func(c *config.Config) { c.Paths.CacheFile = filepath.Join(c.Paths.WorkDir, "x.cache") }, "outside"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.CacheFile = filepath.Join(base, "cache", "extract.cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, filepath.Dir(cfg.Paths.CacheFile), cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
