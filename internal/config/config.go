package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains workspace, cache, and log locations.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	CacheFile string `toml:"cache_file"`
	LogDir    string `toml:"log_dir"`
}

// Render controls how frames are turned into ASCII text and rasterized back
// into images.
type Render struct {
	Charset          string  `toml:"charset"`
	OutputWidth      int     `toml:"output_width"`
	AspectCorrection float64 `toml:"aspect_correction"`
	Font             string  `toml:"font"`
	// FontSize is the rasterizer point size. Zero fits the text grid to the
	// source frame height.
	FontSize   int    `toml:"font_size"`
	OffsetX    int    `toml:"offset_x"`
	OffsetY    int    `toml:"offset_y"`
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`
}

// Video contains frame-rate and encoder settings for extraction and assembly.
type Video struct {
	// FrameRate is the configured target rate and the fallback when the
	// probed source rate is unusable.
	FrameRate       int    `toml:"frame_rate"`
	MatchSourceRate bool   `toml:"match_source_rate"`
	Container       string `toml:"container"`
	Encoder         string `toml:"encoder"`
	CRF             int    `toml:"crf"`
	Preset          string `toml:"preset"`
}

// Audio contains soundtrack extraction and remux settings.
type Audio struct {
	Enabled        bool   `toml:"enabled"`
	Bitrate        string `toml:"bitrate"`
	Compress       bool   `toml:"compress"`
	CompressFilter string `toml:"compress_filter"`
}

// Batch sizes the chunks driven through the conversion and rasterization
// stages.
type Batch struct {
	ConvertSize int `toml:"convert_size"`
	RenderSize  int `toml:"render_size"`
	Workers     int `toml:"workers"`
}

// Tools names the external binaries and their optional timeout.
type Tools struct {
	FFmpeg         string `toml:"ffmpeg"`
	FFprobe        string `toml:"ffprobe"`
	Magick         string `toml:"magick"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workspace controls housekeeping of per-input working directories.
type Workspace struct {
	StaleAfterHours int `toml:"stale_after_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for asciireel.
//
// Configuration sections by subsystem:
//   - Paths: workspace root, staleness cache file, log directory
//   - Render: charset, text grid size, rasterizer font and colours
//   - Video: frame rate policy and encoder backend
//   - Audio: soundtrack extraction, compression, and bitrate
//   - Batch: chunk sizes and per-chunk worker count
//   - Tools: external binary names and timeout
//   - Workspace: abandoned workspace sweeping
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Render    Render    `toml:"render"`
	Video     Video     `toml:"video"`
	Audio     Audio     `toml:"audio"`
	Batch     Batch     `toml:"batch"`
	Tools     Tools     `toml:"tools"`
	Workspace Workspace `toml:"workspace"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/asciireel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/asciireel/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("asciireel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the workspace root, the cache file's parent, and
// the log directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, filepath.Dir(c.Paths.CacheFile)}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return c.Tools.FFmpeg
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return c.Tools.FFprobe
}

// MagickBinary returns the ImageMagick executable used for rasterization.
func (c *Config) MagickBinary() string {
	return c.Tools.Magick
}

// DefaultOutputPath returns the output file used when none is given on the
// command line.
func (c *Config) DefaultOutputPath() string {
	return "output_ascii." + c.Video.Container
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheBase() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "asciireel")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/asciireel"
	}
	return filepath.Join(home, ".cache", "asciireel")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
