package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeVideo()
	c.normalizeAudio()
	c.normalizeBatch()
	c.normalizeTools()
	if c.Workspace.StaleAfterHours < 0 {
		c.Workspace.StaleAfterHours = 0
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = filepath.Join(defaultCacheBase(), "work")
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheFile) == "" {
		c.Paths.CacheFile = filepath.Join(defaultCacheBase(), "extract.cache")
	}
	if c.Paths.CacheFile, err = expandPath(c.Paths.CacheFile); err != nil {
		return fmt.Errorf("paths.cache_file: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	// Not trimmed: a leading space is the usual darkest glyph.
	if c.Render.Charset == "" {
		c.Render.Charset = defaultCharset
	}
	if c.Render.OutputWidth <= 0 {
		c.Render.OutputWidth = defaultOutputWidth
	}
	if c.Render.AspectCorrection <= 0 {
		c.Render.AspectCorrection = defaultAspectCorrection
	}
	c.Render.Font = strings.TrimSpace(c.Render.Font)
	if c.Render.Font == "" {
		c.Render.Font = defaultFont
	}
	if c.Render.FontSize < 0 {
		c.Render.FontSize = 0
	}
	c.Render.Foreground = strings.TrimSpace(c.Render.Foreground)
	if c.Render.Foreground == "" {
		c.Render.Foreground = defaultForeground
	}
	c.Render.Background = strings.TrimSpace(c.Render.Background)
	if c.Render.Background == "" {
		c.Render.Background = defaultBackground
	}
}

func (c *Config) normalizeVideo() {
	if c.Video.FrameRate <= 0 {
		c.Video.FrameRate = defaultFrameRate
	}
	c.Video.Container = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Video.Container)), ".")
	if c.Video.Container == "" {
		c.Video.Container = defaultContainer
	}
	c.Video.Encoder = strings.ToLower(strings.TrimSpace(c.Video.Encoder))
	if c.Video.Encoder == "" {
		c.Video.Encoder = defaultEncoder
	}
	c.Video.Preset = strings.TrimSpace(c.Video.Preset)
	if c.Video.Preset == "" {
		c.Video.Preset = defaultPreset
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.Bitrate = strings.TrimSpace(c.Audio.Bitrate)
	if c.Audio.Bitrate == "" {
		c.Audio.Bitrate = defaultAudioBitrate
	}
	c.Audio.CompressFilter = strings.TrimSpace(c.Audio.CompressFilter)
	if c.Audio.CompressFilter == "" {
		c.Audio.CompressFilter = defaultCompressFilter
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.ConvertSize <= 0 {
		c.Batch.ConvertSize = defaultConvertBatchSize
	}
	if c.Batch.RenderSize <= 0 {
		c.Batch.RenderSize = defaultRenderBatchSize
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = defaultWorkers
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = toolOverride("ASCIIREEL_FFMPEG", c.Tools.FFmpeg, defaultFFmpegBinary)
	c.Tools.FFprobe = toolOverride("ASCIIREEL_FFPROBE", c.Tools.FFprobe, defaultFFprobeBinary)
	c.Tools.Magick = toolOverride("ASCIIREEL_MAGICK", c.Tools.Magick, defaultMagickBinary)
	if c.Tools.TimeoutSeconds < 0 {
		c.Tools.TimeoutSeconds = 0
	}
}

// toolOverride prefers the environment, then the file value, then the default.
func toolOverride(envKey, value, fallback string) string {
	if env, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(env) != "" {
		return strings.TrimSpace(env)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
