package config

import (
	"errors"
	"fmt"
	"strings"

	"asciireel/internal/ascii"
)

var supportedContainers = map[string]struct{}{
	"mp4":  {},
	"mkv":  {},
	"mov":  {},
	"webm": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"batch.convert_size": c.Batch.ConvertSize,
		"batch.render_size":  c.Batch.RenderSize,
		"batch.workers":      c.Batch.Workers,
	})
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CacheFile) == "" {
		return errors.New("paths.cache_file must be set")
	}
	if strings.HasPrefix(c.Paths.CacheFile, strings.TrimSuffix(c.Paths.WorkDir, "/")+"/") {
		return errors.New("paths.cache_file must live outside paths.work_dir")
	}
	return nil
}

func (c *Config) validateRender() error {
	if _, err := ascii.ParseCharset(c.Render.Charset); err != nil {
		return fmt.Errorf("render.charset: %w", err)
	}
	if c.Render.AspectCorrection > 4 {
		return errors.New("render.aspect_correction must be between 0 and 4")
	}
	if c.Render.OffsetX < 0 || c.Render.OffsetY < 0 {
		return errors.New("render.offset_x and render.offset_y must be >= 0")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if _, ok := supportedContainers[c.Video.Container]; !ok {
		return fmt.Errorf("video.container %q is not supported (mp4, mkv, mov, webm)", c.Video.Container)
	}
	switch c.Video.Encoder {
	case EncoderX264:
	case EncoderDrapto:
		if c.Video.Container != "mkv" {
			return errors.New("video.encoder drapto requires video.container = \"mkv\"")
		}
	default:
		return fmt.Errorf("video.encoder %q is not supported (libx264, drapto)", c.Video.Encoder)
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return errors.New("video.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.Enabled && !strings.HasSuffix(strings.ToLower(c.Audio.Bitrate), "k") {
		return fmt.Errorf("audio.bitrate %q must be expressed in kbit/s (e.g. 192k)", c.Audio.Bitrate)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not supported (debug, info, warn, error)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
