package config

import "path/filepath"

const (
	defaultLogDir           = "~/.local/share/asciireel/logs"
	defaultCharset          = " .:-=+*#%@"
	defaultOutputWidth      = 120
	defaultAspectCorrection = 0.5
	defaultFont             = "DejaVu-Sans-Mono"
	defaultForeground       = "white"
	defaultBackground       = "black"
	defaultFrameRate        = 24
	defaultContainer        = "mp4"
	defaultEncoder          = EncoderX264
	defaultCRF              = 18
	defaultPreset           = "medium"
	defaultAudioBitrate     = "192k"
	defaultCompressFilter   = "acompressor=threshold=-18dB:ratio=3:attack=20:release=250"
	defaultConvertBatchSize = 100
	defaultRenderBatchSize  = 50
	defaultWorkers          = 1
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultMagickBinary     = "magick"
	defaultStaleAfterHours  = 72
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Encoder backends accepted by video.encoder.
const (
	EncoderX264   = "libx264"
	EncoderDrapto = "drapto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	cacheBase := defaultCacheBase()
	return Config{
		Paths: Paths{
			WorkDir:   filepath.Join(cacheBase, "work"),
			CacheFile: filepath.Join(cacheBase, "extract.cache"),
			LogDir:    defaultLogDir,
		},
		Render: Render{
			Charset:          defaultCharset,
			OutputWidth:      defaultOutputWidth,
			AspectCorrection: defaultAspectCorrection,
			Font:             defaultFont,
			Foreground:       defaultForeground,
			Background:       defaultBackground,
		},
		Video: Video{
			FrameRate:       defaultFrameRate,
			MatchSourceRate: true,
			Container:       defaultContainer,
			Encoder:         defaultEncoder,
			CRF:             defaultCRF,
			Preset:          defaultPreset,
		},
		Audio: Audio{
			Enabled:        true,
			Bitrate:        defaultAudioBitrate,
			Compress:       true,
			CompressFilter: defaultCompressFilter,
		},
		Batch: Batch{
			ConvertSize: defaultConvertBatchSize,
			RenderSize:  defaultRenderBatchSize,
			Workers:     defaultWorkers,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
			Magick:  defaultMagickBinary,
		},
		Workspace: Workspace{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
