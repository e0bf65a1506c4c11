package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"asciireel/internal/ascii"
	"asciireel/internal/batch"
	"asciireel/internal/config"
	"asciireel/internal/logging"
	"asciireel/internal/manifest"
	"asciireel/internal/media/ffmpeg"
	"asciireel/internal/media/magick"
	"asciireel/internal/services"
	"asciireel/internal/workspace"
)

func (r *run) probe(ctx context.Context, logger *slog.Logger) error {
	info, err := r.c.tools.Prober.Probe(ctx, r.input)
	if err != nil {
		r.transition(StateProbeFailed)
		return services.Wrap(services.ErrProbe, StageProbe, "inspect source", r.input, err)
	}
	meta, err := BuildMetadata(info, r.c.cfg.Render, r.c.cfg.Video)
	if err != nil {
		r.transition(StateProbeFailed)
		return services.Wrap(services.ErrProbe, StageProbe, "read geometry", r.input, err)
	}
	r.meta = meta
	r.summary.Metadata = meta
	r.transition(StateProbed)
	logger.Info("source probed",
		logging.Int("width", meta.Width),
		logging.Int("height", meta.Height),
		logging.String("frame_rate", info.FrameRate),
		logging.Int("source_fps", meta.SourceFPS),
		logging.Int("output_fps", meta.OutputFPS),
		logging.Int("grid_width", meta.OutputWidth),
		logging.Int("grid_height", meta.OutputHeight),
		logging.Bool("has_audio", meta.HasAudio),
	)
	return nil
}

func (r *run) extractParams() manifest.Params {
	return manifest.Params{Width: r.meta.OutputWidth, Height: r.meta.OutputHeight, FPS: r.meta.OutputFPS}
}

// reusable reports whether the manifest holds a complete extraction of the
// unchanged input with the current parameters.
func (r *run) reusable(ctx context.Context, logger *slog.Logger) (bool, error) {
	frames, err := r.store.Frames(ctx)
	if err != nil {
		return false, err
	}
	if len(frames) == 0 {
		return false, nil
	}
	stored, ok, err := r.store.Params(ctx)
	if err != nil {
		return false, err
	}
	if !ok || stored != r.extractParams() {
		logger.Info("extraction parameters changed", logging.Bool("recorded", ok))
		return false, nil
	}
	if !r.c.cache.IsValid(r.input) {
		logger.Info("staleness cache does not match input")
		return false, nil
	}
	for _, f := range frames {
		if !workspace.Exists(r.ws.FramePath(f.Frame)) {
			logger.Info("indexed frame missing on disk", logging.String("frame", f.Frame))
			return false, nil
		}
	}
	return true, nil
}

// renderKey identifies the settings text and raster artifacts depend on
// beyond the extraction parameters.
func renderKey(cfg config.Render) string {
	return strings.Join([]string{
		cfg.Charset,
		cfg.Font,
		strconv.Itoa(cfg.FontSize),
		strconv.Itoa(cfg.OffsetX),
		strconv.Itoa(cfg.OffsetY),
		cfg.Foreground,
		cfg.Background,
	}, "\x1f")
}

// checkRenderKey discards reused text and raster artifacts that were produced
// with other render settings.
func (r *run) checkRenderKey(ctx context.Context, logger *slog.Logger) error {
	key := renderKey(r.c.cfg.Render)
	stored, err := r.store.RenderKey(ctx)
	if err != nil {
		return err
	}
	if stored == key {
		return nil
	}
	logger.Info("render settings changed, discarding text and raster artifacts")
	if err := r.ws.ResetDerived(); err != nil {
		return err
	}
	if err := r.store.ClearDerived(ctx); err != nil {
		return err
	}
	return r.store.SetRenderKey(ctx, key)
}

func (r *run) extract(ctx context.Context, logger *slog.Logger) error {
	reuse, err := r.reusable(ctx, logger)
	if err != nil {
		r.transition(StateExtractFailed)
		return services.Wrap(services.ErrExtraction, StageExtract, "read manifest", "", err)
	}
	if reuse {
		frames, _, _, err := r.store.Counts(ctx)
		if err != nil {
			r.transition(StateExtractFailed)
			return services.Wrap(services.ErrExtraction, StageExtract, "count frames", "", err)
		}
		if err := r.checkRenderKey(ctx, logger); err != nil {
			r.transition(StateExtractFailed)
			return services.Wrap(services.ErrExtraction, StageExtract, "check render settings", "", err)
		}
		r.summary.ReusedFrames = true
		r.summary.Frames = frames
		r.transition(StateExtracted)
		logger.Info("reusing extracted frames", logging.Int("frames", frames))
		return nil
	}

	if err := r.ws.ResetArtifacts(); err != nil {
		r.transition(StateExtractFailed)
		return services.Wrap(services.ErrExtraction, StageExtract, "discard stale artifacts", "", err)
	}
	if err := r.store.Reset(ctx); err != nil {
		r.transition(StateExtractFailed)
		return services.Wrap(services.ErrExtraction, StageExtract, "reset manifest", "", err)
	}

	params := r.extractParams()
	req := ffmpeg.ExtractRequest{
		Input:     r.input,
		OutputDir: r.ws.FramesDir(),
		Pattern:   workspace.FramePattern,
		Width:     params.Width,
		Height:    params.Height,
		FPS:       params.FPS,
	}
	if err := r.c.tools.Extractor.ExtractFrames(ctx, req); err != nil {
		r.transition(StateExtractFailed)
		return services.Wrap(services.ErrExtraction, StageExtract, "extract frames", r.input, err)
	}
	frames, err := r.ws.IndexFrames()
	if err != nil {
		r.transition(StateExtractFailed)
		return services.Wrap(services.ErrExtraction, StageExtract, "index frames", "", err)
	}
	if len(frames) == 0 {
		r.transition(StateExtractFailed)
		return services.Wrap(services.ErrExtraction, StageExtract, "index frames", "extractor produced no frames", nil)
	}
	if err := r.store.ReplaceFrames(ctx, params, frames); err != nil {
		r.transition(StateExtractFailed)
		return services.Wrap(services.ErrExtraction, StageExtract, "record frames", "", err)
	}
	if err := r.store.SetRenderKey(ctx, renderKey(r.c.cfg.Render)); err != nil {
		r.transition(StateExtractFailed)
		return services.Wrap(services.ErrExtraction, StageExtract, "record render settings", "", err)
	}
	if err := r.c.cache.Save(r.input); err != nil {
		logging.WarnWithContext(logger, "staleness cache not saved", "cache_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next run extracts frames again"),
		)
	}
	r.summary.Frames = len(frames)
	r.transition(StateExtracted)
	logger.Info("frames extracted", logging.Int("frames", len(frames)))
	return nil
}

func (r *run) convert(ctx context.Context, logger *slog.Logger) error {
	frames, err := r.store.Frames(ctx)
	if err != nil {
		return services.Wrap(services.ErrExtraction, StageConvert, "read manifest", "", err)
	}
	r.summary.Conversion.Total = len(frames)
	if allPresent(frames, func(f manifest.Frame) string { return f.Text }, r.ws.TextPath) {
		r.summary.Conversion.Skipped = len(frames)
		r.transition(StateConverted)
		logger.Info("text artifacts already complete", logging.Int("frames", len(frames)))
		return nil
	}

	width, height := r.meta.OutputWidth, r.meta.OutputHeight
	result := batch.Run(ctx, frames, batch.Options{
		Size:    r.c.cfg.Batch.ConvertSize,
		Workers: r.c.cfg.Batch.Workers,
		Label:   StageConvert,
		OnBatch: r.progress(logger),
	}, func(ctx context.Context, _ int, f manifest.Frame) (batch.Outcome, error) {
		name := ascii.TextName(f.Seq)
		path := r.ws.TextPath(name)
		if workspace.Exists(path) {
			if f.Text != name {
				if err := r.store.SetText(ctx, f.Seq, name); err != nil {
					return batch.Failed, err
				}
			}
			return batch.Skipped, nil
		}

		frame, decodeErr := r.renderFrame(ctx, f, width, height)
		if err := ctx.Err(); err != nil {
			return batch.Failed, err
		}
		if err := writeArtifact(path, []byte(frame.Text)); err != nil {
			return batch.Failed, err
		}
		if err := r.store.SetText(ctx, f.Seq, name); err != nil {
			return batch.Failed, err
		}
		if decodeErr != nil {
			return batch.Failed, decodeErr
		}
		return batch.Processed, nil
	})
	r.summary.Conversion.Processed = result.Processed
	r.summary.Conversion.Skipped = result.Skipped
	r.summary.Conversion.Failed = result.Failed
	if err := interrupted(ctx, result); err != nil {
		return fmt.Errorf("conversion interrupted: %w", err)
	}
	if result.Failed > 0 {
		logging.WarnWithContext(logger, "some frames could not be converted", "conversion_partial",
			logging.Int("failed", result.Failed),
			logging.Int("frames", len(frames)),
			logging.Error(result.Errors[0]),
			logging.String(logging.FieldImpact, "affected frames render dark"),
		)
	}
	r.transition(StateConverted)
	return nil
}

// renderFrame decodes and renders one frame. A decode failure yields an
// all-dark frame together with an ErrConversion error.
func (r *run) renderFrame(ctx context.Context, f manifest.Frame, width, height int) (ascii.Frame, error) {
	raw, err := r.c.tools.Decoder.DecodeGray(ctx, r.ws.FramePath(f.Frame), width, height)
	if err == nil && len(raw) == 0 {
		err = errors.New("decoder returned no samples")
	}
	if err != nil {
		return ascii.Blank(width, height, r.c.charset),
			services.Wrap(services.ErrConversion, StageConvert, "decode frame", f.Frame, err)
	}
	return ascii.Render(ascii.Decode(raw, width, height), r.c.charset), nil
}

func (r *run) prepareAudio(ctx context.Context, logger *slog.Logger) error {
	cfg := r.c.cfg.Audio
	if !cfg.Enabled {
		r.summary.Audio = AudioDisabled
		r.transition(StateAudioUnavailable)
		logger.Info("audio disabled")
		return nil
	}
	if !r.meta.HasAudio {
		r.summary.Audio = AudioNone
		r.transition(StateAudioUnavailable)
		logger.Info("source has no audio stream")
		return nil
	}

	raw := r.ws.AudioPath()
	if err := r.c.tools.Audio.ExtractAudio(ctx, r.input, raw); err != nil {
		if isCancelled(err) {
			return err
		}
		logging.WarnWithContext(logger, "audio extraction failed", "audio_unavailable",
			logging.Error(services.Wrap(services.ErrAudio, StageAudio, "extract", "", err)),
			logging.String(logging.FieldImpact, "output is silent"),
		)
		r.summary.Audio = AudioNone
		r.transition(StateAudioUnavailable)
		return nil
	}
	r.audio = raw
	r.summary.Audio = AudioRaw

	if cfg.Compress {
		compressed := r.ws.CompressedAudioPath()
		if err := r.c.tools.Audio.CompressAudio(ctx, raw, compressed, cfg.CompressFilter); err != nil {
			if isCancelled(err) {
				return err
			}
			logging.WarnWithContext(logger, "audio compression failed", "audio_compression_failed",
				logging.Error(services.Wrap(services.ErrAudio, StageAudio, "compress", "", err)),
				logging.String(logging.FieldImpact, "uncompressed audio is used"),
			)
		} else {
			r.audio = compressed
			r.summary.Audio = AudioCompressed
		}
	}
	r.transition(StateAudioReady)
	return nil
}

func (r *run) render(ctx context.Context, logger *slog.Logger) error {
	frames, err := r.store.Frames(ctx)
	if err != nil {
		r.transition(StateRenderFailed)
		return services.Wrap(services.ErrRender, StageRender, "read manifest", "", err)
	}
	texts := make([]manifest.Frame, 0, len(frames))
	for _, f := range frames {
		if f.Text != "" {
			texts = append(texts, f)
		}
	}
	r.summary.Render.Total = len(texts)
	if len(texts) == 0 {
		r.transition(StateRenderFailed)
		return services.Wrap(services.ErrRender, StageRender, "collect text", "no text artifacts", nil)
	}

	render := r.c.cfg.Render
	pointSize := render.FontSize
	if pointSize <= 0 {
		pointSize = magick.FitPointSize(r.meta.Height, r.meta.OutputHeight)
	}
	result := batch.Run(ctx, texts, batch.Options{
		Size:    r.c.cfg.Batch.RenderSize,
		Workers: r.c.cfg.Batch.Workers,
		Label:   StageRender,
		OnBatch: r.progress(logger),
	}, func(ctx context.Context, _ int, f manifest.Frame) (batch.Outcome, error) {
		name := rasterName(f.Text)
		path := r.ws.RasterPath(name)
		if workspace.Exists(path) {
			if f.Raster != name {
				if err := r.store.SetRaster(ctx, f.Seq, name); err != nil {
					return batch.Failed, err
				}
			}
			return batch.Skipped, nil
		}
		err := r.c.tools.Rasterizer.Rasterize(ctx, magick.Request{
			TextPath:   r.ws.TextPath(f.Text),
			OutputPath: path,
			Width:      r.meta.Width,
			Height:     r.meta.Height,
			Font:       render.Font,
			PointSize:  pointSize,
			OffsetX:    render.OffsetX,
			OffsetY:    render.OffsetY,
			Foreground: render.Foreground,
			Background: render.Background,
		})
		if err != nil {
			return batch.Failed, err
		}
		if err := r.store.SetRaster(ctx, f.Seq, name); err != nil {
			return batch.Failed, err
		}
		return batch.Processed, nil
	})
	r.summary.Render.Processed = result.Processed
	r.summary.Render.Skipped = result.Skipped
	r.summary.Render.Failed = result.Failed
	if err := interrupted(ctx, result); err != nil {
		return fmt.Errorf("render interrupted: %w", err)
	}
	if result.Failed > 0 {
		logging.WarnWithContext(logger, "some frames could not be rasterized", "render_partial",
			logging.Int("failed", result.Failed),
			logging.Error(result.Errors[0]),
			logging.String(logging.FieldImpact, "neighbouring frames are held in their place"),
		)
	}

	frames, err = r.store.Frames(ctx)
	if err != nil {
		r.transition(StateRenderFailed)
		return services.Wrap(services.ErrRender, StageRender, "read manifest", "", err)
	}
	timeline, held := Timeline(frames, r.ws.RasterPath)
	if len(timeline) == 0 {
		r.transition(StateRenderFailed)
		return services.Wrap(services.ErrRender, StageRender, "assemble", "no frame could be rasterized", nil)
	}
	r.summary.HeldFrames = held

	video := r.ws.VideoPath(r.c.cfg.Video.Container)
	if err := r.c.tools.Assembler.Assemble(ctx, timeline, r.meta.OutputFPS, video); err != nil {
		r.transition(StateRenderFailed)
		return services.Wrap(services.ErrRender, StageRender, "assemble video", r.c.cfg.Video.Encoder, err)
	}
	r.transition(StateRendered)
	logger.Info("video assembled",
		logging.Int("frames", len(timeline)),
		logging.Int("held_frames", held),
		logging.String("encoder", r.c.cfg.Video.Encoder),
	)
	return nil
}

func (r *run) combine(ctx context.Context, logger *slog.Logger) error {
	video := r.ws.VideoPath(r.c.cfg.Video.Container)
	if err := os.MkdirAll(filepath.Dir(r.output), 0o755); err != nil {
		r.transition(StateCombineFailed)
		return services.Wrap(services.ErrCombine, StageCombine, "create output directory", filepath.Dir(r.output), err)
	}

	var err error
	if r.audio != "" {
		err = r.c.tools.Muxer.Mux(ctx, video, r.audio, r.c.cfg.Audio.Bitrate, r.output)
	} else {
		err = r.c.tools.Muxer.CopyVideo(ctx, video, r.output)
	}
	if err != nil {
		r.transition(StateCombineFailed)
		return services.Wrap(services.ErrCombine, StageCombine, "write output", r.output, err)
	}
	if info, statErr := os.Stat(r.output); statErr == nil {
		r.summary.OutputBytes = info.Size()
	}
	r.transition(StateCombined)
	logger.Info("output written",
		logging.String("output", r.output),
		logging.Int64("bytes", r.summary.OutputBytes),
		logging.Bool("with_audio", r.audio != ""),
	)
	return nil
}

// progress returns the batch callback forwarding to the observer and
// sampled logs.
func (r *run) progress(logger *slog.Logger) batch.Progress {
	sampler := logging.NewProgressSampler(10)
	return func(completed, total int, label string) {
		r.c.observer.Progress(label, completed, total)
		percent := logging.Percent(completed, total)
		if sampler.ShouldLog(percent, label) {
			logger.Info("batch progress",
				logging.String(logging.FieldEventType, "progress"),
				logging.Int("completed", completed),
				logging.Int("total", total),
				logging.Float64("percent", percent),
			)
		}
	}
}

// Timeline lists one raster per frame in sequence order. A frame without a
// raster repeats the previous raster; leading gaps take the first available
// one. held counts the substituted slots.
func Timeline(frames []manifest.Frame, rasterPath func(string) string) (paths []string, held int) {
	first := ""
	for _, f := range frames {
		if f.Raster != "" && workspace.Exists(rasterPath(f.Raster)) {
			first = rasterPath(f.Raster)
			break
		}
	}
	if first == "" {
		return nil, 0
	}
	paths = make([]string, 0, len(frames))
	last := first
	for _, f := range frames {
		if f.Raster != "" {
			if path := rasterPath(f.Raster); workspace.Exists(path) {
				last = path
				paths = append(paths, path)
				continue
			}
		}
		held++
		paths = append(paths, last)
	}
	return paths, held
}

// interrupted returns the cancellation that stopped a batch, including one
// that arrived during the final chunk.
func interrupted(ctx context.Context, result batch.Result) error {
	if result.Err != nil {
		return result.Err
	}
	return ctx.Err()
}

func rasterName(textName string) string {
	return strings.TrimSuffix(textName, filepath.Ext(textName)) + ".png"
}

func allPresent(frames []manifest.Frame, name func(manifest.Frame) string, path func(string) string) bool {
	if len(frames) == 0 {
		return false
	}
	for _, f := range frames {
		n := name(f)
		if n == "" || !workspace.Exists(path(n)) {
			return false
		}
	}
	return true
}

// writeArtifact writes data to a temp file beside path and renames it into
// place.
func writeArtifact(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
