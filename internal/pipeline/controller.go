package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"asciireel/internal/ascii"
	"asciireel/internal/config"
	"asciireel/internal/logging"
	"asciireel/internal/manifest"
	"asciireel/internal/services"
	"asciireel/internal/stalecache"
	"asciireel/internal/workspace"
)

// Stage names used in logs, summaries, and observer callbacks.
const (
	StageProbe   = "probe"
	StageExtract = "extract"
	StageConvert = "convert"
	StageAudio   = "audio"
	StageRender  = "render"
	StageCombine = "combine"
)

// Controller runs conversions with one configuration and tool set.
type Controller struct {
	cfg      config.Config
	tools    Tools
	charset  ascii.Charset
	cache    *stalecache.Cache
	logger   *slog.Logger
	observer Observer
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver reports stage and batch progress to o.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// New validates the charset and tool set and returns a Controller. The
// config is copied.
func New(cfg *config.Config, tools Tools, logger *slog.Logger, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config is required", nil)
	}
	if !tools.complete() {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "every tool must be provided", nil)
	}
	charset, err := ascii.ParseCharset(cfg.Render.Charset)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "render.charset", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	c := &Controller{
		cfg:      *cfg,
		tools:    tools,
		charset:  charset,
		cache:    stalecache.New(cfg.Paths.CacheFile, logger),
		logger:   logger,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// run is the mutable state of one Run call.
type run struct {
	c       *Controller
	input   string
	output  string
	ws      *workspace.Workspace
	store   *manifest.Store
	meta    VideoMetadata
	audio   string
	summary *Summary
	logger  *slog.Logger
}

func (r *run) transition(s State) {
	r.summary.States = append(r.summary.States, s)
	r.logger.Debug("state transition", logging.String("state", string(s)))
}

// Run converts input into output. An empty output uses the configured
// default. The workspace is removed before Run returns on every path after it
// was acquired. The returned Summary is populated as far as the run got.
func (c *Controller) Run(ctx context.Context, input, output string) (summary Summary, err error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithInputPath(ctx, input)
	logger := logging.WithContext(ctx, c.logger)

	summary = Summary{RunID: runID, Input: input, Audio: AudioNone}
	r := &run{c: c, summary: &summary, logger: logger}
	r.transition(StateInit)
	defer func() { summary.Duration = time.Since(started) }()

	identity, err := stalecache.Identity(input)
	if err != nil {
		return summary, services.Wrap(services.ErrValidation, "pipeline", "resolve input", input, err)
	}
	info, err := os.Stat(identity)
	if err != nil {
		return summary, services.Wrap(services.ErrValidation, "pipeline", "open input", identity, err)
	}
	if info.IsDir() {
		return summary, services.Wrap(services.ErrValidation, "pipeline", "open input", identity+" is a directory", nil)
	}
	r.input = identity
	summary.Input = identity

	if strings.TrimSpace(output) == "" {
		output = c.cfg.DefaultOutputPath()
	}
	if r.output, err = filepath.Abs(output); err != nil {
		return summary, services.Wrap(services.ErrValidation, "pipeline", "resolve output", output, err)
	}
	summary.Output = r.output
	if r.output == identity {
		return summary, services.Wrap(services.ErrValidation, "pipeline", "resolve output", "output would overwrite the input", nil)
	}

	c.sweepStale(ctx, logger)

	ws, err := workspace.Open(c.cfg.Paths.WorkDir, identity)
	if err != nil {
		return summary, err
	}
	r.ws = ws
	summary.Workspace = ws.Dir()
	defer r.cleanup()

	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("output", r.output),
		logging.String("workspace", ws.Dir()),
	)

	store, err := r.openManifest(ctx)
	if err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "pipeline", "open manifest", ws.ManifestPath(), err)
	}
	r.store = store

	steps := []struct {
		name string
		fn   func(context.Context, *slog.Logger) error
	}{
		{StageProbe, r.probe},
		{StageExtract, r.extract},
		{StageConvert, r.convert},
		{StageAudio, r.prepareAudio},
		{StageRender, r.render},
		{StageCombine, r.combine},
	}
	for _, step := range steps {
		if err := r.stage(ctx, step.name, step.fn); err != nil {
			return summary, err
		}
	}

	logger.Info("conversion completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", r.output),
		logging.Int("frames", summary.Frames),
		logging.String("audio", string(summary.Audio)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return summary, nil
}

// openManifest opens the workspace manifest. A manifest written by another
// schema version is discarded together with the artifacts it indexed.
func (r *run) openManifest(ctx context.Context) (*manifest.Store, error) {
	store, err := manifest.Open(ctx, r.ws.ManifestPath())
	if !errors.Is(err, manifest.ErrSchemaMismatch) {
		return store, err
	}
	r.logger.Info("discarding manifest from another version", logging.Error(err))
	if err := r.ws.DiscardManifest(); err != nil {
		return nil, err
	}
	if err := r.ws.ResetArtifacts(); err != nil {
		return nil, err
	}
	return manifest.Open(ctx, r.ws.ManifestPath())
}

// stage wraps fn with start, completion, and failure logging.
func (r *run) stage(ctx context.Context, name string, fn func(context.Context, *slog.Logger) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, r.c.logger)

	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	r.c.observer.StageStarted(name)
	start := time.Now()

	err := fn(stageCtx, logger)
	elapsed := time.Since(start)
	r.summary.Stages = append(r.summary.Stages, StageTiming{Name: name, Duration: elapsed, Err: err})
	r.c.observer.StageFinished(name, err)

	if err != nil {
		details := services.Details(err)
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String("error_kind", details.Kind),
			logging.String("error_message", strings.TrimSpace(details.Message)),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

// cleanup closes the manifest and removes the workspace and its lock.
func (r *run) cleanup() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Debug("manifest close failed", logging.Error(err))
		}
		r.store = nil
	}
	if err := r.ws.Remove(); err != nil {
		logging.WarnWithContext(r.logger, "workspace cleanup incomplete", "workspace_cleanup_failed",
			logging.String("workspace", r.ws.Dir()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the directory by hand"),
			logging.String(logging.FieldImpact, "disk space is not reclaimed"),
		)
	}
	r.transition(StateCleanedUp)
	r.logger.Info("workspace removed",
		logging.String(logging.FieldEventType, "cleanup"),
		logging.String("final_state", string(r.summary.FinalState())),
	)
}

func (c *Controller) sweepStale(ctx context.Context, logger *slog.Logger) {
	maxAge := time.Duration(c.cfg.Workspace.StaleAfterHours) * time.Hour
	result := workspace.CleanStale(ctx, c.cfg.Paths.WorkDir, maxAge, logger)
	if len(result.Removed) > 0 {
		logger.Info("removed stale workspaces", logging.Int("count", len(result.Removed)))
	}
	for _, e := range result.Errors {
		logger.Debug("stale workspace sweep error", logging.String("path", e.Path), logging.Error(e.Error))
	}
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
