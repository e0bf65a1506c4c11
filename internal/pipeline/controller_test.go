package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"asciireel/internal/config"
	"asciireel/internal/manifest"
	"asciireel/internal/services"
	"asciireel/internal/stalecache"
	"asciireel/internal/testsupport"
	"asciireel/internal/workspace"
)

func newTestConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithOutputWidth(8)}, opts...)
	return testsupport.NewConfig(t, opts...)
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteText(t, path, "source video")
	return path
}

func newController(t *testing.T, cfg *config.Config, f *fakes, opts ...Option) *Controller {
	t.Helper()
	c, err := New(cfg, f.tools(), nil, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func workspaceDir(t *testing.T, cfg *config.Config, input string) string {
	t.Helper()
	identity, err := stalecache.Identity(input)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	return filepath.Join(cfg.Paths.WorkDir, workspace.DirName(identity))
}

func assertWorkspaceRemoved(t *testing.T, dir string) {
	t.Helper()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("workspace %s should be removed, stat err = %v", dir, err)
	}
	if _, err := os.Stat(dir + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file should be removed, stat err = %v", err)
	}
}

// seedWorkspace lays out a workspace as a run killed after extraction
// leaves it.
func seedWorkspace(t *testing.T, cfg *config.Config, input string, frames int, params manifest.Params) string {
	t.Helper()
	dir := workspaceDir(t, cfg, input)
	rows := make([]manifest.Frame, 0, frames)
	for i := 1; i <= frames; i++ {
		name := fmt.Sprintf("frame_%06d.png", i)
		testsupport.WriteText(t, filepath.Join(dir, "frames", name), "png")
		rows = append(rows, manifest.Frame{Seq: i, Frame: name})
	}
	for _, sub := range []string{"text", "raster"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", sub, err)
		}
	}
	ctx := context.Background()
	store, err := manifest.Open(ctx, filepath.Join(dir, workspace.ManifestName))
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	if err := store.ReplaceFrames(ctx, params, rows); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}
	if err := store.SetRenderKey(ctx, renderKey(cfg.Render)); err != nil {
		t.Fatalf("seed render key: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close manifest: %v", err)
	}
	if err := stalecache.New(cfg.Paths.CacheFile, nil).Save(input); err != nil {
		t.Fatalf("save cache: %v", err)
	}
	return dir
}

// 320x240 at 8 columns with 0.5 aspect correction gives 3 rows.
var seededParams = manifest.Params{Width: 8, Height: 3, FPS: 24}

func TestRunProducesOutputAndCleansUp(t *testing.T) {
	cfg := newTestConfig(t)
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "out", "ascii.mp4")
	f := newFakes(5)
	obs := &recordingObserver{}

	summary, err := newController(t, cfg, f, WithObserver(obs)).Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if summary.FinalState() != StateCombined {
		t.Fatalf("final state = %s, want %s", summary.FinalState(), StateCombined)
	}
	if last := summary.States[len(summary.States)-1]; last != StateCleanedUp {
		t.Fatalf("last state = %s, want %s", last, StateCleanedUp)
	}
	if summary.Duration <= 0 {
		t.Fatalf("duration = %v, want the elapsed run time", summary.Duration)
	}
	if summary.Frames != 5 || summary.Conversion.Processed != 5 || summary.Render.Processed != 5 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.Audio != AudioCompressed || !strings.HasSuffix(f.muxer.muxAudio, "audio_compressed.wav") {
		t.Fatalf("audio = %s, muxed %q", summary.Audio, f.muxer.muxAudio)
	}
	if f.extractor.last.Width != 8 || f.extractor.last.Height != 3 || f.extractor.last.FPS != 24 {
		t.Fatalf("extract request = %+v", f.extractor.last)
	}
	if f.assembler.fps != 24 || len(f.assembler.frames) != 5 {
		t.Fatalf("assembler got %d frames at %d fps", len(f.assembler.frames), f.assembler.fps)
	}
	if summary.OutputBytes == 0 {
		t.Fatal("expected output size in summary")
	}
	assertWorkspaceRemoved(t, workspaceDir(t, cfg, input))

	record, ok, err := stalecache.New(cfg.Paths.CacheFile, nil).Load()
	if err != nil || !ok {
		t.Fatalf("cache record missing: ok=%v err=%v", ok, err)
	}
	if record.InputIdentity != summary.Input {
		t.Fatalf("cache identity = %q, want %q", record.InputIdentity, summary.Input)
	}

	// 5 frames in chunks of 2: cumulative counts 2, 4, 5.
	got := obs.progress[StageConvert]
	if len(got) != 3 || got[0] != 2 || got[1] != 4 || got[2] != 5 {
		t.Fatalf("convert progress = %v", got)
	}
	wantStages := []string{StageProbe, StageExtract, StageConvert, StageAudio, StageRender, StageCombine}
	if strings.Join(obs.started, ",") != strings.Join(wantStages, ",") {
		t.Fatalf("stages = %v", obs.started)
	}
}

func TestRunCleansUpOnFatalStates(t *testing.T) {
	boom := errors.New("tool exploded")
	tests := []struct {
		name   string
		mutate func(*fakes)
		marker error
		state  State
	}{
		{"probe", func(f *fakes) { f.prober.err = boom }, services.ErrProbe, StateProbeFailed},
		{"probe geometry", func(f *fakes) { f.prober.info.Width = 0 }, services.ErrProbe, StateProbeFailed},
		{"extract", func(f *fakes) { f.extractor.err = boom }, services.ErrExtraction, StateExtractFailed},
		{"zero frames", func(f *fakes) { f.extractor.frames = 0 }, services.ErrExtraction, StateExtractFailed},
		{"assemble", func(f *fakes) { f.assembler.err = boom }, services.ErrRender, StateRenderFailed},
		{"no rasters", func(f *fakes) {
			f.rasterizer.fail = map[string]bool{"ascii_000001.png": true, "ascii_000002.png": true}
		}, services.ErrRender, StateRenderFailed},
		{"combine", func(f *fakes) { f.muxer.err = boom }, services.ErrCombine, StateCombineFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			input := writeInput(t)
			f := newFakes(2)
			tt.mutate(f)

			summary, err := newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
			if !errors.Is(err, tt.marker) {
				t.Fatalf("err = %v, want %v", err, tt.marker)
			}
			if summary.FinalState() != tt.state {
				t.Fatalf("final state = %s, want %s", summary.FinalState(), tt.state)
			}
			if last := summary.States[len(summary.States)-1]; last != StateCleanedUp {
				t.Fatalf("last state = %s, want cleanup", last)
			}
			assertWorkspaceRemoved(t, workspaceDir(t, cfg, input))
		})
	}
}

func TestRunReusesSurvivingWorkspace(t *testing.T) {
	cfg := newTestConfig(t)
	input := writeInput(t)
	dir := seedWorkspace(t, cfg, input, 3, seededParams)
	f := newFakes(3)

	summary, err := newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.extractor.calls != 0 {
		t.Fatalf("extractor calls = %d, want 0", f.extractor.calls)
	}
	if !summary.ReusedFrames || summary.Frames != 3 {
		t.Fatalf("summary = %+v, want reused 3 frames", summary)
	}
	assertWorkspaceRemoved(t, dir)
}

func TestRunReextractsWhenInvalid(t *testing.T) {
	tests := []struct {
		name   string
		params manifest.Params
		touch  bool
	}{
		{"params changed", manifest.Params{Width: 16, Height: 6, FPS: 24}, false},
		{"input changed", seededParams, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			input := writeInput(t)
			seedWorkspace(t, cfg, input, 3, tt.params)
			if tt.touch {
				testsupport.WriteText(t, input, "a different source video")
			}
			f := newFakes(2)

			summary, err := newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if f.extractor.calls != 1 {
				t.Fatalf("extractor calls = %d, want 1", f.extractor.calls)
			}
			if summary.ReusedFrames || summary.Frames != 2 {
				t.Fatalf("summary = %+v, want 2 fresh frames", summary)
			}
		})
	}
}

func TestRunSkipsExistingArtifacts(t *testing.T) {
	cfg := newTestConfig(t)
	input := writeInput(t)
	dir := seedWorkspace(t, cfg, input, 3, seededParams)
	testsupport.WriteText(t, filepath.Join(dir, "text", "ascii_000001.txt"), "cached")
	testsupport.WriteText(t, filepath.Join(dir, "raster", "ascii_000001.png"), "cached")
	f := newFakes(3)

	summary, err := newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range f.decoder.calls {
		if name == "frame_000001.png" {
			t.Fatal("decoder called for a frame with an existing text artifact")
		}
	}
	for _, name := range f.rasterizer.calls {
		if name == "ascii_000001.png" {
			t.Fatal("rasterizer called for a frame with an existing raster")
		}
	}
	if summary.Conversion.Skipped != 1 || summary.Conversion.Processed != 2 {
		t.Fatalf("conversion = %+v", summary.Conversion)
	}
	if summary.Render.Skipped != 1 || summary.Render.Processed != 2 {
		t.Fatalf("render = %+v", summary.Render)
	}
	if f.assembler.first != "cached" {
		t.Fatalf("first raster content = %q, want the cached artifact untouched", f.assembler.first)
	}
}

func TestRunDiscardsArtifactsWhenRenderSettingsChange(t *testing.T) {
	cfg := newTestConfig(t)
	input := writeInput(t)
	dir := seedWorkspace(t, cfg, input, 2, seededParams)
	for i := 1; i <= 2; i++ {
		testsupport.WriteText(t, filepath.Join(dir, "text", fmt.Sprintf("ascii_%06d.txt", i)), "cached")
		testsupport.WriteText(t, filepath.Join(dir, "raster", fmt.Sprintf("ascii_%06d.png", i)), "cached")
	}
	cfg.Render.Charset = " #"
	f := newFakes(2)
	f.decoder.value = 255

	summary, err := newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.extractor.calls != 0 || !summary.ReusedFrames {
		t.Fatalf("frames should be reused, extractor calls = %d", f.extractor.calls)
	}
	if len(f.decoder.calls) != 2 || len(f.rasterizer.calls) != 2 {
		t.Fatalf("decoder calls = %v, rasterizer calls = %v, want both frames redone", f.decoder.calls, f.rasterizer.calls)
	}
	if summary.Conversion.Skipped != 0 || summary.Render.Skipped != 0 {
		t.Fatalf("conversion = %+v, render = %+v", summary.Conversion, summary.Render)
	}
	if got := f.rasterizer.texts["ascii_000001.png"]; strings.Contains(got, "cached") || !strings.Contains(got, "#") {
		t.Fatalf("frame 1 text = %q, want a fresh render with the new charset", got)
	}
}

func TestRunDiscardsManifestFromOtherVersion(t *testing.T) {
	cfg := newTestConfig(t)
	input := writeInput(t)
	dir := seedWorkspace(t, cfg, input, 3, seededParams)
	testsupport.WriteText(t, filepath.Join(dir, "text", "ascii_000001.txt"), "cached")

	db, err := sql.Open("sqlite", filepath.Join(dir, workspace.ManifestName))
	if err != nil {
		t.Fatalf("open raw manifest: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()
	f := newFakes(2)

	summary, err := newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.extractor.calls != 1 || summary.ReusedFrames || summary.Frames != 2 {
		t.Fatalf("extractor calls = %d, summary = %+v, want a fresh extraction", f.extractor.calls, summary)
	}
	if summary.Conversion.Skipped != 0 {
		t.Fatalf("conversion = %+v, want stale text discarded", summary.Conversion)
	}
	assertWorkspaceRemoved(t, dir)
}

func TestRunDecodeFailureRendersDarkFrame(t *testing.T) {
	cfg := newTestConfig(t)
	input := writeInput(t)
	f := newFakes(2)
	f.decoder.value = 255
	f.decoder.fail = map[string]bool{"frame_000002.png": true}

	summary, err := newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Conversion.Failed != 1 {
		t.Fatalf("conversion = %+v, want one failure", summary.Conversion)
	}
	bright := strings.Repeat("@", 8)
	dark := strings.Repeat(" ", 8)
	if got := f.rasterizer.texts["ascii_000001.png"]; got != strings.Join([]string{bright, bright, bright}, "\n") {
		t.Fatalf("frame 1 text = %q", got)
	}
	if got := f.rasterizer.texts["ascii_000002.png"]; got != strings.Join([]string{dark, dark, dark}, "\n") {
		t.Fatalf("frame 2 text = %q, want all dark", got)
	}
}

func TestRunHoldsFramesWithoutRaster(t *testing.T) {
	cfg := newTestConfig(t)
	input := writeInput(t)
	f := newFakes(3)
	f.rasterizer.fail = map[string]bool{"ascii_000002.png": true}

	summary, err := newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.HeldFrames != 1 || summary.Render.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	names := make([]string, 0, len(f.assembler.frames))
	for _, p := range f.assembler.frames {
		names = append(names, filepath.Base(p))
	}
	want := "ascii_000001.png,ascii_000001.png,ascii_000003.png"
	if strings.Join(names, ",") != want {
		t.Fatalf("timeline = %v, want %s", names, want)
	}
}

func TestRunAudioFallbacks(t *testing.T) {
	boom := errors.New("no decoder")
	tests := []struct {
		name      string
		opts      []testsupport.ConfigOption
		mutate    func(*fakes)
		mode      AudioMode
		state     State
		wantCopy  bool
		wantAudio string
	}{
		{"disabled", []testsupport.ConfigOption{testsupport.WithAudio(false)}, func(*fakes) {}, AudioDisabled, StateAudioUnavailable, true, ""},
		{"silent source", nil, func(f *fakes) { f.prober.info.HasAudio = false }, AudioNone, StateAudioUnavailable, true, ""},
		{"extract fails", nil, func(f *fakes) { f.audio.extractErr = boom }, AudioNone, StateAudioUnavailable, true, ""},
		{"compress fails", nil, func(f *fakes) { f.audio.compressErr = boom }, AudioRaw, StateAudioReady, false, "audio.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t, tt.opts...)
			input := writeInput(t)
			f := newFakes(2)
			tt.mutate(f)

			summary, err := newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if summary.Audio != tt.mode {
				t.Fatalf("audio = %s, want %s", summary.Audio, tt.mode)
			}
			if !containsState(summary.States, tt.state) {
				t.Fatalf("states %v missing %s", summary.States, tt.state)
			}
			if f.muxer.copied != tt.wantCopy {
				t.Fatalf("copied = %v, want %v", f.muxer.copied, tt.wantCopy)
			}
			if tt.wantAudio != "" && filepath.Base(f.muxer.muxAudio) != tt.wantAudio {
				t.Fatalf("muxed audio = %q, want %s", f.muxer.muxAudio, tt.wantAudio)
			}
		})
	}
}

func TestRunRejectsBusyWorkspace(t *testing.T) {
	cfg := newTestConfig(t)
	input := writeInput(t)
	dir := workspaceDir(t, cfg, input)
	if err := os.MkdirAll(cfg.Paths.WorkDir, 0o755); err != nil {
		t.Fatalf("mkdir work dir: %v", err)
	}
	lock := flock.New(dir + ".lock")
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()
	f := newFakes(2)

	_, err = newController(t, cfg, f).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, services.ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if f.prober.calls != 0 {
		t.Fatalf("prober calls = %d, want 0", f.prober.calls)
	}
}

func TestRunCancelledCleansUp(t *testing.T) {
	cfg := newTestConfig(t)
	input := writeInput(t)
	ctx, cancel := context.WithCancel(context.Background())
	f := newFakes(4)
	obs := &cancelObserver{cancel: cancel, stage: StageConvert}

	_, err := newController(t, cfg, f, WithObserver(obs)).Run(ctx, input, filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if f.assembler.calls != 0 {
		t.Fatalf("assembler calls = %d, want 0", f.assembler.calls)
	}
	assertWorkspaceRemoved(t, workspaceDir(t, cfg, input))
}

func TestRunValidatesInput(t *testing.T) {
	cfg := newTestConfig(t)
	f := newFakes(1)
	c := newController(t, cfg, f)

	_, err := c.Run(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing input err = %v, want ErrValidation", err)
	}

	input := writeInput(t)
	_, err = c.Run(context.Background(), input, input)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("overwrite err = %v, want ErrValidation", err)
	}
}

func TestNewRejectsIncompleteTools(t *testing.T) {
	cfg := newTestConfig(t)
	tools := newFakes(1).tools()
	tools.Muxer = nil
	if _, err := New(cfg, tools, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	cfg.Render.Charset = "#"
	if _, err := New(cfg, newFakes(1).tools(), nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("charset err = %v, want ErrConfiguration", err)
	}
}

type cancelObserver struct {
	recordingObserver
	cancel context.CancelFunc
	stage  string
}

func (o *cancelObserver) Progress(stage string, completed, total int) {
	if stage == o.stage {
		o.cancel()
	}
}

func containsState(states []State, want State) bool {
	for _, s := range states {
		if s == want {
			return true
		}
	}
	return false
}
