package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"asciireel/internal/pipeline"
	"asciireel/internal/services"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("FFmpeg", outcomeOK, "/usr/bin/ffmpeg", false)
	if !strings.Contains(line, "FFmpeg:") || !strings.Contains(line, "[OK] /usr/bin/ffmpeg") {
		t.Fatalf("unexpected line %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("uncolored line contains escape codes: %q", line)
	}
	colored := renderStatusLine("FFmpeg", outcomeError, "missing", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("colored line = %q", colored)
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestRenderSummaryFailure(t *testing.T) {
	stageErr := services.Wrap(services.ErrCombine, "combine", "write output", "out.mp4", errors.New("disk full"))
	summary := pipeline.Summary{
		Input:  "/videos/in.mp4",
		Output: "/videos/out.mp4",
		States: []pipeline.State{pipeline.StateInit, pipeline.StateProbed, pipeline.StateCombineFailed, pipeline.StateCleanedUp},
		Stages: []pipeline.StageTiming{
			{Name: pipeline.StageConvert, Duration: time.Second},
			{Name: pipeline.StageCombine, Duration: time.Second, Err: stageErr},
		},
		Conversion: pipeline.Counts{Total: 1200, Processed: 1000, Skipped: 200},
		Audio:      pipeline.AudioNone,
	}
	out := renderSummary(summary, false)
	requireContains(t, out, "[ERROR] combine failed")
	requireContains(t, out, "1,000 (+200 cached)")
	requireContains(t, out, services.ErrCombine.Error())
}

func TestProgressReporterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressReporter(&buf, false)
	p.StageStarted(pipeline.StageConvert)
	for _, n := range []int{10, 20, 50, 100} {
		p.Progress(pipeline.StageConvert, n, 100)
	}
	p.StageFinished(pipeline.StageConvert, nil)

	out := buf.String()
	requireContains(t, out, "==> Converting frames to ASCII")
	requireContains(t, out, "convert 100/100")
	requireContains(t, out, "[OK]")
	if strings.Contains(out, "convert 20/100") {
		t.Fatalf("progress should be sampled, got %q", out)
	}
}

func TestRenderStageTable(t *testing.T) {
	summary := pipeline.Summary{
		Stages: []pipeline.StageTiming{
			{Name: pipeline.StageExtract, Duration: 1500 * time.Millisecond},
			{Name: pipeline.StageRender, Duration: time.Second, Err: errors.New("boom")},
		},
		Frames: 2400,
		Render: pipeline.Counts{Total: 2400, Processed: 2399, Failed: 1},
	}
	out := renderStageTable(summary)
	requireContains(t, out, "Stage")
	requireContains(t, out, "2,400")
	requireContains(t, out, "2,399 (1 failed)")
	requireContains(t, out, "1.5s")
	requireContains(t, out, "failed")
}

func TestSourceLine(t *testing.T) {
	m := pipeline.VideoMetadata{Width: 1920, Height: 1080, SourceFPS: 30, Codec: "h264", Duration: 61.4}
	if got := sourceLine(m); got != "1920x1080 @ 30 fps h264, 1m1s" {
		t.Fatalf("sourceLine = %q", got)
	}
	if got := sourceLine(pipeline.VideoMetadata{Width: 640, Height: 480, SourceFPS: 24}); got != "640x480 @ 24 fps" {
		t.Fatalf("sourceLine without details = %q", got)
	}
}
