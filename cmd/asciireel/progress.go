package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"asciireel/internal/logging"
	"asciireel/internal/pipeline"
)

var stageTitles = map[string]string{
	pipeline.StageProbe:   "Probing source",
	pipeline.StageExtract: "Extracting frames",
	pipeline.StageConvert: "Converting frames to ASCII",
	pipeline.StageAudio:   "Preparing audio",
	pipeline.StageRender:  "Rendering ASCII frames",
	pipeline.StageCombine: "Writing output",
}

// progressReporter draws stage banners and batch progress. On a terminal it
// uses a progress bar; otherwise it prints sampled percentage lines.
type progressReporter struct {
	out         io.Writer
	interactive bool
	bar         *progressbar.ProgressBar
	sampler     *logging.ProgressSampler
	started     time.Time
}

func newProgressReporter(out io.Writer, interactive bool) *progressReporter {
	return &progressReporter{out: out, interactive: interactive}
}

func (p *progressReporter) StageStarted(stage string) {
	title, ok := stageTitles[stage]
	if !ok {
		title = stage
	}
	fmt.Fprintln(p.out, renderBanner(title, p.interactive))
	p.bar = nil
	p.sampler = logging.NewProgressSampler(25)
	p.started = time.Now()
}

func (p *progressReporter) Progress(stage string, completed, total int) {
	if p.interactive {
		if p.bar == nil {
			p.bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(p.out),
				progressbar.OptionSetDescription(stage),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "█",
					SaucerHead:    "█",
					SaucerPadding: "░",
					BarStart:      "▐",
					BarEnd:        "▌",
				}),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetRenderBlankState(true),
			)
		}
		_ = p.bar.Set(completed)
		return
	}
	if p.sampler.ShouldLog(logging.Percent(completed, total), stage) {
		fmt.Fprintf(p.out, "%s%s %d/%d\n", statusIndent, stage, completed, total)
	}
}

func (p *progressReporter) StageFinished(stage string, err error) {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.out)
		p.bar = nil
	}
	elapsed := time.Since(p.started).Round(10 * time.Millisecond)
	if err != nil {
		fmt.Fprintln(p.out, renderStatusLine(stage, outcomeError, "failed after "+elapsed.String(), p.interactive))
		return
	}
	fmt.Fprintln(p.out, renderStatusLine(stage, outcomeOK, elapsed.String(), p.interactive))
}

var _ pipeline.Observer = (*progressReporter)(nil)
