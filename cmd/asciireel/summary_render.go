package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"asciireel/internal/pipeline"
)

func renderSummary(s pipeline.Summary, colorize bool) string {
	var b strings.Builder

	state := s.FinalState()
	b.WriteString(renderStatusLine("Result", passFail(state == pipeline.StateCombined), strings.ReplaceAll(string(state), "_", " "), colorize))
	b.WriteString("\n")
	b.WriteString(renderStageTable(s))
	b.WriteString("\n")

	pairs := [][2]string{
		{"Input", s.Input},
		{"Output", s.Output},
	}
	if s.OutputBytes > 0 {
		pairs = append(pairs, [2]string{"Size", humanize.Bytes(uint64(s.OutputBytes))})
	}
	if s.Metadata.Width > 0 {
		pairs = append(pairs,
			[2]string{"Source", sourceLine(s.Metadata)},
			[2]string{"Grid", fmt.Sprintf("%dx%d @ %d fps", s.Metadata.OutputWidth, s.Metadata.OutputHeight, s.Metadata.OutputFPS)},
		)
	}
	pairs = append(pairs,
		[2]string{"Frames reused", yesNo(s.ReusedFrames)},
		[2]string{"Audio", string(s.Audio)},
		[2]string{"Elapsed", s.Duration.Round(time.Millisecond).String()},
	)
	if s.HeldFrames > 0 {
		pairs = append(pairs, [2]string{"Held frames", humanize.Comma(int64(s.HeldFrames))})
	}
	b.WriteString(renderKeyValues(pairs))
	return b.String()
}

func stageCounts(s pipeline.Summary, stage string) string {
	var c pipeline.Counts
	switch stage {
	case pipeline.StageExtract:
		return humanize.Comma(int64(s.Frames))
	case pipeline.StageConvert:
		c = s.Conversion
	case pipeline.StageRender:
		c = s.Render
	default:
		return ""
	}
	text := humanize.Comma(int64(c.Processed))
	if c.Skipped > 0 {
		text += fmt.Sprintf(" (+%s cached)", humanize.Comma(int64(c.Skipped)))
	}
	if c.Failed > 0 {
		text += fmt.Sprintf(" (%s failed)", humanize.Comma(int64(c.Failed)))
	}
	return text
}

func sourceLine(m pipeline.VideoMetadata) string {
	line := fmt.Sprintf("%dx%d @ %d fps", m.Width, m.Height, m.SourceFPS)
	if m.Codec != "" {
		line += " " + m.Codec
	}
	if m.Duration > 0 {
		line += ", " + (time.Duration(m.Duration * float64(time.Second))).Round(time.Second).String()
	}
	return line
}
