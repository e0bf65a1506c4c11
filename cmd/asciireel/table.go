package main

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"asciireel/internal/pipeline"
	"asciireel/internal/services"
)

// renderStageTable lists every stage that ran with its wall time, frame
// counts and, for a failed stage, the error kind.
func renderStageTable(s pipeline.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Stage", "Duration", "Frames", "Result"})
	for _, st := range s.Stages {
		tw.AppendRow(table.Row{
			st.Name,
			st.Duration.Round(time.Millisecond).String(),
			stageCounts(s, st.Name),
			stageResult(st),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func stageResult(st pipeline.StageTiming) string {
	if st.Err == nil {
		return "ok"
	}
	if kind := services.Details(st.Err).Kind; kind != "" {
		return kind
	}
	return "failed"
}

// renderKeyValues renders label/value pairs as a two-column table without a
// header.
func renderKeyValues(pairs [][2]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	for _, p := range pairs {
		tw.AppendRow(table.Row{p[0], p[1]})
	}
	return tw.Render()
}
