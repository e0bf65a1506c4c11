package drapto

import (
	draptolib "github.com/five82/drapto"
)

// reporter forwards the progress-bearing Drapto callbacks and drops the
// summaries, which describe a source file rather than rendered frames.
type reporter struct {
	callback func(ProgressUpdate)
}

func newReporter(callback func(ProgressUpdate)) *reporter {
	return &reporter{callback: callback}
}

func (r *reporter) Hardware(draptolib.HardwareSummary) {}

func (r *reporter) Initialization(draptolib.InitializationSummary) {}

func (r *reporter) StageProgress(s draptolib.StageProgress) {
	r.callback(ProgressUpdate{Percent: float64(s.Percent), Stage: s.Stage, Message: s.Message})
}

func (r *reporter) CropResult(draptolib.CropSummary) {}

func (r *reporter) EncodingConfig(draptolib.EncodingConfigSummary) {}

func (r *reporter) EncodingStarted(uint64) {
	r.callback(ProgressUpdate{Percent: 0, Stage: "encoding"})
}

func (r *reporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	r.callback(ProgressUpdate{Percent: float64(s.Percent), Stage: "encoding"})
}

func (r *reporter) ValidationComplete(s draptolib.ValidationSummary) {
	if !s.Passed {
		r.callback(ProgressUpdate{Percent: -1, Stage: "validation", Message: "output validation reported failures"})
	}
}

func (r *reporter) EncodingComplete(draptolib.EncodingOutcome) {
	r.callback(ProgressUpdate{Percent: 100, Stage: "encoding"})
}

func (r *reporter) Warning(message string) {
	r.callback(ProgressUpdate{Percent: -1, Stage: "warning", Message: message})
}

func (r *reporter) Error(e draptolib.ReporterError) {
	r.callback(ProgressUpdate{Percent: -1, Stage: "error", Message: e.Title + ": " + e.Message})
}

func (r *reporter) OperationComplete(string) {}

func (r *reporter) BatchStarted(draptolib.BatchStartInfo) {}

func (r *reporter) FileProgress(draptolib.FileProgressContext) {}

func (r *reporter) BatchComplete(draptolib.BatchSummary) {}

var _ draptolib.Reporter = (*reporter)(nil)
