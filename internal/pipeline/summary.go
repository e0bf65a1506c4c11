package pipeline

import "time"

// StageTiming is the wall time spent in one stage.
type StageTiming struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Counts tallies a batched stage.
type Counts struct {
	Total     int
	Processed int
	Skipped   int
	Failed    int
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Input     string
	Output    string
	Workspace string
	Metadata  VideoMetadata
	// States lists every state the run passed through, in order.
	States []State
	// ReusedFrames is true when extraction was skipped.
	ReusedFrames bool
	Frames       int
	Conversion   Counts
	Render       Counts
	// HeldFrames counts timeline slots filled with a neighbouring raster.
	HeldFrames  int
	Audio       AudioMode
	Stages      []StageTiming
	OutputBytes int64
	Duration    time.Duration
}

// FinalState returns the last state before cleanup.
func (s Summary) FinalState() State {
	for i := len(s.States) - 1; i >= 0; i-- {
		if s.States[i] != StateCleanedUp {
			return s.States[i]
		}
	}
	return StateInit
}

// Observer receives stage and batch progress. Every call arrives on the
// goroutine running Controller.Run.
type Observer interface {
	StageStarted(stage string)
	Progress(stage string, completed, total int)
	StageFinished(stage string, err error)
}

type nopObserver struct{}

func (nopObserver) StageStarted(string)         {}
func (nopObserver) Progress(string, int, int)   {}
func (nopObserver) StageFinished(string, error) {}
