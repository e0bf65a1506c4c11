package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Outcome classifies what a stage did with one item.
type Outcome int

const (
	// Processed means the stage produced the item's artifact.
	Processed Outcome = iota
	// Skipped means the artifact already existed and no work was done.
	Skipped
	// Failed means the stage could not produce the artifact.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Func handles one item. index is the item's position in the full list. A
// non-nil error always counts as Failed.
type Func[T any] func(ctx context.Context, index int, item T) (Outcome, error)

// Progress receives the cumulative completed count after each chunk.
type Progress func(completed, total int, label string)

// Options controls chunking.
type Options struct {
	// Size is the chunk length. Values below 1 process everything as one
	// chunk.
	Size int
	// Workers bounds concurrent stage calls inside a chunk. Values below 2
	// run items sequentially.
	Workers int
	Label   string
	OnBatch Progress
}

// ItemError pairs a failed item's index with its error.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Result tallies a run. Errors are ordered by item index.
type Result struct {
	Processed int
	Skipped   int
	Failed    int
	Errors    []ItemError
	// Err is the context error when the run was cancelled before every
	// chunk was scheduled.
	Err error
}

// Succeeded counts items whose artifact exists after the run.
func (r Result) Succeeded() int {
	return r.Processed + r.Skipped
}

// Total counts every item the stage was called for.
func (r Result) Total() int {
	return r.Processed + r.Skipped + r.Failed
}

type itemResult struct {
	outcome Outcome
	err     error
}

// Run applies stage to items chunk by chunk.
func Run[T any](ctx context.Context, items []T, opts Options, stage Func[T]) Result {
	var result Result
	total := len(items)
	if total == 0 {
		return result
	}
	size := opts.Size
	if size < 1 || size > total {
		size = total
	}

	completed := 0
	for start := 0; start < total; start += size {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}
		end := min(start+size, total)
		chunk := runChunk(ctx, items[start:end], start, opts.Workers, stage)
		for offset, r := range chunk {
			result.record(start+offset, r)
		}
		completed = end
		if opts.OnBatch != nil {
			opts.OnBatch(completed, total, opts.Label)
		}
	}
	return result
}

func runChunk[T any](ctx context.Context, chunk []T, base, workers int, stage Func[T]) []itemResult {
	results := make([]itemResult, len(chunk))
	if workers < 2 || len(chunk) < 2 {
		for i, item := range chunk {
			results[i] = call(ctx, base+i, item, stage)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, item := range chunk {
		g.Go(func() error {
			results[i] = call(ctx, base+i, item, stage)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func call[T any](ctx context.Context, index int, item T, stage Func[T]) itemResult {
	outcome, err := stage(ctx, index, item)
	if err != nil {
		return itemResult{outcome: Failed, err: err}
	}
	if outcome == Failed {
		return itemResult{outcome: Failed, err: fmt.Errorf("item %d failed", index)}
	}
	return itemResult{outcome: outcome}
}

func (r *Result) record(index int, item itemResult) {
	switch item.outcome {
	case Processed:
		r.Processed++
	case Skipped:
		r.Skipped++
	default:
		r.Failed++
		r.Errors = append(r.Errors, ItemError{Index: index, Err: item.err})
	}
}
