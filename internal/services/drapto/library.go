package drapto

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	draptolib "github.com/five82/drapto"
)

// ProgressUpdate is one Drapto event. Percent is -1 for events that carry a
// message but no progress.
type ProgressUpdate struct {
	Percent float64
	Stage   string
	Message string
}

// Client encodes a lossless intermediate into outputDir and returns the path
// of the AV1 file it wrote.
type Client interface {
	Encode(ctx context.Context, inputPath, outputDir string, progress func(ProgressUpdate)) (string, error)
}

// Library runs the Drapto encoder in-process.
type Library struct{}

func NewLibrary() *Library { return &Library{} }

func (Library) Encode(ctx context.Context, inputPath, outputDir string, progress func(ProgressUpdate)) (string, error) {
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return "", fmt.Errorf("encode %s: output directory required", inputPath)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("encode intermediate: %w", err)
	}

	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return "", fmt.Errorf("init drapto: %w", err)
	}
	var rep draptolib.Reporter
	if progress != nil {
		rep = newReporter(progress)
	}
	if _, err := encoder.EncodeWithReporter(ctx, inputPath, outputDir, rep); err != nil {
		return "", err
	}
	return OutputPath(inputPath, outputDir), nil
}

// OutputPath is where Drapto writes the encode of inputPath: the input stem
// with an mkv extension, inside outputDir.
func OutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(strings.TrimSpace(outputDir), stem+".mkv")
}

var _ Client = Library{}
