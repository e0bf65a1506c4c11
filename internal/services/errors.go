package services

import (
	"errors"
	"fmt"
	"strings"
)

// Stage failure markers. ErrConversion and ErrAudio only ever surface as
// warnings; the rest abort a run.
var (
	ErrProbe      = errors.New("probe failed")
	ErrExtraction = errors.New("frame extraction failed")
	ErrConversion = errors.New("conversion incomplete")
	ErrAudio      = errors.New("audio unavailable")
	ErrRender     = errors.New("render failed")
	ErrCombine    = errors.New("combine failed")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrBusy          = errors.New("workspace busy")
)

var markers = []error{
	ErrProbe,
	ErrExtraction,
	ErrConversion,
	ErrAudio,
	ErrRender,
	ErrCombine,
	ErrBusy,
	ErrValidation,
	ErrConfiguration,
	ErrExternalTool,
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails is the user-facing summary of a stage failure.
type ErrorDetails struct {
	// Kind is the label of the first marker the error carries, empty for
	// unclassified errors.
	Kind    string
	Message string
}

// Details classifies err against the exported markers.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Message: err.Error()}
	for _, marker := range markers {
		if errors.Is(err, marker) {
			details.Kind = marker.Error()
			break
		}
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
