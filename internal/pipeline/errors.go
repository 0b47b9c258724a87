package pipeline

import (
	"fmt"
	"strings"
)

// PipelineError is returned for every failed run and records the stage the
// run was in.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// EmptyDocumentError means normalization left too little text to analyze.
type EmptyDocumentError struct {
	Length int
	Min    int
}

func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("document has %d characters of usable text, need at least %d", e.Length, e.Min)
}

// NoInsightsError means every chunk failed analysis. Failures holds each
// chunk's error in chunk order.
type NoInsightsError struct {
	Chunks   int
	Failures []error
}

func (e *NoInsightsError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no insights from %d chunk(s)", e.Chunks)
	if last := e.LastCause(); last != nil {
		fmt.Fprintf(&sb, ": %v", last)
	}
	return sb.String()
}

func (e *NoInsightsError) Unwrap() []error { return e.Failures }

// LastCause returns the failure of the final chunk.
func (e *NoInsightsError) LastCause() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1]
}
