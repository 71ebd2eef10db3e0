package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrContentExtraction means no usable text was obtained from a document.
	ErrContentExtraction = errors.New("content extraction failed")
	// ErrTransactionExtraction means every extraction strategy was exhausted.
	ErrTransactionExtraction = errors.New("transaction extraction failed")
	// ErrJSONParsing means a completion response held no valid JSON payload.
	ErrJSONParsing = errors.New("json parsing failed")
	// ErrLLM means the completion service failed after all configured providers.
	ErrLLM = errors.New("completion service failed")
	// ErrAnalysis wraps unexpected failures inside a pipeline stage.
	ErrAnalysis = errors.New("analysis failed")
	// ErrNotFound is returned by stores and queues for unknown ids.
	ErrNotFound = errors.New("not found")
)

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("analysis failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrAnalysis, e.Err}
}
