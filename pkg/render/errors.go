package render

import (
	"errors"
	"fmt"
)

// ErrNoStages is returned when a renderer is configured without any stage.
var ErrNoStages = errors.New("render: no render stages configured")

// StageError records one failed render attempt.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("render: stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailureError is the terminal outcome when every stage failed. Its message
// is the underlying error text of the last attempt.
type FailureError struct {
	Attempts []*StageError
}

func (e *FailureError) Error() string {
	last := e.last()
	if last == nil || last.Err == nil {
		return "render: failed"
	}
	return last.Err.Error()
}

// Unwrap exposes the last attempt's error.
func (e *FailureError) Unwrap() error {
	last := e.last()
	if last == nil {
		return nil
	}
	return last
}

func (e *FailureError) last() *StageError {
	if e == nil || len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1]
}
