package shot

import (
	"errors"
	"fmt"
)

type Phase string

const (
	PhaseValidate Phase = "validate"
	PhaseBrowser  Phase = "browser"
	PhaseSession  Phase = "session"
	PhaseNavigate Phase = "navigate"
	PhaseAction   Phase = "action"
	PhaseCapture  Phase = "capture"
)

// Error is the only error type Handle returns. Its message starts with a
// stable prefix for the failing phase.
type Error struct {
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	switch e.Phase {
	case PhaseValidate:
		return "Invalid request: " + e.Err.Error()
	case PhaseAction:
		// action.ExecError carries its own "Failed to execute" prefix.
		return e.Err.Error()
	default:
		return "Failed to take screenshot: " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

var errEmptyImage = errors.New("browser returned an empty image")

func PhaseOf(err error) Phase {
	var e *Error
	if errors.As(err, &e) {
		return e.Phase
	}
	return ""
}
