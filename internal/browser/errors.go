package browser

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable       = errors.New("browser unavailable")
	ErrAlreadyStarted    = errors.New("browser already started")
	ErrSelectorNotFound  = errors.New("selector not found")
	ErrElementNotVisible = errors.New("element not visible")
)

// SelectorError reports a selector that could not be resolved to a visible
// element. Err is ErrSelectorNotFound or ErrElementNotVisible.
type SelectorError struct {
	Selector string
	Err      error
	Hint     string
}

func (e *SelectorError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%v: %q (did you mean %q?)", e.Err, e.Selector, e.Hint)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Selector)
}

func (e *SelectorError) Unwrap() error {
	return e.Err
}

func notFound(selector string) error {
	return &SelectorError{Selector: selector, Err: ErrSelectorNotFound}
}

func notVisible(selector string) error {
	return &SelectorError{Selector: selector, Err: ErrElementNotVisible}
}
