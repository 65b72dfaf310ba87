// Package action turns a declarative list of page interactions into ordered,
// fail-fast browser operations.
package action

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	Click  Kind = "click"
	Type   Kind = "type"
	Wait   Kind = "wait"
	Scroll Kind = "scroll"
	Hover  Kind = "hover"
)

const (
	DefaultWait = 1000 * time.Millisecond
	MaxWait     = 60 * time.Second
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Click, Type, Wait, Scroll, Hover:
		return k, nil
	default:
		return "", fmt.Errorf("unknown action type: %q", s)
	}
}

// Spec is the wire form of one interaction.
type Spec struct {
	Type     string `json:"type"`
	Selector string `json:"selector,omitempty"`
	Value    string `json:"value,omitempty"`
	Timeout  *int   `json:"timeout,omitempty"`
}

// Action is a validated Spec. Fields not meaningful for Kind are zero.
type Action struct {
	Kind     Kind
	Selector string
	Value    string
	Wait     time.Duration
	Delta    int
	HasDelta bool
}

type ValidationError struct {
	Index  int
	Kind   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("action %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("action %d (%s): %s", e.Index, e.Kind, e.Reason)
}

// Validate checks the field-presence rules for the spec's kind and returns
// the typed action. index is only used for error reporting.
func (s Spec) Validate(index int) (Action, error) {
	invalid := func(reason string) (Action, error) {
		return Action{}, &ValidationError{Index: index, Kind: s.Type, Reason: reason}
	}
	kind, err := ParseKind(s.Type)
	if err != nil {
		return invalid(err.Error())
	}
	a := Action{Kind: kind}
	switch kind {
	case Click, Hover:
		if s.Selector == "" {
			return invalid(fmt.Sprintf("%s action requires a selector", kind))
		}
		a.Selector = s.Selector
	case Type:
		if s.Selector == "" || s.Value == "" {
			return invalid("type action requires selector and value")
		}
		a.Selector = s.Selector
		a.Value = s.Value
	case Wait:
		a.Wait = DefaultWait
		if s.Timeout != nil {
			ms := *s.Timeout
			if ms < 0 {
				return invalid("timeout must not be negative")
			}
			a.Wait = time.Duration(ms) * time.Millisecond
			if a.Wait > MaxWait {
				return invalid(fmt.Sprintf("timeout must not exceed %s", MaxWait))
			}
		}
	case Scroll:
		if s.Selector != "" {
			a.Selector = s.Selector
			break
		}
		if v := strings.TrimSpace(s.Value); v != "" {
			delta, err := strconv.Atoi(v)
			if err != nil {
				return invalid(fmt.Sprintf("scroll value %q is not an integer pixel amount", s.Value))
			}
			a.Delta = delta
			a.HasDelta = true
		}
	}
	return a, nil
}

// ValidateAll validates every spec, stopping at the first invalid one.
func ValidateAll(specs []Spec) ([]Action, error) {
	actions := make([]Action, 0, len(specs))
	for i, s := range specs {
		a, err := s.Validate(i)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}
