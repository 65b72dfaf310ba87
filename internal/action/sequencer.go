package action

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickjm/pageshot/internal/browser"
	"github.com/patrickjm/pageshot/internal/metrics"
)

// SettleDelay follows every successful action so transitions and animations
// can finish before the next one.
const SettleDelay = 100 * time.Millisecond

type State int

const (
	Idle State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ExecError is the cause of a Failed sequence.
type ExecError struct {
	Index int
	Kind  Kind
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("Failed to execute %s action (index %d): %v", e.Kind, e.Index, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Result is the terminal state of a run. Index is the failing action for
// Failed and -1 otherwise.
type Result struct {
	State    State
	Index    int
	Executed int
	Err      error
}

type Transition struct {
	From, To State
	Index    int
	Kind     Kind
	Err      error
}

type Sequencer struct {
	ResolveTimeout time.Duration
	// AfterStep runs after each successful action. An error fails the step.
	AfterStep func(ctx context.Context) error
	// Observe, if set, sees every state transition.
	Observe func(Transition)
}

func NewSequencer(resolveTimeout time.Duration) *Sequencer {
	return &Sequencer{
		ResolveTimeout: resolveTimeout,
		AfterStep:      Settle(SettleDelay),
	}
}

func Settle(d time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		return sleep(ctx, d)
	}
}

// Run executes actions in order and stops at the first failure. An empty
// list completes without touching the page.
func (s *Sequencer) Run(ctx context.Context, page browser.Page, actions []Action) Result {
	state := Idle
	for i, a := range actions {
		s.transition(state, Running, i, a.Kind, nil)
		state = Running
		err := Execute(ctx, page, a, s.ResolveTimeout)
		if err == nil && s.AfterStep != nil {
			err = s.AfterStep(ctx)
		}
		if err != nil {
			metrics.Actions.WithLabelValues(string(a.Kind), "error").Inc()
			cause := &ExecError{Index: i, Kind: a.Kind, Err: err}
			s.transition(state, Failed, i, a.Kind, cause)
			return Result{State: Failed, Index: i, Executed: i, Err: cause}
		}
		metrics.Actions.WithLabelValues(string(a.Kind), "ok").Inc()
	}
	s.transition(state, Completed, len(actions)-1, "", nil)
	return Result{State: Completed, Index: -1, Executed: len(actions)}
}

func (s *Sequencer) transition(from, to State, index int, kind Kind, err error) {
	if s.Observe != nil {
		s.Observe(Transition{From: from, To: to, Index: index, Kind: kind, Err: err})
	}
}
