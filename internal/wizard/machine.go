// Package wizard – step state machine.
package wizard

import (
	"context"
	"fmt"

	loopfsm "github.com/looplab/fsm"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
)

// StateSubmitted is the terminal state, reached only through a successful
// submission pipeline run, never through Advance.
const StateSubmitted = "submitted"

// events describes the linear step graph in looplab/fsm terms: one advance
// and one retreat event per adjacent step pair, plus the submit event from
// the last step into the terminal state.
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	out := make([]loopfsm.EventDesc, 0, 2*len(Steps))
	for i := 0; i < len(Steps)-1; i++ {
		out = append(out, loopfsm.EventDesc{
			Name: advanceEvent(i),
			Src:  []string{stateName(i)},
			Dst:  stateName(i + 1),
		})
	}
	for i := 1; i < len(Steps); i++ {
		out = append(out, loopfsm.EventDesc{
			Name: retreatEvent(i),
			Src:  []string{stateName(i)},
			Dst:  stateName(i - 1),
		})
	}
	out = append(out, loopfsm.EventDesc{
		Name: "submit",
		Src:  []string{stateName(len(Steps) - 1)},
		Dst:  StateSubmitted,
	})
	return out
}

func stateName(i int) string    { return fmt.Sprintf("step_%d", i) }
func advanceEvent(i int) string { return fmt.Sprintf("advance_%d", i) }
func retreatEvent(i int) string { return fmt.Sprintf("retreat_%d", i) }

// Machine gates movement through the wizard steps. There is no invalid
// state: an illegal transition is simply refused and the machine stays put;
// no method ever returns an error or panics. Callers are expected to poll
// IsStepValid before rendering a "Next" control as enabled.
//
// A Machine is cheap to construct and is not safe for concurrent use; build
// one per request from the persisted step index (looplab/fsm tracks its
// current state internally).
type Machine struct {
	fsm *loopfsm.FSM
}

// NewMachine returns a machine positioned at the first step.
func NewMachine() *Machine { return ResumeAt(0) }

// ResumeAt returns a machine positioned at step k, used only to resume a
// persisted draft. Out-of-range values are clamped so a corrupted step
// marker degrades to restarting the flow rather than skipping gates.
func ResumeAt(k int) *Machine {
	if k < 0 {
		k = 0
	}
	if k >= len(Steps) {
		k = len(Steps) - 1
	}
	return &Machine{fsm: loopfsm.NewFSM(stateName(k), events, nil)}
}

// Current returns the current step index. The terminal state reports the
// last step index (the review step remains the visible position).
func (m *Machine) Current() int {
	if m.fsm.Current() == StateSubmitted {
		return len(Steps) - 1
	}
	var i int
	fmt.Sscanf(m.fsm.Current(), "step_%d", &i)
	return i
}

// Submitted reports whether the machine has reached the terminal state.
func (m *Machine) Submitted() bool { return m.fsm.Current() == StateSubmitted }

// Advance moves to the next step when the current step's validity predicate
// holds for the draft. It is a no-op at the last step (finishing the flow
// must route through the submission pipeline, not through Advance) and a
// no-op when the predicate fails. Returns whether it moved.
func (m *Machine) Advance(d domain.ApplicationDraft) bool {
	cur := m.Current()
	if m.Submitted() || cur >= len(Steps)-1 {
		return false
	}
	if !IsStepValid(cur, d) {
		return false
	}
	return m.fsm.Event(context.Background(), advanceEvent(cur)) == nil
}

// Retreat moves to the previous step. It always succeeds above step zero;
// there is no validity gate on going backward, since applicants must always
// be able to revise earlier answers.
func (m *Machine) Retreat() bool {
	cur := m.Current()
	if m.Submitted() || cur == 0 {
		return false
	}
	return m.fsm.Event(context.Background(), retreatEvent(cur)) == nil
}

// CompleteSubmission moves the machine into the terminal state. It requires
// the machine to be at the last step with every step valid; once it succeeds
// no further transitions are possible. The persisted draft row carries the
// authoritative submitted status, so callers replaying a stored draft should
// consult that rather than reconstruct a machine.
func (m *Machine) CompleteSubmission(d domain.ApplicationDraft) bool {
	if m.Submitted() || m.Current() != len(Steps)-1 {
		return false
	}
	if _, _, invalid := FirstInvalid(d); invalid {
		return false
	}
	return m.fsm.Event(context.Background(), "submit") == nil
}
