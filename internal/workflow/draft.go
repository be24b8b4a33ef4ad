package workflow

import (
	"fmt"

	"github.com/theirongolddev/ptab/internal/model"
)

// State is the position of a draft in its workflow.
type State int

const (
	Editing State = iota
	Selecting
	LineEntry
	Committed
	Abandoned
)

var stateNames = map[State]string{
	Editing:   "editing",
	Selecting: "selecting",
	LineEntry: "line_entry",
	Committed: "committed",
	Abandoned: "abandoned",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Done reports whether no further transition is possible.
func (s State) Done() bool { return s == Committed || s == Abandoned }

func (s State) expect(want State, action string) error {
	if s != want {
		return fmt.Errorf("%s in state %s: %w", action, s, model.ErrInvalidTransition)
	}
	return nil
}
