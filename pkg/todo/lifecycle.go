package todo

import (
	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/models"
)

// State is where a ToDo sits in its lifecycle
type State string

const (
	StateOpen    State = "open"
	StateDone    State = "done"
	StateTrashed State = "trashed"
	// StateGone is the target of a hard delete; no row is ever in it
	StateGone State = "gone"
)

// StateOf derives the lifecycle state from the row
func StateOf(t *models.ToDo) State {
	switch {
	case t.IsDeleted():
		return StateTrashed
	case t.IsDone:
		return StateDone
	default:
		return StateOpen
	}
}

// machine is a transition table keyed by source state and event. Events are
// the Transition* names reported to the Recorder.
type machine struct {
	edges map[State]map[string]func(*models.ToDo) State
}

func newMachine() *machine {
	return &machine{edges: make(map[State]map[string]func(*models.ToDo) State)}
}

// permit allows event to move from to a fixed state
func (m *machine) permit(from State, event string, to State) *machine {
	return m.permitDynamic(from, event, func(*models.ToDo) State { return to })
}

// permitDynamic allows event from, with the target decided by the row
func (m *machine) permitDynamic(from State, event string, to func(*models.ToDo) State) *machine {
	if m.edges[from] == nil {
		m.edges[from] = make(map[string]func(*models.ToDo) State)
	}
	m.edges[from][event] = to
	return m
}

// Fire checks that event is allowed from t's current state and returns the
// state it leads to. It does not modify t.
func (m *machine) Fire(t *models.ToDo, event string) (State, error) {
	from := StateOf(t)
	to, ok := m.edges[from][event]
	if !ok {
		return from, rejected(t, from, event)
	}
	return to(t), nil
}

func rejected(t *models.ToDo, from State, event string) error {
	switch {
	case event == TransitionRestore:
		return core.BadRequest("ToDo with id=%d is not deleted", t.ID)
	case from == StateTrashed:
		return core.NotFound("ToDo with id=%d not found", t.ID)
	default:
		return core.BadRequest("cannot %s a ToDo that is %s", event, from)
	}
}

// restoredState puts a restored ToDo back where it was before the trash
func restoredState(t *models.ToDo) State {
	if t.IsDone {
		return StateDone
	}
	return StateOpen
}

var lifecycle = func() *machine {
	m := newMachine()
	for _, from := range []State{StateOpen, StateDone} {
		m.permit(from, TransitionComplete, StateDone).
			permit(from, TransitionDelete, StateTrashed).
			permit(from, TransitionHardDelete, StateGone)
	}
	m.permitDynamic(StateTrashed, TransitionRestore, restoredState).
		permit(StateTrashed, TransitionHardDelete, StateGone)
	return m
}()
