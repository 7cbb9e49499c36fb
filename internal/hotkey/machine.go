// Package hotkey turns raw key edges into engage/disengage events for one trigger binding.
package hotkey

import (
	"sync/atomic"
	"time"
)

// HybridHoldThreshold separates a tap (latch on) from a hold (push-to-talk) in hybrid mode.
const HybridHoldThreshold = 250 * time.Millisecond

type Event int

const (
	Engage Event = iota + 1
	Disengage
)

func (e Event) String() string {
	switch e {
	case Engage:
		return "engage"
	case Disengage:
		return "disengage"
	}
	return "unknown"
}

// Edge is a single key transition observed by the input source.
type Edge struct {
	Key       uint16
	Modifiers Modifiers
	Down      bool
}

// Machine is not safe for concurrent use: feed it from a single input goroutine.
// RequestReset is the only method that may be called from elsewhere.
type Machine struct {
	binding Binding
	now     func() time.Time

	down       bool
	downSince  time.Time
	latched    bool
	engaged    bool
	pressFresh bool

	resetRequested atomic.Bool
}

func NewMachine(binding Binding) *Machine {
	return &Machine{binding: binding, now: time.Now}
}

// SetBinding replaces the binding and clears all state.
func (m *Machine) SetBinding(b Binding) {
	m.binding = b
	m.reset()
}

// RequestReset asks the machine to end its session before handling the next
// edge. Whether the key is physically down is kept, so key repeat while it is
// still held does not engage again.
func (m *Machine) RequestReset() {
	m.resetRequested.Store(true)
}

// Handle filters the edge against the binding and returns the resulting event, if any.
func (m *Machine) Handle(e Edge) (Event, bool) {
	if e.Key != m.binding.Key {
		return 0, false
	}
	if !e.Modifiers.Has(m.binding.Modifiers) {
		return 0, false
	}
	return m.Trigger(e.Down)
}

// Trigger applies an edge already known to match the binding.
func (m *Machine) Trigger(down bool) (Event, bool) {
	if m.resetRequested.Swap(false) {
		m.endSession()
	}

	switch m.binding.Mode {
	case ModeToggle:
		return m.toggle(down)
	case ModeHybrid:
		return m.hybrid(down)
	default:
		return m.hold(down)
	}
}

func (m *Machine) hold(down bool) (Event, bool) {
	if down {
		if m.down {
			return 0, false
		}
		m.down = true
		return Engage, true
	}
	if !m.down {
		return 0, false
	}
	m.down = false
	return Disengage, true
}

func (m *Machine) toggle(down bool) (Event, bool) {
	if !down {
		m.down = false
		return 0, false
	}
	if m.down {
		return 0, false
	}
	m.down = true
	m.latched = !m.latched
	if m.latched {
		return Engage, true
	}
	return Disengage, true
}

func (m *Machine) hybrid(down bool) (Event, bool) {
	if down {
		if m.down {
			return 0, false
		}
		m.down = true
		m.downSince = m.now()
		if m.engaged {
			m.pressFresh = false
			return 0, false
		}
		m.engaged = true
		m.pressFresh = true
		return Engage, true
	}

	if !m.down {
		return 0, false
	}
	m.down = false

	// a press that found the machine already engaged always ends the session
	if !m.pressFresh {
		m.engaged = false
		return Disengage, true
	}
	if m.now().Sub(m.downSince) >= HybridHoldThreshold {
		m.engaged = false
		return Disengage, true
	}
	return 0, false
}

func (m *Machine) reset() {
	m.down = false
	m.downSince = time.Time{}
	m.endSession()
}

func (m *Machine) endSession() {
	m.latched = false
	m.engaged = false
	m.pressFresh = false
}
