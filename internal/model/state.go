package model

import (
	"sync"
	"sync/atomic"
)

// InstallerPhase tells whether the interactive installer owns the operator
// input. Any phase other than PhaseIdle gates the input bridge.
type InstallerPhase int32

const (
	PhaseIdle InstallerPhase = iota
	PhaseAwaitingEndpoint
	PhaseAwaitingSelection
)

func (p InstallerPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingEndpoint:
		return "awaiting-endpoint"
	case PhaseAwaitingSelection:
		return "awaiting-selection"
	default:
		return "unknown"
	}
}

// PhaseCell is a concurrency safe holder of an InstallerPhase. The zero
// value is PhaseIdle.
type PhaseCell struct {
	v atomic.Int32
}

func (c *PhaseCell) Load() InstallerPhase {
	return InstallerPhase(c.v.Load())
}

func (c *PhaseCell) Store(p InstallerPhase) {
	c.v.Store(int32(p))
}

// Idle is a shortcut for Load() == PhaseIdle.
func (c *PhaseCell) Idle() bool {
	return c.Load() == PhaseIdle
}

type SupervisorState int32

const (
	StateRunning SupervisorState = iota
	StateStopping
)

func (s SupervisorState) String() string {
	if s == StateStopping {
		return "stopping"
	}
	return "running"
}

// StateCell holds the SupervisorState. The transition to StateStopping
// happens at most once and is never undone. The zero value is StateRunning.
type StateCell struct {
	once   sync.Once
	mx     sync.Mutex
	done   chan struct{}
	state  atomic.Int32
	reason string
}

func (c *StateCell) init() {
	c.once.Do(func() {
		c.done = make(chan struct{})
	})
}

// Stop moves the state to StateStopping. It returns true for the call which
// performed the transition.
func (c *StateCell) Stop(reason string) bool {
	c.init()
	// the reason is published together with the state, a reader observing
	// StateStopping blocks in Reason until it is set
	c.mx.Lock()
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		c.mx.Unlock()
		return false
	}
	c.reason = reason
	c.mx.Unlock()
	close(c.done)
	return true
}

func (c *StateCell) Load() SupervisorState {
	return SupervisorState(c.state.Load())
}

func (c *StateCell) Stopping() bool {
	return c.Load() == StateStopping
}

// Done is closed once Stop succeeded.
func (c *StateCell) Done() <-chan struct{} {
	c.init()
	return c.done
}

// Reason returns the reason given to the first successful Stop.
func (c *StateCell) Reason() string {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.reason
}
