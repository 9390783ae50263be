package service

import "sync/atomic"

// ChildSlot publishes the running server to the InputBridge. Only the
// Supervisor writes it, readers take a fresh snapshot for every command.
type ChildSlot struct {
	p atomic.Pointer[Handle]
}

func (s *ChildSlot) Set(h *Handle) {
	s.p.Store(h)
}

// Clear empties the slot if it still holds h.
func (s *ChildSlot) Clear(h *Handle) {
	s.p.CompareAndSwap(h, nil)
}

// Current returns the running server or nil.
func (s *ChildSlot) Current() *Handle {
	if s == nil {
		return nil
	}
	return s.p.Load()
}
