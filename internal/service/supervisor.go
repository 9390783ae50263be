package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/CZERTAINLY/SessionCore/internal/log"
	"github.com/CZERTAINLY/SessionCore/internal/model"
)

var ErrBackOffStopped = errors.New("restart policy gave up")

type Supervisor struct {
	launcher Launcher
	slot     *ChildSlot
	state    *model.StateCell
	backoff  backoff.BackOff
	after    func(time.Duration) <-chan time.Time
}

// Result summarizes a Run.
type Result struct {
	Launches     int
	LastExitCode int
}

// NewSupervisor returns a Supervisor restarting a crashed server after
// DefaultBackoff. slot and state may be shared with an InputBridge.
func NewSupervisor(launcher Launcher, slot *ChildSlot, state *model.StateCell) *Supervisor {
	if slot == nil {
		slot = &ChildSlot{}
	}
	if state == nil {
		state = &model.StateCell{}
	}
	return &Supervisor{
		launcher: launcher,
		slot:     slot,
		state:    state,
		backoff:  backoff.NewConstantBackOff(DefaultBackoff),
		after:    time.After,
	}
}

// WithBackOff changes the restart delay policy. A policy returning
// backoff.Stop ends Run with ErrBackOffStopped.
func (s *Supervisor) WithBackOff(b backoff.BackOff) *Supervisor {
	s.backoff = b
	return s
}

// WithAfter replaces time.After used for the restart delay.
// This method exists for a unit testing only.
func (s *Supervisor) WithAfter(after func(time.Duration) <-chan time.Time) *Supervisor {
	s.after = after
	return s
}

func (s *Supervisor) Slot() *ChildSlot {
	return s.slot
}

func (s *Supervisor) State() *model.StateCell {
	return s.state
}

// Run launches the server and keeps it running.
//
// Exit code 0 ends Run with nil. Any other exit code, as well as a server
// which could not be launched, is followed by the backoff delay and another
// launch. There is no retry limit: only a stop of the StateCell (operator
// input closed) or a cancelled ctx ends the loop after a failed run, both
// with a nil error.
func (s *Supervisor) Run(ctx context.Context, serverFile, authEndpoint string) (Result, error) {
	var res Result
	s.backoff.Reset()

	for {
		res.Launches++
		runCtx := log.ContextAttrs(ctx, slog.Group("run",
			slog.String("id", uuid.NewString()),
			slog.Int("attempt", res.Launches),
		))

		code := s.runOnce(runCtx, serverFile, authEndpoint)
		res.LastExitCode = code
		slog.InfoContext(runCtx, "Server exited", "code", code)

		if code == 0 {
			s.state.Stop("clean shutdown")
			slog.InfoContext(runCtx, "Clean shutdown detected. Exiting wrapper.")
			return res, nil
		}

		if ctx.Err() != nil {
			s.state.Stop("cancelled")
		}
		if s.state.Stopping() {
			slog.InfoContext(runCtx, "Stop requested. Not restarting.", "reason", s.state.Reason())
			return res, nil
		}

		delay := s.backoff.NextBackOff()
		if delay == backoff.Stop {
			s.state.Stop("backoff stopped")
			return res, ErrBackOffStopped
		}
		slog.InfoContext(runCtx, "Non-zero exit. Restarting.", "delay", delay)

		select {
		case <-s.after(delay):
		case <-ctx.Done():
			s.state.Stop("cancelled")
			slog.InfoContext(runCtx, "Stop requested. Not restarting.", "reason", s.state.Reason())
			return res, nil
		case <-s.state.Done():
			slog.InfoContext(runCtx, "Stop requested. Not restarting.", "reason", s.state.Reason())
			return res, nil
		}
	}
}

// runOnce returns the exit code of one server lifetime, -1 when it could
// not be launched or terminated abnormally.
func (s *Supervisor) runOnce(ctx context.Context, serverFile, authEndpoint string) int {
	slog.InfoContext(ctx, "Launching server...")
	h, err := s.launcher.Launch(ctx, serverFile, authEndpoint)
	if err != nil {
		slog.ErrorContext(ctx, "Server could not be launched", "error", err)
		return -1
	}
	slog.InfoContext(ctx, "Server started", "pid", h.Pid(), "command", h.Command().String())

	s.slot.Set(h)
	code, err := h.Wait()
	s.slot.Clear(h)
	if err != nil {
		slog.WarnContext(ctx, "waiting for server", "error", err)
	}
	return code
}
