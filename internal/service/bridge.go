package service

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/CZERTAINLY/SessionCore/internal/model"
)

// ServerPrefix tags every line coming from the server.
const ServerPrefix = "[SERVER] "

// OutputBridge copies the server output line by line to Console and Log.
// Log is written once per line without any buffering, so the file can be
// tailed live. Either writer may be nil.
type OutputBridge struct {
	Console io.Writer
	Log     io.Writer
}

// Pipe runs until r reaches EOF and returns the number of lines delivered.
// On the first read or write fault it stops delivering, drains the rest of r
// into io.Discard so the server never blocks on a full pipe, and returns the
// fault.
func (b OutputBridge) Pipe(r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	var lines int
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if werr := b.writeLine(ServerPrefix + line + "\n"); werr != nil {
				_, _ = io.Copy(io.Discard, br)
				return lines, werr
			}
			lines++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			_, _ = io.Copy(io.Discard, br)
			return lines, err
		}
	}
}

func (b OutputBridge) writeLine(s string) error {
	if b.Console != nil {
		if _, err := io.WriteString(b.Console, s); err != nil {
			return err
		}
	}
	if b.Log != nil {
		if _, err := io.WriteString(b.Log, s); err != nil {
			return err
		}
	}
	return nil
}

// InputBridge forwards operator commands to the current server. It lives for
// the whole program, independent of any single server lifetime.
type InputBridge struct {
	In    *bufio.Reader
	Phase *model.PhaseCell
	Child *ChildSlot
	State *model.StateCell
}

// Run reads In until EOF. Closing the operator input stops the supervisor
// from launching the server again; the running server is left alone.
func (b InputBridge) Run(ctx context.Context) {
	for {
		line, err := b.In.ReadString('\n')
		if line != "" {
			b.forward(ctx, line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.DebugContext(ctx, "reading operator input", "error", err)
			}
			if b.State != nil && b.State.Stop("input closed") {
				slog.InfoContext(ctx, "Operator input closed. The server won't be restarted.")
			}
			return
		}
	}
}

func (b InputBridge) forward(ctx context.Context, raw string) {
	cmd := strings.TrimSpace(raw)
	if cmd == "" {
		return
	}
	if b.Phase != nil && !b.Phase.Idle() {
		slog.DebugContext(ctx, "installer active: input dropped", "phase", b.Phase.Load().String())
		return
	}
	h := b.Child.Current()
	if h == nil {
		slog.InfoContext(ctx, "No server running.")
		return
	}
	if err := h.WriteLine(cmd); err != nil {
		slog.WarnContext(ctx, "Failed to forward input", "error", err)
	}
}
