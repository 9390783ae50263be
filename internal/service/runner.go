package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Command is the java invocation of one server lifetime. Args must stay
// byte for byte compatible with what authlib-injector expects.
type Command struct {
	Java         string
	AgentPath    string
	AuthEndpoint string
	ServerFile   string
	Dir          string
	Env          []string
}

func (c Command) Args() []string {
	return []string{
		"-javaagent:" + c.AgentPath + "=" + c.AuthEndpoint,
		"-jar",
		c.ServerFile,
		"nogui",
	}
}

// String is for humans only, the process is never started through a shell.
func (c Command) String() string {
	return c.Java + " " + strings.Join(c.Args(), " ")
}

// LaunchError reports a server which could not be started at all: missing
// java, permission denied and similar.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return "launching " + e.Path + ": " + e.Err.Error()
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Launcher starts one server lifetime.
type Launcher interface {
	Launch(ctx context.Context, serverFile, authEndpoint string) (*Handle, error)
}

// ProcessLauncher starts the server as a java child process. Its output is
// teed to Console and appended to the file at LogPath.
type ProcessLauncher struct {
	Java      string
	AgentPath string
	Dir       string
	Env       []string
	Console   io.Writer
	LogPath   string
}

func (l ProcessLauncher) Command(serverFile, authEndpoint string) Command {
	java := l.Java
	if java == "" {
		java = DefaultJava
	}
	return Command{
		Java:         java,
		AgentPath:    l.AgentPath,
		AuthEndpoint: authEndpoint,
		ServerFile:   serverFile,
		Dir:          l.Dir,
		Env:          append([]string(nil), l.Env...),
	}
}

// Launch starts the process and its OutputBridge. Cancelling ctx asks the
// server to stop by sending os.Interrupt, it is never killed.
func (l ProcessLauncher) Launch(ctx context.Context, serverFile, authEndpoint string) (*Handle, error) {
	proto := l.Command(serverFile, authEndpoint)

	cmd := exec.CommandContext(ctx, proto.Java, proto.Args()...)
	cmd.Dir = proto.Dir
	if len(proto.Env) > 0 {
		cmd.Env = proto.Env
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &LaunchError{Path: proto.Java, Err: err}
	}
	// a single writer for both streams, exec serializes the writes
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return nil, &LaunchError{Path: proto.Java, Err: err}
	}

	h := &Handle{
		proto:   proto,
		cmd:     cmd,
		stdin:   stdin,
		started: time.Now().UTC(),
	}

	logFile := l.openLog(ctx)
	bridge := OutputBridge{Console: l.Console}
	if logFile != nil {
		bridge.Log = logFile
	}

	h.g.Go(func() error {
		defer func() {
			if logFile != nil {
				_ = logFile.Close()
			}
		}()
		n, err := bridge.Pipe(pr)
		if err != nil {
			slog.DebugContext(ctx, "output bridge degraded", "lines", n, "error", err)
		}
		return nil
	})
	h.g.Go(func() error {
		err := cmd.Wait()
		_ = pw.Close()
		return err
	})
	return h, nil
}

func (l ProcessLauncher) openLog(ctx context.Context) *os.File {
	if l.LogPath == "" {
		return nil
	}
	f, err := os.OpenFile(l.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.WarnContext(ctx, "server log not available", "path", l.LogPath, "error", err)
		return nil
	}
	return f
}

// Handle is one running server. The Supervisor owns it; bridges only borrow
// it for the lifetime of the child.
type Handle struct {
	proto   Command
	cmd     *exec.Cmd
	started time.Time

	stdinMx sync.Mutex
	stdin   io.WriteCloser

	g        errgroup.Group
	waitOnce sync.Once
	exitCode int
	waitErr  error
}

func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

func (h *Handle) Command() Command {
	return h.proto
}

func (h *Handle) Started() time.Time {
	return h.started
}

// WriteLine sends line followed by a newline to the server's stdin. Writes
// are serialized, so a command is never interleaved with another one.
func (h *Handle) WriteLine(line string) error {
	h.stdinMx.Lock()
	defer h.stdinMx.Unlock()
	_, err := io.WriteString(h.stdin, line+"\n")
	return err
}

// Wait blocks until the process exited and its output was fully drained.
// It returns the exit code, -1 when the process did not exit normally (e.g.
// killed by a signal). The error is non-nil only when waiting itself failed,
// a non-zero exit is not an error. Wait can be called multiple times.
func (h *Handle) Wait() (int, error) {
	h.waitOnce.Do(func() {
		err := h.g.Wait()
		h.exitCode = -1
		if h.cmd.ProcessState != nil {
			h.exitCode = h.cmd.ProcessState.ExitCode()
		}
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			h.waitErr = err
		}
	})
	return h.exitCode, h.waitErr
}
