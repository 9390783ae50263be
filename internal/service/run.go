package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/term"

	"github.com/CZERTAINLY/SessionCore/internal/installer"
	"github.com/CZERTAINLY/SessionCore/internal/model"
)

// Streams are the operator facing streams of the wrapper.
type Streams struct {
	In  io.Reader
	Out io.Writer
}

// Run implements CLI run command: it makes sure the agent and the
// configuration are in place, then supervises the server until it shuts down
// cleanly or the operator closes the input.
func Run(ctx context.Context, settings Settings, streams Streams) error {
	slog.InfoContext(ctx, "Starting SessionCore...")

	agentPath := settings.Path(settings.AgentPath)
	if err := EnsureAgent(ctx, http.DefaultClient, settings.AgentURL, agentPath); err != nil {
		slog.WarnContext(ctx, "Failed to download Authlib Injector", "error", err)
	}

	// installer and input bridge share one reader, so no line buffered by
	// one of them is lost to the other
	in := bufio.NewReader(streams.In)
	var phase model.PhaseCell
	var state model.StateCell

	cfg, err := loadOrInstall(ctx, settings, in, streams, &phase)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Using auth server", model.KeyAuthEndpoint, cfg.AuthEndpoint)
	slog.InfoContext(ctx, "Using server file", model.KeyServerFile, cfg.ServerFile)

	supervisor := NewSupervisor(ProcessLauncher{
		Java:      settings.Java,
		AgentPath: settings.AgentPath,
		Dir:       settings.Dir,
		Console:   streams.Out,
		LogPath:   settings.Path(settings.LogFile),
	}, nil, &state).WithBackOff(backoff.NewConstantBackOff(settings.Backoff))

	input := InputBridge{
		In:    in,
		Phase: &phase,
		Child: supervisor.Slot(),
		State: &state,
	}
	go input.Run(ctx)

	res, err := supervisor.Run(ctx, cfg.ServerFile, cfg.AuthEndpoint)
	slog.InfoContext(ctx, "Wrapper terminated.", "launches", res.Launches, "exit_code", res.LastExitCode)
	return err
}

func loadOrInstall(ctx context.Context, settings Settings, in *bufio.Reader, streams Streams, phase *model.PhaseCell) (model.Config, error) {
	store := model.ConfigStore{
		Path: settings.Path(settings.Config),
		Dir:  settings.Dir,
	}
	cfg, err := store.Load()
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, model.ErrConfigInvalid) {
		return model.Config{}, err
	}

	slog.WarnContext(ctx, "Configuration not usable", "error", err)
	for _, d := range model.CueErrDetails(err) {
		slog.WarnContext(ctx, d.Message, d.Attr("detail"))
	}
	if f, ok := streams.In.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		slog.WarnContext(ctx, "stdin is not a terminal: installer answers are read from piped input")
	}

	self, err := os.Executable()
	if err != nil {
		slog.DebugContext(ctx, "can't locate own executable", "error", err)
		self = ""
	}
	inst := installer.Installer{
		In:    in,
		Out:   streams.Out,
		Phase: phase,
		Store: store,
		Dir:   settings.Dir,
		Self:  self,
	}
	cfg, err = inst.Run(ctx)
	if err != nil {
		return model.Config{}, fmt.Errorf("installer: %w", err)
	}
	return cfg, nil
}
