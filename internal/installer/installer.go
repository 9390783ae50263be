package installer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/CZERTAINLY/SessionCore/internal/log"
	"github.com/CZERTAINLY/SessionCore/internal/model"
)

var (
	ErrAborted      = errors.New("installer aborted: input closed")
	ErrNoCandidates = errors.New("no .jar files found: put your server jar in this directory")
)

type Installer struct {
	In    *bufio.Reader
	Out   io.Writer
	Phase *model.PhaseCell
	Store model.ConfigStore
	// Dir is searched for server jars, empty means the working directory.
	Dir string
	// Self is the path of the running wrapper, excluded from the candidates.
	Self string
}

// Run asks for the authentication endpoint and the server jar, then saves the
// configuration. The phase is back to idle when Run returns, whatever the
// outcome.
func (i Installer) Run(ctx context.Context) (model.Config, error) {
	phase := i.Phase
	if phase == nil {
		phase = &model.PhaseCell{}
	}
	defer phase.Store(model.PhaseIdle)

	i.println("")
	i.status("No valid configuration detected. Running interactive installer.")
	i.println("")

	phase.Store(model.PhaseAwaitingEndpoint)
	auth, err := i.askEndpoint()
	if err != nil {
		return model.Config{}, err
	}
	i.status("Set %s = %s", model.KeyAuthEndpoint, auth)

	phase.Store(model.PhaseAwaitingSelection)
	dir := i.Dir
	if dir == "" {
		dir = "."
	}
	jars, err := Candidates(ctx, dir, i.Self)
	if err != nil {
		return model.Config{}, fmt.Errorf("listing server jars: %w", err)
	}
	serverFile, err := i.selectJar(jars)
	if err != nil {
		return model.Config{}, err
	}

	cfg := model.Config{
		AuthEndpoint: auth,
		ServerFile:   serverFile,
	}
	if err := i.Store.Save(cfg); err != nil {
		i.status("Failed to write config: %v", err)
		return model.Config{}, fmt.Errorf("saving %s: %w", i.Store.Path, err)
	}
	i.status("Configuration saved to %s", i.Store.Path)
	return cfg, nil
}

func (i Installer) askEndpoint() (string, error) {
	i.status("Enter authentication server URL:")
	for {
		line, err := i.readLine()
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
		i.status("Empty input. Please enter authentication server URL:")
	}
}

func (i Installer) selectJar(jars []string) (string, error) {
	switch len(jars) {
	case 0:
		i.status("No .jar files found.")
		return "", ErrNoCandidates
	case 1:
		i.status("Only one .jar found. Selected: %s", jars[0])
		return jars[0], nil
	}

	i.println("")
	i.status("Select the server JAR:")
	for idx, jar := range jars {
		i.println(fmt.Sprintf("  %d) %s", idx+1, jar))
	}
	i.println("Enter number:")

	for {
		line, err := i.readLine()
		if err != nil {
			return "", err
		}
		if line == "" {
			i.status("Enter a number:")
			continue
		}
		idx, err := strconv.Atoi(line)
		if err != nil {
			i.status("Invalid number. Try again:")
			continue
		}
		if idx < 1 || idx > len(jars) {
			i.status("Invalid selection. Try again.")
			continue
		}
		chosen := jars[idx-1]
		i.status("Selected %s = %s", model.KeyServerFile, chosen)
		return chosen, nil
	}
}

// readLine returns the next trimmed line. A last line without a newline is
// still returned, io.EOF with nothing read becomes ErrAborted.
func (i Installer) readLine() (string, error) {
	line, err := i.In.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", ErrAborted
			}
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return strings.TrimSpace(line), nil
}

func (i Installer) status(format string, args ...any) {
	log.Fprintf(i.Out, format, args...)
}

func (i Installer) println(s string) {
	_, _ = fmt.Fprintln(i.Out, s)
}
