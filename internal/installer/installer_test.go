package installer_test

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CZERTAINLY/SessionCore/internal/installer"
	"github.com/CZERTAINLY/SessionCore/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, name := range []string{"paper.jar", "Vanilla.JAR", "a.jar", "readme.txt", "sessioncore.jar"} {
		creat(t, filepath.Join(dir, name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.jar"), 0o755))

	t.Run("all", func(t *testing.T) {
		jars, err := installer.Candidates(t.Context(), dir, "")
		require.NoError(t, err)
		require.Equal(t, []string{"Vanilla.JAR", "a.jar", "paper.jar", "sessioncore.jar"}, jars)
	})

	t.Run("self excluded", func(t *testing.T) {
		// a non canonical spelling of the same file
		self := filepath.Join(dir, ".", "sub", "..", "sessioncore.jar")
		jars, err := installer.Candidates(t.Context(), dir, self)
		require.NoError(t, err)
		require.Equal(t, []string{"Vanilla.JAR", "a.jar", "paper.jar"}, jars)
	})

	t.Run("self via symlink", func(t *testing.T) {
		other := t.TempDir()
		link := filepath.Join(other, "wrapper.jar")
		require.NoError(t, os.Symlink(filepath.Join(dir, "paper.jar"), link))
		jars, err := installer.Candidates(t.Context(), dir, link)
		require.NoError(t, err)
		require.NotContains(t, jars, "paper.jar")
	})

	t.Run("symlinked jar", func(t *testing.T) {
		linked := t.TempDir()
		store := t.TempDir()
		creat(t, filepath.Join(store, "paper-1.21.jar"))
		require.NoError(t, os.Symlink(filepath.Join(store, "paper-1.21.jar"), filepath.Join(linked, "server.jar")))
		jars, err := installer.Candidates(t.Context(), linked, "")
		require.NoError(t, err)
		require.Equal(t, []string{"server.jar"}, jars)
	})

	t.Run("missing dir", func(t *testing.T) {
		_, err := installer.Candidates(t.Context(), filepath.Join(dir, "nope"), "")
		require.Error(t, err)
	})
}

func TestInstaller(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		jars     []string
		input    string
		then     func(t *testing.T, cfg model.Config, err error, out string)
	}{
		{
			scenario: "zero candidates",
			input:    "https://auth\n",
			then: func(t *testing.T, _ model.Config, err error, out string) {
				require.ErrorIs(t, err, installer.ErrNoCandidates)
				require.Contains(t, out, "[SessionCore] No .jar files found.\n")
			},
		},
		{
			scenario: "one candidate auto selected",
			jars:     []string{"server.jar"},
			input:    "\n   \nhttps://auth.example.com\n",
			then: func(t *testing.T, cfg model.Config, err error, out string) {
				require.NoError(t, err)
				require.Equal(t, model.Config{AuthEndpoint: "https://auth.example.com", ServerFile: "server.jar"}, cfg)
				require.Equal(t, 2, strings.Count(out, "Empty input. Please enter authentication server URL:"))
				require.Contains(t, out, "[SessionCore] Only one .jar found. Selected: server.jar\n")
				require.NotContains(t, out, "Enter number:")
			},
		},
		{
			scenario: "many candidates with retries",
			jars:     []string{"b.jar", "a.jar", "c.jar"},
			input:    "https://auth\n\nabc\n0\n4\n-1\n2\n",
			then: func(t *testing.T, cfg model.Config, err error, out string) {
				require.NoError(t, err)
				require.Equal(t, "b.jar", cfg.ServerFile)
				require.Contains(t, out, "  1) a.jar\n  2) b.jar\n  3) c.jar\nEnter number:\n")
				require.Equal(t, 1, strings.Count(out, "Enter a number:"))
				require.Equal(t, 1, strings.Count(out, "Invalid number. Try again:"))
				require.Equal(t, 3, strings.Count(out, "Invalid selection. Try again."))
			},
		},
		{
			scenario: "last line without newline",
			jars:     []string{"a.jar", "b.jar"},
			input:    "https://auth\n1",
			then: func(t *testing.T, cfg model.Config, err error, _ string) {
				require.NoError(t, err)
				require.Equal(t, "a.jar", cfg.ServerFile)
			},
		},
		{
			scenario: "eof while asking endpoint",
			jars:     []string{"a.jar"},
			input:    "\n",
			then: func(t *testing.T, _ model.Config, err error, _ string) {
				require.ErrorIs(t, err, installer.ErrAborted)
			},
		},
		{
			scenario: "eof while selecting",
			jars:     []string{"a.jar", "b.jar"},
			input:    "https://auth\nxyz\n",
			then: func(t *testing.T, _ model.Config, err error, _ string) {
				require.ErrorIs(t, err, installer.ErrAborted)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			for _, jar := range tc.jars {
				creat(t, filepath.Join(dir, jar))
			}
			var out bytes.Buffer
			var phase model.PhaseCell
			store := model.ConfigStore{Path: filepath.Join(dir, "SessionCore.yml"), Dir: dir}
			inst := installer.Installer{
				In:    bufio.NewReader(strings.NewReader(tc.input)),
				Out:   &out,
				Phase: &phase,
				Store: store,
				Dir:   dir,
			}
			cfg, err := inst.Run(t.Context())
			tc.then(t, cfg, err, out.String())
			require.True(t, phase.Idle(), "phase must be idle once the installer returns")

			if err == nil {
				stored, err := store.Load()
				require.NoError(t, err)
				require.Equal(t, cfg, stored)
			} else {
				_, statErr := os.Stat(store.Path)
				require.ErrorIs(t, statErr, os.ErrNotExist)
			}
		})
	}
}

func TestInstaller_SaveFails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	creat(t, filepath.Join(dir, "a.jar"))
	inst := installer.Installer{
		In:    bufio.NewReader(strings.NewReader("https://auth\n")),
		Out:   io.Discard,
		Store: model.ConfigStore{Path: filepath.Join(dir, "missing", "SessionCore.yml")},
		Dir:   dir,
	}
	_, err := inst.Run(t.Context())
	require.Error(t, err)
	require.NotErrorIs(t, err, installer.ErrAborted)
}

// TestInstaller_Phases observes the phase from another goroutine while the
// installer blocks on its input.
func TestInstaller_Phases(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	creat(t, filepath.Join(dir, "a.jar"))
	creat(t, filepath.Join(dir, "b.jar"))

	pr, pw := io.Pipe()
	var phase model.PhaseCell
	inst := installer.Installer{
		In:    bufio.NewReader(pr),
		Out:   io.Discard,
		Phase: &phase,
		Store: model.ConfigStore{Path: filepath.Join(dir, "SessionCore.yml"), Dir: dir},
		Dir:   dir,
	}

	var wg sync.WaitGroup
	var err error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err = inst.Run(t.Context())
	}()

	require.Eventually(t, func() bool { return phase.Load() == model.PhaseAwaitingEndpoint }, time.Second, time.Millisecond)
	_, werr := io.WriteString(pw, "https://auth\n")
	require.NoError(t, werr)
	require.Eventually(t, func() bool { return phase.Load() == model.PhaseAwaitingSelection }, time.Second, time.Millisecond)
	_, werr = io.WriteString(pw, "2\n")
	require.NoError(t, werr)
	wg.Wait()
	require.NoError(t, err)
	require.True(t, phase.Idle())
	_ = pw.Close()
}

func creat(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04"), 0o644))
}
