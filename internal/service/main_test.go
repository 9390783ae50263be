package service_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

// fake java executables, written once before any test starts, so no test
// execs a file another goroutine still has open for writing (ETXTBSY)
var java struct {
	args    string // prints every argument on its own line
	exit    string // prints to stdout and stderr, exits with $EXIT_CODE
	counter string // exits 1 for the first $FAIL_TIMES runs, counted in $COUNTER
	echo    string // echoes stdin until "stop"
	kill    string // kills itself
}

var haveSh bool

const scripts = `
args:for a in "$@"; do printf '%s\n' "$a"; done
exit:echo out; echo err 1>&2; exit ${EXIT_CODE:-0}
counter:n=$(cat "$COUNTER" 2>/dev/null || echo 0); n=$((n+1)); echo $n > "$COUNTER"; echo "attempt $n"; if [ "$n" -le "$FAIL_TIMES" ]; then exit 1; fi; exit 0
echo:echo ready; while IFS= read -r l; do if [ "$l" = stop ]; then exit 0; fi; printf 'echo:%s\n' "$l"; done; exit 7
kill:kill -9 $$
`

func TestMain(m *testing.M) {
	_, err := exec.LookPath("sh")
	haveSh = err == nil

	dir, err := os.MkdirTemp("", "sessioncore-java-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}
	targets := map[string]*string{
		"args":    &java.args,
		"exit":    &java.exit,
		"counter": &java.counter,
		"echo":    &java.echo,
		"kill":    &java.kill,
	}
	for _, line := range strings.Split(scripts, "\n") {
		name, body, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "writing %s: %v\n", path, err)
			os.Exit(1)
		}
		*targets[name] = path
	}

	goleak.VerifyTestMain(m, goleak.Cleanup(func(code int) {
		_ = os.RemoveAll(dir)
		os.Exit(code)
	}))
}

func requireSh(t *testing.T) {
	t.Helper()
	if !haveSh {
		t.Skip("skipped, binary sh not available")
	}
}
