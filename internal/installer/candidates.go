package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CZERTAINLY/SessionCore/internal/walk"
)

const candidateExt = ".jar"

// Candidates returns the names of server jars found directly in dir, sorted
// by name. The file whose canonical path equals the canonical path of self is
// left out, so the wrapper never offers to supervise itself.
func Candidates(ctx context.Context, dir, self string) ([]string, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}
	defer func() {
		_ = root.Close()
	}()

	var selfPath string
	if self != "" {
		selfPath = canonical(self)
	}

	var ret []string
	for entry, err := range walk.Root(ctx, root) {
		if err != nil {
			slog.DebugContext(ctx, "skipping directory entry", "error", err)
			continue
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name()), candidateExt) {
			continue
		}
		if selfPath != "" && canonical(entry.Path()) == selfPath {
			continue
		}
		ret = append(ret, entry.Name())
	}
	return ret, nil
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
