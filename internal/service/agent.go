package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// EnsureAgent downloads the agent jar from url to path unless path already
// exists. The file appears atomically, a failed download leaves nothing
// behind.
func EnsureAgent(ctx context.Context, client *http.Client, url, path string) error {
	if _, err := os.Stat(path); err == nil {
		slog.InfoContext(ctx, "Authlib Injector present", "path", path)
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	slog.InfoContext(ctx, "Downloading Authlib Injector...", "url", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading agent: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading agent: unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating agent file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("downloading agent: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing agent file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("storing agent file: %w", err)
	}
	slog.InfoContext(ctx, "Download complete.", "path", path, "bytes", n)
	return nil
}
