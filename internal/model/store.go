package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ConfigStore persists Config at Path. Relative server-file values are
// resolved against Dir, an empty Dir means the working directory.
type ConfigStore struct {
	Path string
	Dir  string
}

// Load reads and validates the stored configuration. Every failure wraps
// ErrConfigInvalid.
func (s ConfigStore) Load() (Config, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %w: %s", ErrConfigInvalid, ErrConfigMissing, s.Path)
		}
		return Config{}, fmt.Errorf("%w: opening %s: %w", ErrConfigInvalid, s.Path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, err := LoadConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%w: parsing %s: %w", ErrConfigInvalid, s.Path, err)
	}

	if !s.isFile(cfg.ServerFile) {
		return *cfg, fmt.Errorf("%w: %w: %s", ErrConfigInvalid, ErrServerFileMissing, cfg.ServerFile)
	}
	return *cfg, nil
}

// Save atomically replaces the stored configuration.
func (s ConfigStore) Save(cfg Config) error {
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return fmt.Errorf("creating config: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := cfg.Encode(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storing configuration: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storing configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	return nil
}

func (s ConfigStore) isFile(path string) bool {
	if path == "" {
		return false
	}
	if !filepath.IsAbs(path) && s.Dir != "" {
		path = filepath.Join(s.Dir, path)
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
