package model

import (
	"errors"
)

var (
	// ErrConfigInvalid is the root of every reason the stored configuration
	// can't be used as is. Callers recover by running the installer.
	ErrConfigInvalid     = errors.New("config invalid")
	ErrConfigMissing     = errors.New("config file missing")
	ErrServerFileMissing = errors.New("server file missing")
)
