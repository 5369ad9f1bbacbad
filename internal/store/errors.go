package store

import (
	"fmt"
	"time"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/fsutil"
)

// ConfigVersionError is returned for schemas newer (or older) than supported.
type ConfigVersionError = config.VersionError

// ConfigCorruptError is returned when neither the primary file nor its backup
// can be parsed. The caller decides whether to Reset.
type ConfigCorruptError struct {
	Path       string
	PrimaryErr error
	BackupErr  error
}

func (e *ConfigCorruptError) Error() string {
	return "configuration file is corrupt and no usable backup exists"
}

// Detail describes both failures for the log.
func (e *ConfigCorruptError) Detail() string {
	return fmt.Sprintf("%s: primary: %v; backup: %v", e.Path, e.PrimaryErr, e.BackupErr)
}

func (e *ConfigCorruptError) Unwrap() []error {
	return []error{e.PrimaryErr, e.BackupErr}
}

// ConfigWriteError is returned when a save failed after its retry.
type ConfigWriteError struct {
	Path string
	Err  error
}

func (e *ConfigWriteError) Error() string {
	return "could not write configuration file"
}

func (e *ConfigWriteError) Unwrap() error { return e.Err }

// ConfigLockedError is returned when another process held the lock for the
// whole wait. It is safe to try again.
type ConfigLockedError struct {
	Path    string
	Timeout time.Duration
}

func (e *ConfigLockedError) Error() string {
	return "configuration is in use by another process, try again"
}

func (e *ConfigLockedError) Unwrap() error { return fsutil.ErrLockTimeout }
