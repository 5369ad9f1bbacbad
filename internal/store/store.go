package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/fsutil"
	"github.com/ScottN-PV/cc-launcher/internal/logging"
	"github.com/ScottN-PV/cc-launcher/internal/paths"
)

// Options configures a Store. Zero values use the defaults.
type Options struct {
	LockTimeout   time.Duration
	PollInterval  time.Duration
	WatchDebounce time.Duration
	Logger        *slog.Logger
}

// Store owns the on-disk config document, its backup and its lock file.
type Store struct {
	path       string
	backupPath string
	lockPath   string
	lockOpts   fsutil.LockOptions
	debounce   time.Duration
	logger     *slog.Logger

	writeFile func(path string, data []byte, perm os.FileMode) error
}

// New returns a Store for the document at path.
func New(path string, opts Options) *Store {
	debounce := opts.WatchDebounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Store{
		path:       path,
		backupPath: paths.BackupFile(path),
		lockPath:   paths.LockFile(path),
		lockOpts: fsutil.LockOptions{
			Timeout:      opts.LockTimeout,
			PollInterval: opts.PollInterval,
		},
		debounce:  debounce,
		logger:    logging.For(opts.Logger, logging.SubsystemStore),
		writeFile: fsutil.WriteFileAtomic,
	}
}

// Path returns the primary document path.
func (s *Store) Path() string { return s.path }

// BackupPath returns the backup document path.
func (s *Store) BackupPath() string { return s.backupPath }

// Load reads the document. A missing file is replaced by the default
// document; a corrupt one is recovered from the backup when possible.
func (s *Store) Load() (*config.Document, error) {
	return s.load(false)
}

// Save writes doc atomically under the lock, keeping the previous file as
// the backup.
func (s *Store) Save(doc *config.Document) error {
	return s.withLock(func() error {
		return s.write(doc, true)
	})
}

// Update runs fn on a freshly loaded document and saves the result, holding
// the lock for the whole cycle so concurrent processes cannot interleave.
// If fn fails nothing is written.
func (s *Store) Update(fn func(doc *config.Document) error) (*config.Document, error) {
	var doc *config.Document
	err := s.withLock(func() error {
		var err error
		if doc, err = s.load(true); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		return s.write(doc, true)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Reset replaces the document with the default one. The previous primary,
// even if corrupt, becomes the backup.
func (s *Store) Reset() (*config.Document, error) {
	doc := config.Default()
	if err := s.Save(doc); err != nil {
		return nil, err
	}
	s.logger.Info("configuration reset to defaults", "path", s.path)
	return doc, nil
}

func (s *Store) load(locked bool) (*config.Document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.createDefault(locked)
	}

	var primaryErr error
	if err != nil {
		primaryErr = fmt.Errorf("reading config: %w", err)
	} else {
		doc, err := config.Parse(data)
		if err == nil {
			s.sanitize(doc)
			return doc, nil
		}
		var verr *config.VersionError
		if errors.As(err, &verr) {
			return nil, err
		}
		primaryErr = err
	}

	s.logger.Warn("config file unreadable, trying backup", "path", s.path, "error", primaryErr)
	doc, backupErr := s.readBackup()
	if backupErr != nil {
		corrupt := &ConfigCorruptError{Path: s.path, PrimaryErr: primaryErr, BackupErr: backupErr}
		s.logger.Error("config recovery failed", "detail", corrupt.Detail())
		return nil, corrupt
	}
	s.sanitize(doc)

	// The backup is the only good copy, so it must not be overwritten by the
	// corrupt primary on the way back.
	restore := func() error { return s.write(doc, false) }
	if locked {
		err = restore()
	} else {
		err = s.withLock(restore)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("configuration restored from backup", "path", s.path)
	return doc, nil
}

func (s *Store) readBackup() (*config.Document, error) {
	data, err := os.ReadFile(s.backupPath)
	if err != nil {
		return nil, fmt.Errorf("reading backup: %w", err)
	}
	return config.Parse(data)
}

func (s *Store) createDefault(locked bool) (*config.Document, error) {
	var doc *config.Document
	create := func() error {
		// Another process may have created it while we waited for the lock.
		// Whatever is there now goes through the normal load and recovery
		// path; it is never replaced with defaults.
		if _, err := os.Stat(s.path); !os.IsNotExist(err) {
			loaded, err := s.load(true)
			if err != nil {
				return err
			}
			doc = loaded
			return nil
		}
		doc = config.Default()
		s.logger.Info("creating default configuration", "path", s.path, "templates", doc.Servers.Len())
		return s.write(doc, false)
	}

	var err error
	if locked {
		err = create()
	} else {
		err = s.withLock(create)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// sanitize drops references that no longer resolve and bounds the recent
// project list.
func (s *Store) sanitize(doc *config.Document) {
	if recent := doc.Preferences.RecentProjects; len(recent) > config.MaxRecentProjects {
		s.logger.Info("trimmed recent projects", "dropped", len(recent)-config.MaxRecentProjects)
		doc.Preferences.RecentProjects = recent[:config.MaxRecentProjects]
	}
	for pid, ids := range doc.PruneDanglingServers() {
		s.logger.Info("pruned unknown servers from profile", "profile", pid, "servers", ids)
	}
	if lp := doc.Preferences.LastProfile; lp != "" {
		if _, ok := doc.Profiles[lp]; !ok {
			doc.Preferences.LastProfile = ""
		}
	}
}

// write serializes doc and replaces the primary, retrying once.
func (s *Store) write(doc *config.Document, backup bool) error {
	doc.SchemaVersion = config.CurrentSchemaVersion
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}
	data, err := config.Marshal(doc)
	if err != nil {
		return err
	}

	attempt := func() error {
		if backup {
			if _, err := os.Stat(s.path); err == nil {
				if err := fsutil.CopyFileAtomic(s.path, s.backupPath); err != nil {
					return fmt.Errorf("writing backup: %w", err)
				}
			}
		}
		return s.writeFile(s.path, data, 0o644)
	}

	if err = attempt(); err != nil {
		s.logger.Warn("config write failed, retrying", "path", s.path, "error", err)
		if err = attempt(); err != nil {
			s.logger.Error("config write failed", "path", s.path, "error", err)
			return &ConfigWriteError{Path: s.path, Err: err}
		}
	}
	s.logger.Debug("configuration saved", "path", s.path, "bytes", len(data))
	return nil
}

func (s *Store) withLock(fn func() error) error {
	err := fsutil.WithLock(s.lockPath, s.lockOpts, fn)
	if errors.Is(err, fsutil.ErrLockTimeout) {
		timeout := s.lockOpts.Timeout
		if timeout <= 0 {
			timeout = fsutil.DefaultLockTimeout
		}
		s.logger.Warn("timed out waiting for config lock", "lock", s.lockPath, "timeout", timeout)
		return &ConfigLockedError{Path: s.lockPath, Timeout: timeout}
	}
	return err
}
