// Package validation checks whether server packages resolve and caches the
// results for a day.
package validation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/ScottN-PV/cc-launcher/internal/fsutil"
	"github.com/ScottN-PV/cc-launcher/internal/logging"
	"github.com/ScottN-PV/cc-launcher/internal/paths"
)

// TTL is how long a check result stays fresh.
const TTL = 24 * time.Hour

// CacheSchemaVersion is the cache file layout written by this build.
const CacheSchemaVersion = 1

// Status is the outcome of a check.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// Freshness classifies a cached entry relative to TTL.
type Freshness int

const (
	Absent Freshness = iota
	Fresh
	Stale
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// Entry is one cached check result.
type Entry struct {
	ServerID      string    `json:"-"`
	Status        Status    `json:"status"`
	Message       string    `json:"message"`
	CheckedAt     time.Time `json:"checked_at"`
	LatestVersion string    `json:"latest_version,omitempty"`
	LocalVersion  string    `json:"local_version,omitempty"`
}

type cachePayload struct {
	SchemaVersion int              `json:"schema_version"`
	Entries       map[string]Entry `json:"entries"`
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	Now    func() time.Time
	Lock   fsutil.LockOptions
	Logger *slog.Logger
}

// Cache is the on-disk validation cache. It is safe for concurrent use; its
// file has its own lock, separate from the config document's.
type Cache struct {
	mu       sync.Mutex
	path     string
	lockPath string
	lockOpts fsutil.LockOptions
	entries  map[string]Entry
	now      func() time.Time
	logger   *slog.Logger
}

// OpenCache loads the cache at path. A missing, unreadable or foreign file
// yields an empty cache; results can always be recomputed.
func OpenCache(path string, opts CacheOptions) *Cache {
	c := &Cache{
		path:     path,
		lockPath: paths.LockFile(path),
		lockOpts: opts.Lock,
		entries:  map[string]Entry{},
		now:      opts.Now,
		logger:   logging.For(opts.Logger, logging.SubsystemValidation),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if entries, err := c.read(); err != nil {
		c.logger.Warn("ignoring validation cache", "path", path, "error", err)
	} else {
		c.entries = entries
	}
	return c
}

// Path returns the cache file path.
func (c *Cache) Path() string { return c.path }

// Now returns the cache's current time.
func (c *Cache) Now() time.Time { return c.now() }

// Get returns the entry for id, or an unknown entry if never checked.
func (c *Cache) Get(id string) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e
	}
	return Entry{ServerID: id, Status: StatusUnknown}
}

// Lookup returns the entry for id and how fresh it is at now.
func (c *Cache) Lookup(id string, now time.Time) (Entry, Freshness) {
	c.mu.Lock()
	e, ok := c.entries[id]
	c.mu.Unlock()
	if !ok {
		return Entry{ServerID: id, Status: StatusUnknown}, Absent
	}
	if isStale(e, now) {
		return e, Stale
	}
	return e, Fresh
}

// IsStale reports whether id is absent or at least TTL old at now.
func (c *Cache) IsStale(id string, now time.Time) bool {
	_, f := c.Lookup(id, now)
	return f != Fresh
}

func isStale(e Entry, now time.Time) bool {
	return now.Sub(e.CheckedAt) >= TTL
}

// Put stamps e with the current time and persists it under id.
func (c *Cache) Put(id string, e Entry) error {
	e.ServerID = id
	e.CheckedAt = c.now().UTC()
	if e.Status == "" {
		e.Status = StatusUnknown
	}
	return c.mutate(func(entries map[string]Entry) {
		entries[id] = e
	})
}

// Invalidate drops the entry for id.
func (c *Cache) Invalidate(id string) error {
	return c.mutate(func(entries map[string]Entry) {
		delete(entries, id)
	})
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() error {
	return c.mutate(func(entries map[string]Entry) {
		clear(entries)
	})
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// mutate re-reads the file under the lock so entries written by other
// processes survive, applies fn to a copy and writes it. The in-memory
// entries change only once the write succeeded.
func (c *Cache) mutate(fn func(entries map[string]Entry)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return fsutil.WithLock(c.lockPath, c.lockOpts, func() error {
		base := c.entries
		if onDisk, err := c.read(); err == nil {
			base = onDisk
		}
		next := maps.Clone(base)
		if next == nil {
			next = map[string]Entry{}
		}
		fn(next)

		data, err := json.MarshalIndent(cachePayload{SchemaVersion: CacheSchemaVersion, Entries: next}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling validation cache: %w", err)
		}
		if err := fsutil.WriteFileAtomic(c.path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing validation cache: %w", err)
		}
		c.entries = next
		return nil
	})
}

func (c *Cache) read() (map[string]Entry, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var payload cachePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing validation cache: %w", err)
	}
	if payload.SchemaVersion != CacheSchemaVersion {
		return nil, fmt.Errorf("validation cache schema %d, want %d", payload.SchemaVersion, CacheSchemaVersion)
	}
	entries := make(map[string]Entry, len(payload.Entries))
	for id, e := range payload.Entries {
		e.ServerID = id
		entries[id] = e
	}
	return entries, nil
}
