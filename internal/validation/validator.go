package validation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/logging"
	"github.com/ScottN-PV/cc-launcher/internal/servers"
)

// DefaultConcurrency bounds parallel checks in ValidateAll.
const DefaultConcurrency = 4

// Options configures a Validator.
type Options struct {
	RegistryURL string
	HTTPClient  *retryablehttp.Client
	Local       LocalChecker
	Timeout     time.Duration
	Concurrency int
	// Offline reports cached entries only, unless a check is forced.
	Offline bool
	Now     func() time.Time
	Logger  *slog.Logger
}

// Result is the validation state of one server as shown to the user.
type Result struct {
	ServerID  string
	Entry     Entry
	Freshness Freshness
	// Cached is set when no check ran.
	Cached bool
	// Degraded is set when the check could not reach the registry and the
	// previous entry is reported instead.
	Degraded bool
	// Superseded is set when a newer request for the same server started
	// while this one ran; its outcome was dropped.
	Superseded bool
}

// Validator checks servers and records the results in a Cache.
type Validator struct {
	cache       *Cache
	registry    *RegistryClient
	local       LocalChecker
	timeout     time.Duration
	concurrency int
	offline     bool
	now         func() time.Time
	logger      *slog.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

// NewValidator returns a Validator writing to cache.
func NewValidator(cache *Cache, opts Options) *Validator {
	logger := logging.For(opts.Logger, logging.SubsystemValidation)
	v := &Validator{
		cache:       cache,
		registry:    NewRegistryClient(opts.RegistryURL, opts.HTTPClient, opts.Logger),
		local:       opts.Local,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		offline:     opts.Offline,
		now:         opts.Now,
		logger:      logger,
		generations: map[string]uint64{},
	}
	if v.local == nil {
		v.local = NPMLocal{Logger: logger}
	}
	if v.timeout <= 0 {
		v.timeout = DefaultCheckTimeout
	}
	if v.concurrency <= 0 {
		v.concurrency = DefaultConcurrency
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

// Cache returns the cache results are written to.
func (v *Validator) Cache() *Cache { return v.cache }

// Validate checks one server unless a fresh cached entry exists or force is
// unset in offline mode. It never returns an error: failures to reach the
// registry degrade to the previous entry.
func (v *Validator) Validate(ctx context.Context, s config.ServerDescriptor, force bool) Result {
	cached, freshness := v.cache.Lookup(s.ID, v.now())
	if v.offline && !force {
		return Result{ServerID: s.ID, Entry: cached, Freshness: freshness, Cached: true}
	}
	if !force && freshness == Fresh {
		return Result{ServerID: s.ID, Entry: cached, Freshness: Fresh, Cached: true}
	}

	gen := v.begin(s.ID)
	entry, err := v.check(ctx, s)

	if !v.current(s.ID, gen) {
		v.logger.Debug("dropping superseded check", "server", s.ID, "generation", gen)
		latest, f := v.cache.Lookup(s.ID, v.now())
		return Result{ServerID: s.ID, Entry: latest, Freshness: f, Superseded: true}
	}

	if err != nil {
		v.logger.Warn("validation degraded", "server", s.ID, "error", err)
		return v.degraded(s.ID)
	}

	if err := v.cache.Put(s.ID, entry); err != nil {
		v.logger.Error("saving validation result", "server", s.ID, "error", err)
		return v.degraded(s.ID)
	}
	saved := v.cache.Get(s.ID)
	v.logger.Info("validated server", "server", s.ID, "status", saved.Status)
	return Result{ServerID: s.ID, Entry: saved, Freshness: Fresh}
}

// degraded reports the previous entry for id, never as fresh.
func (v *Validator) degraded(id string) Result {
	prev, f := v.cache.Lookup(id, v.now())
	if f == Fresh {
		f = Stale
	}
	return Result{ServerID: id, Entry: prev, Freshness: f, Degraded: true}
}

// ValidateAll validates servers concurrently and returns results in input
// order.
func (v *Validator) ValidateAll(ctx context.Context, list []config.ServerDescriptor, force bool) []Result {
	results := make([]Result, len(list))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, s := range list {
		g.Go(func() error {
			results[i] = v.Validate(ctx, s, force)
			return nil
		})
	}
	_ = g.Wait()
	v.logger.Debug("validation run finished", "servers", len(list), "force", force)
	return results
}

// begin starts a new generation for id and returns it.
func (v *Validator) begin(id string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generations[id]++
	return v.generations[id]
}

func (v *Validator) current(id string, gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generations[id] == gen
}

// check runs the actual lookups. Only unreachable-registry conditions are
// returned as errors.
func (v *Validator) check(ctx context.Context, s config.ServerDescriptor) (Entry, error) {
	switch s.Type {
	case config.TransportHTTP:
		if err := servers.ValidateURL(s.CommandOrURL); err != nil {
			return Entry{Status: StatusError, Message: err.Reason}, nil
		}
		return Entry{Status: StatusOK, Message: "URL is well formed"}, nil
	case config.TransportStdio:
	default:
		return Entry{Status: StatusUnknown, Message: fmt.Sprintf("unknown transport %q", s.Type)}, nil
	}

	pkg := PackageName(s)
	if pkg == "" {
		return Entry{Status: StatusWarning, Message: "could not determine npm package from arguments"}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	info, err := v.registry.Lookup(lookupCtx, pkg)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{LatestVersion: info.Latest}
	switch {
	case info.Found:
		entry.Status = StatusOK
		entry.Message = fmt.Sprintf("%s %s on npm", pkg, info.Latest)
	case info.Status == http.StatusNotFound:
		entry.Status = StatusError
		entry.Message = fmt.Sprintf("%s not found in npm registry", pkg)
	default:
		entry.Status = StatusWarning
		entry.Message = fmt.Sprintf("npm registry returned status %d", info.Status)
	}

	if version, ok := v.local.InstalledVersion(ctx, pkg); ok {
		entry.LocalVersion = version
		entry.Message += fmt.Sprintf(", installed globally (%s)", version)
	}
	return entry, nil
}
