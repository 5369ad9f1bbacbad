// Package commands implements the cc-launcher use cases on top of the core
// packages. The CLI in cmd/cc-launcher is a thin layer over it.
package commands

import (
	"log/slog"

	"github.com/ScottN-PV/cc-launcher/internal/fsutil"
	"github.com/ScottN-PV/cc-launcher/internal/launch"
	"github.com/ScottN-PV/cc-launcher/internal/logging"
	"github.com/ScottN-PV/cc-launcher/internal/profiles"
	"github.com/ScottN-PV/cc-launcher/internal/servers"
	"github.com/ScottN-PV/cc-launcher/internal/settings"
	"github.com/ScottN-PV/cc-launcher/internal/store"
	"github.com/ScottN-PV/cc-launcher/internal/validation"
)

// App wires the components together for one process.
type App struct {
	Settings  *settings.Settings
	Store     *store.Store
	Profiles  *profiles.Registry
	Servers   *servers.Catalog
	Cache     *validation.Cache
	Validator *validation.Validator
	Generator *launch.Generator
	Logger    *slog.Logger
}

// Overrides replaces components in tests. Zero fields use the real ones.
type Overrides struct {
	Platform   *launch.Platform
	TempDir    string
	Resolver   *launch.Resolver
	Validation validation.Options
	Profiles   []profiles.Option
}

// Open builds an App from settings. Only the validation cache is read.
func Open(s *settings.Settings, logger *slog.Logger, o Overrides) *App {
	if logger == nil {
		logger = logging.Discard()
	}
	st := store.New(s.ConfigFile(), store.Options{
		LockTimeout: s.LockTimeout,
		Logger:      logger,
	})

	cache := validation.OpenCache(s.ValidationCacheFile(), validation.CacheOptions{
		Now:    o.Validation.Now,
		Lock:   fsutil.LockOptions{Timeout: s.LockTimeout},
		Logger: logger,
	})
	vopts := o.Validation
	if vopts.RegistryURL == "" {
		vopts.RegistryURL = s.RegistryURL
	}
	if vopts.Concurrency == 0 {
		vopts.Concurrency = s.Concurrency
	}
	vopts.Offline = vopts.Offline || s.Offline
	vopts.Logger = logger

	popts := append([]profiles.Option{profiles.WithLogger(logger)}, o.Profiles...)

	return &App{
		Settings:  s,
		Store:     st,
		Profiles:  profiles.New(st, popts...),
		Servers:   servers.New(st, logger),
		Cache:     cache,
		Validator: validation.NewValidator(cache, vopts),
		Generator: launch.NewGenerator(launch.Options{
			Platform: o.Platform,
			TempDir:  o.TempDir,
			CLI:      s.CLI,
			Resolver: o.Resolver,
			Logger:   logger,
		}),
		Logger: logging.For(logger, logging.SubsystemCLI),
	}
}
