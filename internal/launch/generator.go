package launch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/logging"
)

// DefaultCLI is the command the generated line runs.
const DefaultCLI = "claude"

// StaleAfter is the age at which leftover descriptor files are swept.
const StaleAfter = 24 * time.Hour

// Options configures a Generator. Zero values use the running platform,
// os.TempDir and "claude".
type Options struct {
	Platform *Platform
	TempDir  string
	CLI      string
	// Resolver overrides the per-directory resolver built by NewResolver.
	Resolver *Resolver
	Now      func() time.Time
	Logger   *slog.Logger
}

// Generator writes descriptor files and launch commands. It remembers the
// descriptor it wrote last so the next Prepare can replace it.
type Generator struct {
	platform Platform
	tempDir  string
	cli      string
	resolver *Resolver
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	last string
}

// Launch is a prepared launch: a descriptor file on disk and the command
// that uses it.
type Launch struct {
	Command        string
	DescriptorPath string
	WorkingDir     string
	Shell          Shell
	Servers        []string
	Unresolved     []string
}

// NewGenerator returns a Generator.
func NewGenerator(opts Options) *Generator {
	g := &Generator{
		platform: Current(),
		tempDir:  opts.TempDir,
		cli:      opts.CLI,
		resolver: opts.Resolver,
		now:      opts.Now,
		logger:   logging.For(opts.Logger, logging.SubsystemLaunch),
	}
	if opts.Platform != nil {
		g.platform = *opts.Platform
	}
	if g.tempDir == "" {
		g.tempDir = os.TempDir()
	}
	if g.cli == "" {
		g.cli = DefaultCLI
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Platform returns the platform commands are generated for.
func (g *Generator) Platform() Platform { return g.platform }

// CheckProjectPath verifies dir exists and is a directory.
func CheckProjectPath(dir string) error {
	if dir == "" {
		return &InvalidProjectPathError{Path: `""`, Reason: "is empty"}
	}
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return &InvalidProjectPathError{Path: dir, Reason: "does not exist", Err: err}
	}
	if err != nil {
		return &InvalidProjectPathError{Path: dir, Reason: "cannot be read", Err: err}
	}
	if !info.IsDir() {
		return &InvalidProjectPathError{Path: dir, Reason: "is not a directory"}
	}
	return nil
}

func (g *Generator) resolverFor(workingDir string) *Resolver {
	if g.resolver != nil {
		r := *g.resolver
		r.WorkingDir = workingDir
		return &r
	}
	r, err := NewResolver(workingDir)
	if err != nil {
		g.logger.Warn("ignoring unreadable .env file", "dir", workingDir, "error", err)
	}
	return r
}

// BuildDescriptorFile writes the enabled servers to a new cc-mcp-*.json file
// in the temp directory. Nothing is written when no server is enabled.
func (g *Generator) BuildDescriptorFile(servers []config.ServerDescriptor, workingDir string) (string, []string, error) {
	enabled := enabledOnly(servers)
	if len(enabled) == 0 {
		return "", nil, &NoEnabledServersError{}
	}

	data, unresolved, err := marshalDescriptor(enabled, g.platform, g.resolverFor(workingDir))
	if err != nil {
		return "", nil, err
	}

	if err := os.MkdirAll(g.tempDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating temp directory: %w", err)
	}
	f, err := os.CreateTemp(g.tempDir, DescriptorPattern)
	if err != nil {
		return "", nil, fmt.Errorf("creating descriptor file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("writing descriptor file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("closing descriptor file: %w", err)
	}

	if len(unresolved) > 0 {
		g.logger.Warn("unresolved variables in descriptor", "path", path, "variables", unresolved)
	}
	g.logger.Info("descriptor written", "path", path, "servers", len(enabled))
	return path, unresolved, nil
}

// BuildCommand returns the command that changes to workingDir and starts the
// CLI with the descriptor, in the shell's dialect.
func (g *Generator) BuildCommand(workingDir, descriptorPath string, shell Shell) (string, error) {
	if err := CheckProjectPath(workingDir); err != nil {
		return "", err
	}
	return shell.Dialect().Command(workingDir, descriptorPath, g.cli), nil
}

// Prepare checks the project path and the enabled set before touching the
// disk, sweeps stale descriptors, then writes the descriptor and builds the
// command. The descriptor from the previous Prepare is removed.
func (g *Generator) Prepare(servers []config.ServerDescriptor, workingDir string, shell Shell) (Launch, error) {
	if err := CheckProjectPath(workingDir); err != nil {
		return Launch{}, err
	}
	enabled := enabledOnly(servers)
	if len(enabled) == 0 {
		return Launch{}, &NoEnabledServersError{}
	}

	if n, err := g.SweepStale(); err != nil {
		g.logger.Warn("sweeping stale descriptors", "error", err)
	} else if n > 0 {
		g.logger.Info("removed stale descriptors", "count", n)
	}

	path, unresolved, err := g.BuildDescriptorFile(enabled, workingDir)
	if err != nil {
		return Launch{}, err
	}
	cmd, err := g.BuildCommand(workingDir, path, shell)
	if err != nil {
		os.Remove(path)
		return Launch{}, err
	}

	g.mu.Lock()
	prev := g.last
	g.last = path
	g.mu.Unlock()
	if prev != "" && prev != path {
		if err := os.Remove(prev); err != nil && !os.IsNotExist(err) {
			g.logger.Warn("removing previous descriptor", "path", prev, "error", err)
		}
	}

	ids := make([]string, 0, len(enabled))
	for _, s := range enabled {
		ids = append(ids, s.ID)
	}
	return Launch{
		Command:        cmd,
		DescriptorPath: path,
		WorkingDir:     workingDir,
		Shell:          shell,
		Servers:        ids,
		Unresolved:     unresolved,
	}, nil
}

// SweepStale removes descriptor files in the temp directory that are at
// least StaleAfter old. They are left behind by sessions that never cleaned
// up.
func (g *Generator) SweepStale() (int, error) {
	matches, err := filepath.Glob(filepath.Join(g.tempDir, DescriptorPattern))
	if err != nil {
		return 0, fmt.Errorf("listing descriptors: %w", err)
	}
	now := g.now()
	removed := 0
	var errs []error
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || now.Sub(info.ModTime()) < StaleAfter {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Cleanup removes the descriptor written by the last Prepare.
func (g *Generator) Cleanup() error {
	g.mu.Lock()
	path := g.last
	g.last = ""
	g.mu.Unlock()
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing descriptor: %w", err)
	}
	g.logger.Debug("descriptor removed", "path", path)
	return nil
}

// BuildDescriptorFile writes a descriptor with a default Generator.
func BuildDescriptorFile(servers []config.ServerDescriptor, workingDir string) (string, []string, error) {
	return NewGenerator(Options{}).BuildDescriptorFile(servers, workingDir)
}

// BuildCommand builds a command with a default Generator.
func BuildCommand(workingDir, descriptorPath string, shell Shell) (string, error) {
	return NewGenerator(Options{}).BuildCommand(workingDir, descriptorPath, shell)
}
