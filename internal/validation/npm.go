package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ScottN-PV/cc-launcher/internal/config"
)

// DefaultRegistryURL is the public npm registry.
const DefaultRegistryURL = "https://registry.npmjs.org"

// DefaultCheckTimeout bounds one registry or local check.
const DefaultCheckTimeout = 5 * time.Second

// PackageName guesses the npm package a stdio server runs: the argument
// after "npx" or "-y", else the last argument that looks like "@scope/name"
// or "dashed-name". It returns "" when nothing fits.
func PackageName(s config.ServerDescriptor) string {
	if s.Type != config.TransportStdio || len(s.Args) == 0 {
		return ""
	}
	args := s.Args
	for i, arg := range args[:len(args)-1] {
		if arg == "npx" || arg == "-y" {
			if next := args[i+1]; next != "-y" && next != "--yes" {
				return next
			}
		}
	}
	for i := len(args) - 1; i >= 0; i-- {
		arg := args[i]
		if strings.HasPrefix(arg, "@") || (strings.Contains(arg, "-") && !strings.HasPrefix(arg, "-")) {
			return arg
		}
	}
	return ""
}

// RegistryInfo is what the registry says about a package.
type RegistryInfo struct {
	Found  bool
	Latest string
	Status int
}

// RegistryClient looks packages up in an npm registry.
type RegistryClient struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewRegistryClient returns a client for baseURL. A nil client gets a
// retrying client with short backoff that hands non-2xx responses back
// instead of failing them.
func NewRegistryClient(baseURL string, client *retryablehttp.Client, logger *slog.Logger) *RegistryClient {
	if baseURL == "" {
		baseURL = DefaultRegistryURL
	}
	if client == nil {
		client = retryablehttp.NewClient()
		client.RetryMax = 2
		client.RetryWaitMin = 200 * time.Millisecond
		client.RetryWaitMax = time.Second
		client.ErrorHandler = retryablehttp.PassthroughErrorHandler
		client.Logger = nil
		if logger != nil {
			client.Logger = logger
		}
	}
	return &RegistryClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// ErrRegistryUnavailable is wrapped by Lookup when the registry answered
// with a server error or rate limit after the retries ran out.
var ErrRegistryUnavailable = errors.New("npm registry unavailable")

// Lookup fetches pkg's metadata. Transport failures, timeouts, 5xx and 429
// responses are returned as errors; other HTTP statuses are reported in
// RegistryInfo.
func (c *RegistryClient) Lookup(ctx context.Context, pkg string) (RegistryInfo, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+pkg, nil)
	if err != nil {
		return RegistryInfo{}, fmt.Errorf("creating registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return RegistryInfo{}, fmt.Errorf("registry request for %s: %w", pkg, err)
	}
	defer resp.Body.Close()

	info := RegistryInfo{Status: resp.StatusCode}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return info, fmt.Errorf("%w: status %d for %s", ErrRegistryUnavailable, resp.StatusCode, pkg)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return info, nil
	}

	var body struct {
		DistTags map[string]string `json:"dist-tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return RegistryInfo{}, fmt.Errorf("parsing registry response for %s: %w", pkg, err)
	}
	info.Found = true
	info.Latest = body.DistTags["latest"]
	if info.Latest == "" {
		info.Latest = "unknown"
	}
	return info, nil
}

// LocalChecker reports whether a package is installed globally.
type LocalChecker interface {
	InstalledVersion(ctx context.Context, pkg string) (version string, ok bool)
}

// NPMLocal asks the npm CLI about global installs.
type NPMLocal struct {
	Timeout  time.Duration
	LookPath func(string) (string, error)
	Logger   *slog.Logger
}

// InstalledVersion runs `npm list -g <pkg> --depth=0 --json`. A missing npm
// binary or any failure counts as not installed.
func (n NPMLocal) InstalledVersion(ctx context.Context, pkg string) (string, bool) {
	lookPath := n.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	npm, err := lookPath("npm")
	if err != nil {
		if n.Logger != nil {
			n.Logger.Debug("npm not found, skipping local check", "package", pkg)
		}
		return "", false
	}

	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, npm, "list", "-g", pkg, "--depth=0", "--json").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if n.Logger != nil && !errors.As(err, &exitErr) {
			n.Logger.Debug("npm list failed", "package", pkg, "error", err)
		}
		return "", false
	}
	return parseNPMList(out, pkg)
}

func parseNPMList(out []byte, pkg string) (string, bool) {
	var listing struct {
		Dependencies map[string]struct {
			Version string `json:"version"`
		} `json:"dependencies"`
	}
	if err := json.Unmarshal(out, &listing); err != nil {
		return "", false
	}
	dep, ok := listing.Dependencies[pkg]
	if !ok {
		return "", false
	}
	if dep.Version == "" {
		return "unknown", true
	}
	return dep.Version, true
}
