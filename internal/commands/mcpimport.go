package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/launch"
	"github.com/ScottN-PV/cc-launcher/internal/profiles"
	"github.com/ScottN-PV/cc-launcher/internal/servers"
)

// DetectedSecret represents a secret value found in a server's env or
// headers.
type DetectedSecret struct {
	ServerID string
	Key      string
	Value    string
	Header   bool
	Reason   string
}

// MCPImportScanResult holds the servers read from an .mcp.json file.
type MCPImportScanResult struct {
	SourcePath string
	Servers    []config.ServerDescriptor
	Secrets    []DetectedSecret
}

// MCPImportScan reads an .mcp.json file and detects secrets in env and
// header values.
func MCPImportScan(sourcePath string) (*MCPImportScanResult, error) {
	list, err := launch.ReadDescriptorFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sourcePath, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no MCP servers found in %s", sourcePath)
	}
	for i := range list {
		if list[i].Description == "" {
			list[i].Description = "Imported from " + filepath.Base(sourcePath)
		}
	}
	return &MCPImportScanResult{
		SourcePath: sourcePath,
		Servers:    list,
		Secrets:    DetectSecrets(list),
	}, nil
}

// DetectSecrets scans servers for literal credentials, sorted by server
// then key.
func DetectSecrets(list []config.ServerDescriptor) []DetectedSecret {
	var secrets []DetectedSecret
	for _, s := range list {
		for key, value := range s.Env {
			if isReference(value) {
				continue
			}
			if reason := classifySecret(key, value); reason != "" {
				secrets = append(secrets, DetectedSecret{ServerID: s.ID, Key: key, Value: value, Reason: reason})
			}
		}
		for key, value := range s.Headers {
			if isReference(value) {
				continue
			}
			if reason := classifyHeader(key, value); reason != "" {
				secrets = append(secrets, DetectedSecret{ServerID: s.ID, Key: key, Value: value, Header: true, Reason: reason})
			}
		}
	}
	sort.Slice(secrets, func(i, j int) bool {
		if secrets[i].ServerID != secrets[j].ServerID {
			return secrets[i].ServerID < secrets[j].ServerID
		}
		return secrets[i].Key < secrets[j].Key
	})
	return secrets
}

func classifySecret(key, value string) string {
	if reason := isSecretKey(key); reason != "" {
		return reason
	}
	return isSecretValue(value)
}

func classifyHeader(key, value string) string {
	if strings.EqualFold(key, "Authorization") {
		return "authorization header"
	}
	return classifySecret(key, value)
}

func isSecretKey(key string) string {
	upper := strings.ToUpper(key)
	for _, suffix := range []string{"_KEY", "_TOKEN", "_SECRET", "_PASSWORD", "_APIKEY"} {
		if strings.HasSuffix(upper, suffix) {
			return fmt.Sprintf("key matches *%s", suffix)
		}
	}
	return ""
}

// Known secret value prefixes from common services.
var secretPrefixes = []string{
	"sk-",         // OpenAI, Stripe
	"ghp_",        // GitHub
	"github_pat_", // GitHub fine-grained
	"xoxb-",       // Slack bot token
	"xoxp-",       // Slack user token
	"sbp_",        // Supabase
	"shpat_",      // Shopify
	"live_",       // payment providers
}

func isSecretValue(value string) string {
	for _, prefix := range secretPrefixes {
		if strings.HasPrefix(value, prefix) {
			return fmt.Sprintf("value matches %s* prefix", prefix)
		}
	}

	// 32+ chars and mostly alphanumeric.
	if len(value) >= 32 {
		alnum := 0
		for _, r := range value {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				alnum++
			}
		}
		if float64(alnum)/float64(len(value)) >= 0.8 {
			return "long alphanumeric string (likely credential)"
		}
	}
	return ""
}

// isReference reports whether value already refers to a variable.
func isReference(value string) bool {
	return strings.Contains(value, "${") ||
		(strings.HasPrefix(value, "$") && len(value) > 1) ||
		(strings.Count(value, "%") >= 2)
}

// VariableReference returns how name is written on platform p.
func VariableReference(p launch.Platform, name string) string {
	if p.Posix() {
		return "${" + name + "}"
	}
	return "%" + name + "%"
}

// ReplaceSecrets returns copies of list with each detected secret replaced
// by a reference to a variable of the same name. Header secrets become
// references to the header name upper-cased with dashes as underscores.
func ReplaceSecrets(list []config.ServerDescriptor, secrets []DetectedSecret, p launch.Platform) []config.ServerDescriptor {
	out := make([]config.ServerDescriptor, len(list))
	for i, s := range list {
		s = s.Clone()
		for _, secret := range secrets {
			if secret.ServerID != s.ID {
				continue
			}
			if secret.Header {
				s.Headers[secret.Key] = VariableReference(p, HeaderVariable(secret.Key))
			} else {
				s.Env[secret.Key] = VariableReference(p, secret.Key)
			}
		}
		out[i] = s
	}
	return out
}

// HeaderVariable names the variable a header secret is moved to.
func HeaderVariable(header string) string {
	return strings.ToUpper(strings.ReplaceAll(header, "-", "_"))
}

// MCPImportOptions configures MCPImport.
type MCPImportOptions struct {
	Servers []config.ServerDescriptor
	// Profile, when set, receives every imported server.
	Profile string
	// Replace overwrites servers that already exist.
	Replace bool
}

// MCPImportResult holds the result of an import.
type MCPImportResult struct {
	Imported []string
	Skipped  []string
	Profile  *config.Profile
}

// MCPImport adds servers to the catalog in one save. Every server is
// validated first; one invalid server aborts the import.
func MCPImport(a *App, opts MCPImportOptions) (*MCPImportResult, error) {
	var problems []error
	for _, s := range opts.Servers {
		if err := servers.Validate(s); err != nil {
			problems = append(problems, err)
		}
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}

	var profile *config.Profile
	if opts.Profile != "" {
		p, err := a.Profiles.Resolve(opts.Profile)
		if err != nil {
			return nil, err
		}
		profile = &p
	}

	res := &MCPImportResult{}
	_, err := a.Store.Update(func(doc *config.Document) error {
		res.Imported, res.Skipped = nil, nil
		for _, s := range opts.Servers {
			if _, exists := doc.Servers.Get(s.ID); exists && !opts.Replace {
				res.Skipped = append(res.Skipped, s.ID)
				continue
			}
			doc.SetServer(s)
			res.Imported = append(res.Imported, s.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if profile != nil && len(res.Imported) > 0 {
		ids := slices.Clone(profile.EnabledServerIDs)
		for _, id := range res.Imported {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
		p, err := a.Profiles.Update(profile.ID, profiles.UpdateOptions{ServerIDs: ids})
		if err != nil {
			return nil, err
		}
		res.Profile = &p
	}

	a.Logger.Info("mcp servers imported", "imported", len(res.Imported), "skipped", len(res.Skipped))
	return res, nil
}
