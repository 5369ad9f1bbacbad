package launch

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ScottN-PV/cc-launcher/internal/config"
)

// DescriptorPattern is the os.CreateTemp pattern for descriptor files.
const DescriptorPattern = "cc-mcp-*.json"

type stdioEntry struct {
	Type    string            `json:"type"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

type httpEntry struct {
	Type    string            `json:"type"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

type descriptorFile struct {
	MCPServers *orderedmap.OrderedMap[string, any] `json:"mcpServers"`
}

// enabledOnly filters servers down to the enabled ones, keeping order.
func enabledOnly(servers []config.ServerDescriptor) []config.ServerDescriptor {
	out := make([]config.ServerDescriptor, 0, len(servers))
	for _, s := range servers {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// marshalDescriptor renders the enabled servers with every value expanded.
// It returns the unresolved variable names, sorted.
func marshalDescriptor(servers []config.ServerDescriptor, p Platform, r *Resolver) ([]byte, []string, error) {
	missing := map[string]bool{}
	expand := func(s string) string {
		out, unresolved := ExpandEnvironment(s, p, r)
		for _, name := range unresolved {
			missing[name] = true
		}
		return out
	}
	expandMap := func(m map[string]string) map[string]string {
		if len(m) == 0 {
			return nil
		}
		out := make(map[string]string, len(m))
		for k, v := range m {
			out[k] = expand(v)
		}
		return out
	}

	entries := orderedmap.New[string, any]()
	for _, s := range servers {
		switch s.Type {
		case config.TransportHTTP:
			entries.Set(s.ID, httpEntry{
				Type:    string(config.TransportHTTP),
				URL:     expand(s.CommandOrURL),
				Headers: expandMap(s.Headers),
			})
		case config.TransportStdio:
			args := make([]string, 0, len(s.Args))
			for _, a := range s.Args {
				args = append(args, expand(a))
			}
			entries.Set(s.ID, stdioEntry{
				Type:    string(config.TransportStdio),
				Command: expand(s.CommandOrURL),
				Args:    args,
				Env:     expandMap(s.Env),
			})
		default:
			return nil, nil, fmt.Errorf("server %q has unknown type %q", s.ID, s.Type)
		}
	}

	data, err := json.MarshalIndent(descriptorFile{MCPServers: entries}, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling descriptor: %w", err)
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(data, '\n'), names, nil
}

// ReadDescriptorFile reads an {"mcpServers": {...}} file, such as a
// generated descriptor or a project's .mcp.json, back into descriptors.
// Entries come back enabled, in file order.
func ReadDescriptorFile(path string) ([]config.ServerDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MCP config: %w", err)
	}

	var wrapper struct {
		MCPServers *orderedmap.OrderedMap[string, json.RawMessage] `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parsing MCP config: %w", err)
	}
	if wrapper.MCPServers == nil {
		return nil, nil
	}

	var out []config.ServerDescriptor
	for pair := wrapper.MCPServers.Oldest(); pair != nil; pair = pair.Next() {
		var raw struct {
			Type    string            `json:"type"`
			Command string            `json:"command"`
			Args    []string          `json:"args"`
			Env     map[string]string `json:"env"`
			URL     string            `json:"url"`
			Headers map[string]string `json:"headers"`
		}
		if err := json.Unmarshal(pair.Value, &raw); err != nil {
			return nil, fmt.Errorf("parsing MCP server %q: %w", pair.Key, err)
		}
		s := config.ServerDescriptor{
			ID:      pair.Key,
			Type:    config.TransportStdio,
			Args:    raw.Args,
			Env:     raw.Env,
			Enabled: true,
		}
		// Claude's own files leave type out for stdio servers.
		if raw.Type == string(config.TransportHTTP) || raw.Type == "sse" || (raw.Type == "" && raw.URL != "") {
			s.Type = config.TransportHTTP
			s.CommandOrURL = raw.URL
			s.Headers = raw.Headers
		} else {
			s.CommandOrURL = raw.Command
		}
		out = append(out, s.Clone())
	}
	return out, nil
}
