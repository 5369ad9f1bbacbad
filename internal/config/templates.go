package config

// Templates returns the built-in server catalog used to seed a new document.
// Every call builds fresh values, so callers may mutate the result freely.
func Templates() []ServerDescriptor {
	return []ServerDescriptor{
		npxTemplate("filesystem", "Access local file system for reading and writing files", "core",
			"@modelcontextprotocol/server-filesystem", "."),
		npxTemplate("ref", "Search documentation and references online", "documentation",
			"@ref-mcp/server"),
		npxTemplate("supabase", "Supabase database integration and management", "database",
			"@supabase/mcp-server"),
		npxTemplate("lucide-icons", "Search and use Lucide icon library", "ui",
			"lucide-icons-mcp"),
		npxTemplate("shadcn", "shadcn/ui component library integration", "ui",
			"@modelcontextprotocol/server-shadcn"),
		npxTemplate("sequential-thinking", "Advanced reasoning and problem-solving tool", "reasoning",
			"@sequential-thinking/mcp"),
		npxTemplate("motion", "Motion animation library for web interfaces", "animation",
			"@motion/mcp-server"),
	}
}

// Template returns a fresh copy of the catalog entry with the given id.
func Template(id string) (ServerDescriptor, bool) {
	for _, t := range Templates() {
		if t.ID == id {
			return t, true
		}
	}
	return ServerDescriptor{}, false
}

func npxTemplate(id, description, category string, pkgArgs ...string) ServerDescriptor {
	return ServerDescriptor{
		ID:           id,
		Type:         TransportStdio,
		CommandOrURL: "npx",
		Args:         append([]string{"-y"}, pkgArgs...),
		Env:          map[string]string{},
		Headers:      map[string]string{},
		Description:  description,
		Category:     category,
		Enabled:      false,
	}
}
