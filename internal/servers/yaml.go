package servers

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/ScottN-PV/cc-launcher/internal/config"
)

type exportFile struct {
	Servers []config.ServerDescriptor `yaml:"servers"`
}

// ImportResult lists what Import did with each descriptor.
type ImportResult struct {
	Added    []string
	Replaced []string
	Skipped  []string
}

// Export writes the servers with the given ids as YAML. No ids means all.
func (c *Catalog) Export(w io.Writer, ids []string) error {
	doc, err := c.store.Load()
	if err != nil {
		return err
	}

	var out exportFile
	if len(ids) == 0 {
		out.Servers = doc.ServerList()
	} else {
		for _, id := range ids {
			s, ok := doc.Server(id)
			if !ok {
				return &NotFoundError{ID: id}
			}
			out.Servers = append(out.Servers, s)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding servers: %w", err)
	}
	return enc.Close()
}

// Import reads servers from YAML. Existing ids are replaced when replace is
// set and skipped otherwise. Nothing is stored unless every descriptor is
// valid.
func (c *Catalog) Import(r io.Reader, replace bool) (ImportResult, error) {
	var in exportFile
	if err := yaml.NewDecoder(r).Decode(&in); err != nil && err != io.EOF {
		return ImportResult{}, fmt.Errorf("parsing servers: %w", err)
	}

	seen := map[string]bool{}
	incoming := make([]config.ServerDescriptor, 0, len(in.Servers))
	for _, s := range in.Servers {
		s = clean(s)
		if err := Validate(s); err != nil {
			return ImportResult{}, err
		}
		if seen[s.ID] {
			return ImportResult{}, &ValidationError{ID: s.ID, Field: "id", Reason: "appears more than once"}
		}
		seen[s.ID] = true
		incoming = append(incoming, s)
	}

	var res ImportResult
	_, err := c.store.Update(func(doc *config.Document) error {
		res = ImportResult{}
		for _, s := range incoming {
			_, exists := doc.Servers.Get(s.ID)
			switch {
			case !exists:
				res.Added = append(res.Added, s.ID)
			case replace:
				res.Replaced = append(res.Replaced, s.ID)
			default:
				res.Skipped = append(res.Skipped, s.ID)
				continue
			}
			doc.SetServer(s)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	c.logger.Info("servers imported", "added", len(res.Added), "replaced", len(res.Replaced), "skipped", len(res.Skipped))
	return res, nil
}

// Changed reports whether the import stored anything.
func (r ImportResult) Changed() bool {
	return len(r.Added)+len(r.Replaced) > 0
}

