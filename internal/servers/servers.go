// Package servers edits the server descriptors in the config document.
package servers

import (
	"log/slog"
	"strings"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/logging"
)

// Store is the persistence the catalog needs. *store.Store satisfies it.
type Store interface {
	Load() (*config.Document, error)
	Update(fn func(doc *config.Document) error) (*config.Document, error)
}

// Catalog adds, edits and removes server descriptors.
type Catalog struct {
	store  Store
	logger *slog.Logger
}

// New returns a Catalog backed by st.
func New(st Store, logger *slog.Logger) *Catalog {
	return &Catalog{store: st, logger: logging.For(logger, logging.SubsystemServers)}
}

// Templates returns fresh copies of the built-in catalog.
func Templates() []config.ServerDescriptor {
	return config.Templates()
}

// List returns all servers in insertion order.
func (c *Catalog) List() ([]config.ServerDescriptor, error) {
	doc, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	return doc.ServerList(), nil
}

// Get returns one server.
func (c *Catalog) Get(id string) (config.ServerDescriptor, error) {
	doc, err := c.store.Load()
	if err != nil {
		return config.ServerDescriptor{}, err
	}
	s, ok := doc.Server(id)
	if !ok {
		return config.ServerDescriptor{}, &NotFoundError{ID: id}
	}
	return s, nil
}

// Add stores a new server under s.ID.
func (c *Catalog) Add(s config.ServerDescriptor) (config.ServerDescriptor, error) {
	s = clean(s)
	if err := Validate(s); err != nil {
		return config.ServerDescriptor{}, err
	}
	_, err := c.store.Update(func(doc *config.Document) error {
		if _, exists := doc.Servers.Get(s.ID); exists {
			return &ValidationError{ID: s.ID, Field: "id", Reason: "already exists"}
		}
		doc.SetServer(s)
		return nil
	})
	if err != nil {
		return config.ServerDescriptor{}, err
	}
	c.logger.Info("server added", "id", s.ID, "type", s.Type)
	return s.Clone(), nil
}

// AddTemplate adds the built-in template id, enabled.
func (c *Catalog) AddTemplate(id string) (config.ServerDescriptor, error) {
	tmpl, ok := config.Template(id)
	if !ok {
		return config.ServerDescriptor{}, &NotFoundError{ID: id}
	}
	tmpl.Enabled = true
	return c.Add(tmpl)
}

// Edit replaces the server with the given id. The id itself cannot change.
func (c *Catalog) Edit(id string, s config.ServerDescriptor) (config.ServerDescriptor, error) {
	s.ID = id
	s = clean(s)
	if err := Validate(s); err != nil {
		return config.ServerDescriptor{}, err
	}
	_, err := c.store.Update(func(doc *config.Document) error {
		if _, exists := doc.Servers.Get(id); !exists {
			return &NotFoundError{ID: id}
		}
		doc.SetServer(s)
		return nil
	})
	if err != nil {
		return config.ServerDescriptor{}, err
	}
	c.logger.Info("server edited", "id", id)
	return s.Clone(), nil
}

// Delete removes a server and drops it from every profile.
func (c *Catalog) Delete(id string) error {
	_, err := c.store.Update(func(doc *config.Document) error {
		if !doc.DeleteServer(id) {
			return &NotFoundError{ID: id}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Info("server deleted", "id", id)
	return nil
}

// SetEnabled toggles the enabled flag.
func (c *Catalog) SetEnabled(id string, enabled bool) (config.ServerDescriptor, error) {
	var out config.ServerDescriptor
	_, err := c.store.Update(func(doc *config.Document) error {
		s, ok := doc.Server(id)
		if !ok {
			return &NotFoundError{ID: id}
		}
		s.Enabled = enabled
		doc.SetServer(s)
		out = s
		return nil
	})
	if err != nil {
		return config.ServerDescriptor{}, err
	}
	c.logger.Debug("server toggled", "id", id, "enabled", enabled)
	return out, nil
}

// clean trims user input and fills defaults.
func clean(s config.ServerDescriptor) config.ServerDescriptor {
	s = s.Clone()
	s.ID = strings.TrimSpace(s.ID)
	s.CommandOrURL = strings.TrimSpace(s.CommandOrURL)
	s.Category = strings.TrimSpace(s.Category)
	if s.Category == "" {
		s.Category = config.DefaultCategory
	}
	if s.Type == "" {
		s.Type = config.TransportStdio
	}
	return s
}
