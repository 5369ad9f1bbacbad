// Package profiles manages named server sets stored in the config document.
//
// Every mutation loads the document, changes it and saves it in one locked
// cycle. Nothing is cached between calls, so a failed save leaves neither
// memory nor disk half-updated.
package profiles

import (
	"cmp"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/logging"
)

// Store is the persistence the registry needs. *store.Store satisfies it.
type Store interface {
	Load() (*config.Document, error)
	Update(fn func(doc *config.Document) error) (*config.Document, error)
}

// UpdateOptions selects the fields Update changes. A nil Name or ServerIDs
// leaves that field alone; an empty non-nil ServerIDs clears the set.
type UpdateOptions struct {
	Name      *string
	ServerIDs []string
}

// Registry performs profile CRUD against a Store.
type Registry struct {
	store  Store
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = logging.For(l, logging.SubsystemProfiles) }
}

// New returns a Registry backed by st.
func New(st Store, opts ...Option) *Registry {
	r := &Registry{
		store:  st,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) timestamp() time.Time {
	return r.now().UTC()
}

// Create adds a profile. created, modified and last_used are all set to now.
func (r *Registry) Create(name string, serverIDs []string) (config.Profile, error) {
	var created config.Profile
	_, err := r.store.Update(func(doc *config.Document) error {
		name, err := checkName(doc, name, "")
		if err != nil {
			return err
		}
		ids, err := checkServers(doc, serverIDs)
		if err != nil {
			return err
		}

		now := r.timestamp()
		id := r.newID()
		for _, taken := doc.Profiles[id]; taken; _, taken = doc.Profiles[id] {
			id = r.newID()
		}
		created = config.Profile{
			ID:               id,
			Name:             name,
			EnabledServerIDs: ids,
			Created:          now,
			Modified:         now,
			LastUsed:         &now,
		}
		doc.Profiles[id] = created
		return nil
	})
	if err != nil {
		return config.Profile{}, err
	}
	r.logger.Info("profile created", "id", created.ID, "name", created.Name, "servers", len(created.EnabledServerIDs))
	return created.Clone(), nil
}

// Update changes the name and/or server set of a profile and bumps modified.
func (r *Registry) Update(id string, opts UpdateOptions) (config.Profile, error) {
	var updated config.Profile
	_, err := r.store.Update(func(doc *config.Document) error {
		p, ok := doc.Profiles[id]
		if !ok {
			return &NotFoundError{ID: id}
		}
		if opts.Name != nil {
			name, err := checkName(doc, *opts.Name, id)
			if err != nil {
				return err
			}
			p.Name = name
		}
		if opts.ServerIDs != nil {
			ids, err := checkServers(doc, opts.ServerIDs)
			if err != nil {
				return err
			}
			p.EnabledServerIDs = ids
		}
		p.Modified = r.timestamp()
		doc.Profiles[id] = p
		updated = p
		return nil
	})
	if err != nil {
		return config.Profile{}, err
	}
	r.logger.Info("profile updated", "id", id, "name", updated.Name)
	return updated.Clone(), nil
}

// Delete removes a profile, clearing last_profile if it pointed there.
func (r *Registry) Delete(id string) error {
	_, err := r.store.Update(func(doc *config.Document) error {
		if _, ok := doc.Profiles[id]; !ok {
			return &NotFoundError{ID: id}
		}
		delete(doc.Profiles, id)
		if doc.Preferences.LastProfile == id {
			doc.Preferences.LastProfile = ""
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("profile deleted", "id", id)
	return nil
}

// SetActive records id as the last used profile. It is the only operation
// that moves last_used after creation.
func (r *Registry) SetActive(id string) (config.Profile, error) {
	var active config.Profile
	_, err := r.store.Update(func(doc *config.Document) error {
		p, ok := doc.Profiles[id]
		if !ok {
			return &NotFoundError{ID: id}
		}
		now := r.timestamp()
		p.LastUsed = &now
		doc.Profiles[id] = p
		doc.Preferences.LastProfile = id
		active = p
		return nil
	})
	if err != nil {
		return config.Profile{}, err
	}
	r.logger.Debug("profile activated", "id", id)
	return active.Clone(), nil
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (config.Profile, error) {
	doc, err := r.store.Load()
	if err != nil {
		return config.Profile{}, err
	}
	p, ok := doc.Profiles[id]
	if !ok {
		return config.Profile{}, &NotFoundError{ID: id}
	}
	return p.Clone(), nil
}

// Resolve finds a profile by id, or by case-insensitive name.
func (r *Registry) Resolve(ref string) (config.Profile, error) {
	doc, err := r.store.Load()
	if err != nil {
		return config.Profile{}, err
	}
	if p, ok := doc.Profiles[ref]; ok {
		return p.Clone(), nil
	}
	for _, id := range doc.ProfileIDs() {
		if p := doc.Profiles[id]; strings.EqualFold(p.Name, strings.TrimSpace(ref)) {
			return p.Clone(), nil
		}
	}
	return config.Profile{}, &NotFoundError{ID: ref}
}

// Active returns the profile named by preferences.last_profile.
func (r *Registry) Active() (config.Profile, bool, error) {
	doc, err := r.store.Load()
	if err != nil {
		return config.Profile{}, false, err
	}
	p, ok := doc.Profiles[doc.Preferences.LastProfile]
	if !ok {
		return config.Profile{}, false, nil
	}
	return p.Clone(), true, nil
}

// List returns profiles ordered by modified descending, ties broken by id.
// A non-empty category keeps profiles with at least one server in it. The
// sequence reads from a snapshot taken when List is called.
func (r *Registry) List(category string) (iter.Seq[config.Profile], error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	snapshot := make([]config.Profile, 0, len(doc.Profiles))
	for _, p := range doc.Profiles {
		snapshot = append(snapshot, p.Clone())
	}
	slices.SortFunc(snapshot, func(a, b config.Profile) int {
		return cmp.Or(b.Modified.Compare(a.Modified), cmp.Compare(a.ID, b.ID))
	})

	inCategory := func(p config.Profile) bool {
		if category == "" {
			return true
		}
		for _, sid := range p.EnabledServerIDs {
			if s, ok := doc.Servers.Get(sid); ok && strings.EqualFold(s.Category, category) {
				return true
			}
		}
		return false
	}

	return func(yield func(config.Profile) bool) {
		for _, p := range snapshot {
			if !inCategory(p) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}, nil
}

func checkName(doc *config.Document, name, self string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	for id, p := range doc.Profiles {
		if id != self && strings.EqualFold(p.Name, name) {
			return "", &ValidationError{Field: "name", Reason: fmt.Sprintf("%q is already used", name)}
		}
	}
	return name, nil
}

// checkServers rejects unknown ids and drops duplicates, keeping order.
func checkServers(doc *config.Document, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		if _, ok := doc.Servers.Get(id); !ok {
			unknown = append(unknown, id)
			continue
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	if len(unknown) > 0 {
		return nil, &ValidationError{Field: "servers", Reason: "unknown server " + strings.Join(unknown, ", ")}
	}
	return out, nil
}
