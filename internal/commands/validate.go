package commands

import (
	"context"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/servers"
	"github.com/ScottN-PV/cc-launcher/internal/validation"
)

// ValidationReport is the outcome of RunValidation.
type ValidationReport struct {
	Results []validation.Result
	// Offline is set when the skip_validation preference limited the run
	// to cached entries.
	Offline bool
}

// Counts tallies results by status.
func (r *ValidationReport) Counts() map[validation.Status]int {
	counts := map[validation.Status]int{}
	for _, res := range r.Results {
		status := res.Entry.Status
		if status == "" {
			status = validation.StatusUnknown
		}
		counts[status]++
	}
	return counts
}

// RunValidation validates the servers named by ids, or every server when ids
// is empty. Fresh cached entries are reused unless force is set.
func RunValidation(ctx context.Context, a *App, ids []string, force bool) (*ValidationReport, error) {
	doc, err := a.Store.Load()
	if err != nil {
		return nil, err
	}
	list, err := selectServers(doc, ids)
	if err != nil {
		return nil, err
	}

	if doc.Preferences.SkipValidation && !force {
		now := a.Cache.Now()
		results := make([]validation.Result, 0, len(list))
		for _, s := range list {
			entry, freshness := a.Cache.Lookup(s.ID, now)
			results = append(results, validation.Result{ServerID: s.ID, Entry: entry, Freshness: freshness, Cached: true})
		}
		return &ValidationReport{Results: results, Offline: true}, nil
	}

	return &ValidationReport{Results: a.Validator.ValidateAll(ctx, list, force)}, nil
}

// ClearValidationCache drops every cached validation result.
func ClearValidationCache(a *App) error {
	return a.Cache.InvalidateAll()
}

func selectServers(doc *config.Document, ids []string) ([]config.ServerDescriptor, error) {
	if len(ids) == 0 {
		return doc.ServerList(), nil
	}
	out := make([]config.ServerDescriptor, 0, len(ids))
	for _, id := range ids {
		s, ok := doc.Server(id)
		if !ok {
			return nil, &servers.NotFoundError{ID: id}
		}
		out = append(out, s)
	}
	return out, nil
}
