package remotelist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry holds one Sync per catalog entry so every surface listing the same
// collection shares its data.
type Registry struct {
	catalog Catalog
	syncs   map[string]*Sync
}

func NewRegistry(catalog Catalog, fetcher Fetcher, opts Options) *Registry {
	r := &Registry{catalog: catalog, syncs: make(map[string]*Sync, len(catalog))}
	for name, col := range catalog {
		r.syncs[name] = New(col, fetcher, opts)
	}
	return r
}

func (r *Registry) Get(name string) (*Sync, bool) {
	s, ok := r.syncs[name]
	return s, ok
}

func (r *Registry) Names() []string { return r.catalog.Names() }

// Snapshots returns the current snapshot of every collection, keyed by name.
func (r *Registry) Snapshots() map[string]Snapshot {
	out := make(map[string]Snapshot, len(r.syncs))
	for name, s := range r.syncs {
		out[name] = s.Snapshot()
	}
	return out
}

// FetchAll triggers the named collections concurrently (all of them when names
// is empty) and reports every collection that ended up Failed.
func (r *Registry) FetchAll(ctx context.Context, trigger Trigger, names ...string) error {
	if len(names) == 0 {
		names = r.Names()
	}

	for _, name := range names {
		if _, ok := r.syncs[name]; !ok {
			return fmt.Errorf("unknown collection %q", name)
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range names {
		s := r.syncs[name]
		g.Go(func() error {
			s.Fetch(ctx, trigger)
			if snap := s.Snapshot(); snap.State == Failed {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %s", name, snap.Error))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
