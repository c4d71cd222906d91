package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openpublish/sitetree/pkg/sitetree"
)

// Repository implements sitetree.Repository using in-memory storage
type Repository struct {
	mu        sync.RWMutex
	sites     map[uuid.UUID]*sitetree.Site
	snapshots map[uuid.UUID][]sitetree.NodeRecord
}

// New creates a new in-memory repository
func New() sitetree.Repository {
	return &Repository{
		sites:     make(map[uuid.UUID]*sitetree.Site),
		snapshots: make(map[uuid.UUID][]sitetree.NodeRecord),
	}
}

func (r *Repository) CreateSite(ctx context.Context, site *sitetree.Site, records []sitetree.NodeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store copies to avoid external modifications
	siteCopy := *site
	r.sites[site.ID] = &siteCopy
	r.snapshots[site.ID] = copyRecords(records)

	return nil
}

func (r *Repository) GetSite(ctx context.Context, id uuid.UUID) (*sitetree.Site, []sitetree.NodeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	site, exists := r.sites[id]
	if !exists {
		return nil, nil, sitetree.ErrSiteNotFound
	}

	siteCopy := *site
	return &siteCopy, copyRecords(r.snapshots[id]), nil
}

func (r *Repository) SaveSite(ctx context.Context, site *sitetree.Site, records []sitetree.NodeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sites[site.ID]; !exists {
		return sitetree.ErrSiteNotFound
	}

	siteCopy := *site
	siteCopy.UpdatedAt = time.Now().UTC()
	r.sites[site.ID] = &siteCopy
	r.snapshots[site.ID] = copyRecords(records)

	return nil
}

func (r *Repository) DeleteSite(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sites[id]; !exists {
		return sitetree.ErrSiteNotFound
	}

	delete(r.sites, id)
	delete(r.snapshots, id)
	return nil
}

func (r *Repository) ListSites(ctx context.Context) ([]*sitetree.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*sitetree.Site, 0, len(r.sites))
	for _, site := range r.sites {
		siteCopy := *site
		result = append(result, &siteCopy)
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func copyRecords(records []sitetree.NodeRecord) []sitetree.NodeRecord {
	out := make([]sitetree.NodeRecord, len(records))
	copy(out, records)
	return out
}
