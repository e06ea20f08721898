package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
)

// CatalogRepository provides in-memory item type, fitting and doctrine storage
type CatalogRepository struct {
	mu        sync.RWMutex
	types     map[entities.TypeID]*entities.ItemType
	fittings  map[entities.FittingID]*entities.Fitting
	doctrines map[entities.DoctrineID]*entities.Doctrine
}

// NewCatalogRepository creates a new in-memory catalog repository
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		types:     make(map[entities.TypeID]*entities.ItemType),
		fittings:  make(map[entities.FittingID]*entities.Fitting),
		doctrines: make(map[entities.DoctrineID]*entities.Doctrine),
	}
}

// Verify interface compliance
var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

func (r *CatalogRepository) LoadItemTypes(_ context.Context, types []*entities.ItemType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		cp := *t
		r.types[t.ID] = &cp
	}
	return nil
}

func (r *CatalogRepository) LoadFittings(_ context.Context, fittings []*entities.Fitting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range fittings {
		cp := *f
		cp.Components = append([]entities.Component(nil), f.Components...)
		r.fittings[f.ID] = &cp
	}
	return nil
}

func (r *CatalogRepository) LoadDoctrines(_ context.Context, doctrines []*entities.Doctrine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range doctrines {
		cp := *d
		cp.FittingIDs = append([]entities.FittingID(nil), d.FittingIDs...)
		r.doctrines[d.ID] = &cp
	}
	return nil
}

func (r *CatalogRepository) ListItemTypes(_ context.Context) ([]*entities.ItemType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.ItemType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CatalogRepository) GetItemType(_ context.Context, id entities.TypeID) (*entities.ItemType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	if !ok {
		return nil, entities.NewNotFoundError("item type", int64(id))
	}
	return t, nil
}

// ListFittings returns fittings ordered by name, then id
func (r *CatalogRepository) ListFittings(_ context.Context) ([]*entities.Fitting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.Fitting, 0, len(r.fittings))
	for _, f := range r.fittings {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *CatalogRepository) GetFitting(_ context.Context, id entities.FittingID) (*entities.Fitting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fittings[id]
	if !ok {
		return nil, entities.NewNotFoundError("fitting", int64(id))
	}
	return f, nil
}

func (r *CatalogRepository) ListDoctrines(_ context.Context) ([]*entities.Doctrine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.Doctrine, 0, len(r.doctrines))
	for _, d := range r.doctrines {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *CatalogRepository) GetDoctrine(_ context.Context, id entities.DoctrineID) (*entities.Doctrine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctrines[id]
	if !ok {
		return nil, entities.NewNotFoundError("doctrine", int64(id))
	}
	return d, nil
}
