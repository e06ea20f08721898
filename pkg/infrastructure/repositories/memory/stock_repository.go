package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
)

type requestKey struct {
	fitting entities.FittingID
	system  entities.SystemID
}

type claimKey struct {
	fitting  entities.FittingID
	identity entities.IdentityID
}

// StockRepository provides in-memory storage for deployment systems,
// stock requests and claims
type StockRepository struct {
	mu        sync.RWMutex
	locations map[entities.SystemID]*entities.DeploymentLocation
	requests  map[requestKey]*entities.StockRequest
	claims    map[claimKey]*entities.Claim
	now       func() time.Time
}

// NewStockRepository creates a new in-memory stock repository
func NewStockRepository() *StockRepository {
	return &StockRepository{
		locations: make(map[entities.SystemID]*entities.DeploymentLocation),
		requests:  make(map[requestKey]*entities.StockRequest),
		claims:    make(map[claimKey]*entities.Claim),
		now:       time.Now,
	}
}

var _ repositories.StockRepository = (*StockRepository)(nil)

func (r *StockRepository) LoadLocations(_ context.Context, locations []*entities.DeploymentLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range locations {
		cp := *l
		cp.LocationIDs = append([]entities.LocationID(nil), l.LocationIDs...)
		r.locations[l.ID] = &cp
	}
	return nil
}

// ListLocations returns systems ordered by name
func (r *StockRepository) ListLocations(_ context.Context) ([]*entities.DeploymentLocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.DeploymentLocation, 0, len(r.locations))
	for _, l := range r.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *StockRepository) GetLocation(_ context.Context, id entities.SystemID) (*entities.DeploymentLocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locations[id]
	if !ok {
		return nil, entities.NewNotFoundError("system", int64(id))
	}
	return l, nil
}

func (r *StockRepository) ListRequests(_ context.Context) ([]*entities.StockRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.StockRequest, 0, len(r.requests))
	for _, req := range r.requests {
		cp := *req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SystemID != out[j].SystemID {
			return out[i].SystemID < out[j].SystemID
		}
		return out[i].FittingID < out[j].FittingID
	})
	return out, nil
}

func (r *StockRepository) EnsureRequests(_ context.Context, requests []*entities.StockRequest) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created := 0
	for _, req := range requests {
		key := requestKey{req.FittingID, req.SystemID}
		if _, ok := r.requests[key]; ok {
			continue
		}
		cp := *req
		r.requests[key] = &cp
		created++
	}
	return created, nil
}

func (r *StockRepository) SetRequested(
	_ context.Context,
	fittingID entities.FittingID,
	systemID entities.SystemID,
	requested int64,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := requestKey{fittingID, systemID}
	if existing, ok := r.requests[key]; ok {
		if existing.Requested == requested {
			return false, nil
		}
		existing.Requested = requested
		return true, nil
	}
	r.requests[key] = &entities.StockRequest{FittingID: fittingID, SystemID: systemID, Requested: requested}
	return true, nil
}

func (r *StockRepository) ListClaims(_ context.Context) ([]*entities.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.Claim, 0, len(r.claims))
	for _, c := range r.claims {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FittingID != out[j].FittingID {
			return out[i].FittingID < out[j].FittingID
		}
		return out[i].IdentityID < out[j].IdentityID
	})
	return out, nil
}

// SaveClaim upserts the claim for its (fitting, identity) pair
func (r *StockRepository) SaveClaim(_ context.Context, claim *entities.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *claim
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.now()
	}
	r.claims[claimKey{claim.FittingID, claim.IdentityID}] = &cp
	return nil
}

func (r *StockRepository) DeleteClaim(_ context.Context, fittingID entities.FittingID, identityID entities.IdentityID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := claimKey{fittingID, identityID}
	if _, ok := r.claims[key]; !ok {
		return false, nil
	}
	delete(r.claims, key)
	return true, nil
}
