package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
)

// IdentityResolver maps sub-identities to display identities from a static table
type IdentityResolver struct {
	mu        sync.RWMutex
	names     map[entities.IdentityID]string
	displayOf map[entities.IdentityID]entities.IdentityID
	subsOf    map[entities.IdentityID][]entities.IdentityID
}

// NewIdentityResolver creates an empty resolver
func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{
		names:     make(map[entities.IdentityID]string),
		displayOf: make(map[entities.IdentityID]entities.IdentityID),
		subsOf:    make(map[entities.IdentityID][]entities.IdentityID),
	}
}

var _ repositories.IdentityResolver = (*IdentityResolver)(nil)

// LoadIdentities registers identities. A zero DisplayID leaves the identity unmapped.
func (r *IdentityResolver) LoadIdentities(_ context.Context, identities []entities.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range identities {
		r.names[id.ID] = id.Name
		if id.DisplayID == 0 {
			continue
		}
		r.displayOf[id.ID] = id.DisplayID
		r.subsOf[id.DisplayID] = append(r.subsOf[id.DisplayID], id.ID)
		sort.Slice(r.subsOf[id.DisplayID], func(i, j int) bool {
			return r.subsOf[id.DisplayID][i] < r.subsOf[id.DisplayID][j]
		})
	}
	return nil
}

func (r *IdentityResolver) DisplayIdentity(_ context.Context, sub entities.IdentityID) (entities.IdentityID, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	display, ok := r.displayOf[sub]
	return display, ok, nil
}

func (r *IdentityResolver) SubIdentities(_ context.Context, display entities.IdentityID) ([]entities.IdentityID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.IdentityID(nil), r.subsOf[display]...), nil
}

func (r *IdentityResolver) DisplayName(_ context.Context, id entities.IdentityID) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok, nil
}

// StaticPriceFeed serves quotes from a fixed table
type StaticPriceFeed struct {
	mu     sync.RWMutex
	quotes map[entities.TypeID]entities.Quote
	calls  int
}

// NewStaticPriceFeed creates a feed that answers from the given quotes
func NewStaticPriceFeed(quotes map[entities.TypeID]entities.Quote) *StaticPriceFeed {
	cp := make(map[entities.TypeID]entities.Quote, len(quotes))
	for k, v := range quotes {
		cp[k] = v
	}
	return &StaticPriceFeed{quotes: cp}
}

var _ repositories.PriceFeed = (*StaticPriceFeed)(nil)

func (f *StaticPriceFeed) GetPrices(_ context.Context, ids []entities.TypeID) (map[entities.TypeID]entities.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make(map[entities.TypeID]entities.Quote, len(ids))
	for _, id := range ids {
		if q, ok := f.quotes[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

// Calls returns how many GetPrices calls were served
func (f *StaticPriceFeed) Calls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls
}
