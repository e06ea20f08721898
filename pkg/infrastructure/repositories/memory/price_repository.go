package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
)

// PriceRepository provides in-memory price snapshot storage
type PriceRepository struct {
	mu     sync.RWMutex
	prices map[entities.TypeID]entities.ItemPrice
	now    func() time.Time
}

// NewPriceRepository creates a new in-memory price repository
func NewPriceRepository() *PriceRepository {
	return &PriceRepository{
		prices: make(map[entities.TypeID]entities.ItemPrice),
		now:    time.Now,
	}
}

var _ repositories.PriceRepository = (*PriceRepository)(nil)

// LoadPrices replaces rows for the given types
func (r *PriceRepository) LoadPrices(_ context.Context, prices []*entities.ItemPrice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range prices {
		r.prices[p.TypeID] = *p
	}
	return nil
}

func (r *PriceRepository) ListPrices(_ context.Context) ([]*entities.ItemPrice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.ItemPrice, 0, len(r.prices))
	for _, p := range r.prices {
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeID < out[j].TypeID })
	return out, nil
}

func (r *PriceRepository) EnsurePrices(_ context.Context, ids []entities.TypeID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created := 0
	for _, id := range ids {
		if _, ok := r.prices[id]; ok {
			continue
		}
		r.prices[id] = entities.ItemPrice{TypeID: id, Buy: decimal.Zero, Sell: decimal.Zero, UpdatedAt: r.now()}
		created++
	}
	return created, nil
}

func (r *PriceRepository) UpdatePrices(_ context.Context, prices []*entities.ItemPrice) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for _, p := range prices {
		row := *p
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = r.now()
		}
		r.prices[p.TypeID] = row
		updated++
	}
	return updated, nil
}
