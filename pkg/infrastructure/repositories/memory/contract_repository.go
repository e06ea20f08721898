package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
)

// ContractRepository provides in-memory contract storage
type ContractRepository struct {
	mu        sync.RWMutex
	contracts map[entities.ContractID]*entities.Contract
}

// NewContractRepository creates a new in-memory contract repository
func NewContractRepository() *ContractRepository {
	return &ContractRepository{contracts: make(map[entities.ContractID]*entities.Contract)}
}

var _ repositories.ContractRepository = (*ContractRepository)(nil)

func (r *ContractRepository) LoadContracts(_ context.Context, contracts []*entities.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range contracts {
		cp := *c
		cp.Items = append([]entities.ContractItem(nil), c.Items...)
		r.contracts[c.ID] = &cp
	}
	return nil
}

// ListContracts returns matching contracts ordered by issue date, then id
func (r *ContractRepository) ListContracts(_ context.Context, filter repositories.ContractFilter) ([]*entities.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.Contract, 0)
	for _, c := range r.contracts {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateIssued.Equal(out[j].DateIssued) {
			return out[i].DateIssued.Before(out[j].DateIssued)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ContractRepository) GetContract(_ context.Context, id entities.ContractID) (*entities.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, entities.NewNotFoundError("contract", int64(id))
	}
	return c, nil
}
