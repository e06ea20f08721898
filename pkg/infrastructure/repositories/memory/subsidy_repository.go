package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
)

// SubsidyRepository provides in-memory subsidy record storage with
// per-contract exclusive locks
type SubsidyRepository struct {
	mu      sync.RWMutex
	records map[entities.ContractID]*entities.SubsidyRecord
	locks   map[entities.ContractID]chan struct{}
}

// NewSubsidyRepository creates a new in-memory subsidy repository
func NewSubsidyRepository() *SubsidyRepository {
	return &SubsidyRepository{
		records: make(map[entities.ContractID]*entities.SubsidyRecord),
		locks:   make(map[entities.ContractID]chan struct{}),
	}
}

var _ repositories.SubsidyRepository = (*SubsidyRepository)(nil)

// LoadSubsidies stores copies of the given records
func (r *SubsidyRepository) LoadSubsidies(_ context.Context, records []*entities.SubsidyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.records[rec.ContractID] = rec.Clone()
	}
	return nil
}

func (r *SubsidyRepository) ListSubsidies(_ context.Context, filter repositories.SubsidyFilter) ([]*entities.SubsidyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.SubsidyRecord, 0)
	for _, rec := range r.records {
		if filter.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractID < out[j].ContractID })
	return out, nil
}

func (r *SubsidyRepository) CreateMissing(_ context.Context, ids []entities.ContractID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created := 0
	for _, id := range ids {
		if _, ok := r.records[id]; ok {
			continue
		}
		r.records[id] = entities.NewSubsidyRecord(id)
		created++
	}
	return created, nil
}

// MarkExempt flags existing records exempt, taking each contract's lock in turn
func (r *SubsidyRepository) MarkExempt(ctx context.Context, ids []entities.ContractID) ([]entities.ContractID, error) {
	var changed []entities.ContractID
	for _, id := range ids {
		r.mu.RLock()
		_, ok := r.records[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		flipped := false
		err := r.WithLock(ctx, id, func(rec *entities.SubsidyRecord) error {
			flipped = rec.MarkExempt()
			return nil
		})
		if err != nil {
			return changed, err
		}
		if flipped {
			changed = append(changed, id)
		}
	}
	return changed, nil
}

// WithLock serializes writers per contract. A waiter whose context ends
// before the lock frees gets ErrConcurrencyConflict.
func (r *SubsidyRepository) WithLock(
	ctx context.Context,
	id entities.ContractID,
	fn func(rec *entities.SubsidyRecord) error,
) error {
	lock := r.lockFor(id)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("lock contract %d: %w", id, entities.ErrConcurrencyConflict)
	}
	defer func() { <-lock }()

	r.mu.RLock()
	current, ok := r.records[id]
	r.mu.RUnlock()

	var working *entities.SubsidyRecord
	if ok {
		working = current.Clone()
	} else {
		working = entities.NewSubsidyRecord(id)
	}

	if err := fn(working); err != nil {
		return err
	}

	r.mu.Lock()
	r.records[id] = working
	r.mu.Unlock()
	return nil
}

func (r *SubsidyRepository) lockFor(id entities.ContractID) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[id]
	if !ok {
		lock = make(chan struct{}, 1)
		r.locks[id] = lock
	}
	return lock
}
