package repositories

import (
	"context"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// SubsidyFilter narrows a subsidy listing. Zero values do not filter.
type SubsidyFilter struct {
	ContractIDs  []entities.ContractID
	ReviewStatus *entities.ReviewStatus
	Paid         *bool
}

// Matches reports whether a record passes the filter
func (f SubsidyFilter) Matches(r *entities.SubsidyRecord) bool {
	if f.ReviewStatus != nil && r.ReviewStatus != *f.ReviewStatus {
		return false
	}
	if f.Paid != nil && r.Paid != *f.Paid {
		return false
	}
	if len(f.ContractIDs) == 0 {
		return true
	}
	for _, id := range f.ContractIDs {
		if id == r.ContractID {
			return true
		}
	}
	return false
}

// SubsidyRepository stores one SubsidyRecord per contract
type SubsidyRepository interface {
	ListSubsidies(ctx context.Context, filter SubsidyFilter) ([]*entities.SubsidyRecord, error)

	// CreateMissing inserts pending records for contracts that have none.
	// Returns the number created.
	CreateMissing(ctx context.Context, ids []entities.ContractID) (int, error)

	// WithLock runs fn with exclusive access to the contract's record, creating a
	// pending record first if none exists. The record passed to fn is persisted
	// when fn returns nil. Contention yields entities.ErrConcurrencyConflict.
	WithLock(ctx context.Context, id entities.ContractID, fn func(rec *entities.SubsidyRecord) error) error

	// MarkExempt sets exempt on records that are not yet exempt. Returns the
	// ids it changed.
	MarkExempt(ctx context.Context, ids []entities.ContractID) ([]entities.ContractID, error)
}
