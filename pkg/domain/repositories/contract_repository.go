package repositories

import (
	"context"
	"time"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// ContractFilter narrows a contract listing. Zero values do not filter.
type ContractFilter struct {
	CorporationID int64
	Statuses      []entities.ContractStatus
	IssuerIDs     []entities.IdentityID
	IssuedAfter   time.Time
	IssuedBefore  time.Time
}

// Matches reports whether a contract passes the filter
func (f ContractFilter) Matches(c *entities.Contract) bool {
	if f.CorporationID != 0 && c.CorporationID != f.CorporationID {
		return false
	}
	if len(f.Statuses) > 0 && !c.HasStatus(f.Statuses) {
		return false
	}
	if len(f.IssuerIDs) > 0 {
		found := false
		for _, id := range f.IssuerIDs {
			if id == c.IssuerID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return c.IssuedWithin(f.IssuedAfter, f.IssuedBefore)
}

// ContractRepository provides read access to externally synced contracts
type ContractRepository interface {
	ListContracts(ctx context.Context, filter ContractFilter) ([]*entities.Contract, error)
	GetContract(ctx context.Context, id entities.ContractID) (*entities.Contract, error)
	LoadContracts(ctx context.Context, contracts []*entities.Contract) error
}
