package repositories

import (
	"context"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// PriceRepository provides access to the locally cached price snapshot
type PriceRepository interface {
	ListPrices(ctx context.Context) ([]*entities.ItemPrice, error)

	// EnsurePrices creates zero price rows for ids that have none.
	// Existing rows are left untouched. Returns the number created.
	EnsurePrices(ctx context.Context, ids []entities.TypeID) (int, error)

	// UpdatePrices overwrites buy/sell for the given rows. Returns the number updated.
	UpdatePrices(ctx context.Context, prices []*entities.ItemPrice) (int, error)
}
