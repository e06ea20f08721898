package repositories

import (
	"context"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// PriceFeed returns market quotes for item types. Absent entries mean zero price.
type PriceFeed interface {
	GetPrices(ctx context.Context, ids []entities.TypeID) (map[entities.TypeID]entities.Quote, error)
}

// IdentityResolver maps submitting identities to their display ("main") identity
type IdentityResolver interface {
	DisplayIdentity(ctx context.Context, sub entities.IdentityID) (entities.IdentityID, bool, error)
	SubIdentities(ctx context.Context, display entities.IdentityID) ([]entities.IdentityID, error)
	DisplayName(ctx context.Context, id entities.IdentityID) (string, bool, error)
}
