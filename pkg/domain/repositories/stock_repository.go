package repositories

import (
	"context"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// StockRepository provides access to deployment systems, stock targets and claims
type StockRepository interface {
	ListLocations(ctx context.Context) ([]*entities.DeploymentLocation, error)
	GetLocation(ctx context.Context, id entities.SystemID) (*entities.DeploymentLocation, error)
	LoadLocations(ctx context.Context, locations []*entities.DeploymentLocation) error

	ListRequests(ctx context.Context) ([]*entities.StockRequest, error)
	// EnsureRequests creates the given rows where no (fitting, system) row exists yet
	EnsureRequests(ctx context.Context, requests []*entities.StockRequest) (int, error)
	// SetRequested upserts the requested quantity. Returns false when the stored value already matched.
	SetRequested(ctx context.Context, fittingID entities.FittingID, systemID entities.SystemID, requested int64) (bool, error)

	ListClaims(ctx context.Context) ([]*entities.Claim, error)
	SaveClaim(ctx context.Context, claim *entities.Claim) error
	// DeleteClaim removes a claim and reports whether one existed
	DeleteClaim(ctx context.Context, fittingID entities.FittingID, identityID entities.IdentityID) (bool, error)
}
