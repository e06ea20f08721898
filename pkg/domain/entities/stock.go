package entities

import (
	"fmt"
	"time"
)

// SystemID identifies a deployment location (solar system)
type SystemID int64

// DeploymentLocation is a staging system and the stations whose contracts count toward its stock
type DeploymentLocation struct {
	ID          SystemID
	Name        string
	Active      bool
	LocationIDs []LocationID
}

// NewDeploymentLocation creates a validated DeploymentLocation
func NewDeploymentLocation(id SystemID, name string, active bool, locationIDs []LocationID) (*DeploymentLocation, error) {
	if id <= 0 {
		return nil, fmt.Errorf("system id must be positive, got %d", id)
	}
	if name == "" {
		return nil, fmt.Errorf("system name cannot be empty")
	}

	return &DeploymentLocation{
		ID:          id,
		Name:        name,
		Active:      active,
		LocationIDs: locationIDs,
	}, nil
}

// Covers reports whether a physical location belongs to this system.
// An empty location set covers nothing.
func (d *DeploymentLocation) Covers(loc LocationID) bool {
	for _, id := range d.LocationIDs {
		if id == loc {
			return true
		}
	}
	return false
}

// StockRequest is the target number of a fitting to keep on contract in a system
type StockRequest struct {
	FittingID FittingID
	SystemID  SystemID
	Requested int64
}

// NewStockRequest creates a validated StockRequest
func NewStockRequest(fittingID FittingID, systemID SystemID, requested int64) (*StockRequest, error) {
	if fittingID <= 0 {
		return nil, fmt.Errorf("fitting id must be positive, got %d", fittingID)
	}
	if systemID <= 0 {
		return nil, fmt.Errorf("system id must be positive, got %d", systemID)
	}
	if requested < 0 {
		return nil, fmt.Errorf("requested cannot be negative, got %d", requested)
	}

	return &StockRequest{
		FittingID: fittingID,
		SystemID:  systemID,
		Requested: requested,
	}, nil
}

// Claim is a pilot's promise to seed some of a fitting's shortfall
type Claim struct {
	FittingID  FittingID
	IdentityID IdentityID
	Quantity   int64
	CreatedAt  time.Time
}

// NewClaim creates a validated Claim
func NewClaim(fittingID FittingID, identityID IdentityID, quantity int64) (*Claim, error) {
	if fittingID <= 0 {
		return nil, NewValidationError(CodeInvalidQuantity, fmt.Sprintf("fitting id must be positive, got %d", fittingID))
	}
	if identityID <= 0 {
		return nil, NewValidationError(CodeInvalidIdentity, fmt.Sprintf("identity id must be positive, got %d", identityID))
	}
	if quantity <= 0 {
		return nil, NewValidationError(CodeInvalidQuantity, fmt.Sprintf("claim quantity must be positive, got %d", quantity))
	}

	return &Claim{
		FittingID:  fittingID,
		IdentityID: identityID,
		Quantity:   quantity,
	}, nil
}
