package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ContractID identifies an in-game contract
type ContractID int64

// IdentityID identifies a character or account, either a submitting
// sub-identity or a display ("main") identity
type IdentityID int64

// Identity is a known character. A zero DisplayID means the character has
// no main and stands for itself.
type Identity struct {
	ID        IdentityID
	Name      string
	DisplayID IdentityID
}

// LocationID identifies a physical station or structure
type LocationID int64

// ContractStatus represents the external lifecycle status of a contract
type ContractStatus string

const (
	StatusOutstanding ContractStatus = "outstanding"
	StatusInProgress  ContractStatus = "in_progress"
	StatusCompleted   ContractStatus = "completed"
	StatusFinished    ContractStatus = "finished"
	StatusCancelled   ContractStatus = "cancelled"
	StatusRejected    ContractStatus = "rejected"
	StatusFailed      ContractStatus = "failed"
	StatusDeleted     ContractStatus = "deleted"
	StatusExpired     ContractStatus = "expired"
)

// DefaultOpenStatuses are the statuses that count toward available stock
var DefaultOpenStatuses = []ContractStatus{StatusOutstanding}

// ContractItem is a line item of a contract
type ContractItem struct {
	TypeID   TypeID
	Quantity Quantity
	Included bool
}

// Contract represents an item exchange listing issued by a character
type Contract struct {
	ID                ContractID
	IssuerID          IdentityID
	IssuerName        string
	CorporationID     int64
	StartLocationID   LocationID
	StartLocationName string
	Price             decimal.Decimal
	Status            ContractStatus
	Title             string
	DateIssued        time.Time
	DateExpired       *time.Time
	Items             []ContractItem
}

// NewContract creates a validated Contract
func NewContract(
	id ContractID,
	issuerID IdentityID,
	issuerName string,
	corporationID int64,
	startLocationID LocationID,
	price decimal.Decimal,
	status ContractStatus,
	dateIssued time.Time,
	dateExpired *time.Time,
	items []ContractItem,
) (*Contract, error) {
	if id <= 0 {
		return nil, fmt.Errorf("contract id must be positive, got %d", id)
	}
	if issuerID <= 0 {
		return nil, fmt.Errorf("issuer id must be positive, got %d", issuerID)
	}
	if status == "" {
		return nil, fmt.Errorf("contract status cannot be empty")
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("price cannot be negative, got %s", price)
	}
	if dateIssued.IsZero() {
		return nil, fmt.Errorf("issue date cannot be empty")
	}
	if dateExpired != nil && dateExpired.Before(dateIssued) {
		return nil, fmt.Errorf("expiry %v cannot be before issue date %v", *dateExpired, dateIssued)
	}
	for i, it := range items {
		if it.Quantity < 0 {
			return nil, fmt.Errorf("item %d: quantity cannot be negative, got %d", i, it.Quantity)
		}
	}

	return &Contract{
		ID:              id,
		IssuerID:        issuerID,
		IssuerName:      issuerName,
		CorporationID:   corporationID,
		StartLocationID: startLocationID,
		Price:           price,
		Status:          status,
		DateIssued:      dateIssued,
		DateExpired:     dateExpired,
		Items:           items,
	}, nil
}

// HasStatus reports whether the contract status is one of the given statuses
func (c *Contract) HasStatus(statuses []ContractStatus) bool {
	for _, s := range statuses {
		if c.Status == s {
			return true
		}
	}
	return false
}

// ExpiresAfter reports whether the contract has an expiry strictly after t
func (c *Contract) ExpiresAfter(t time.Time) bool {
	return c.DateExpired != nil && c.DateExpired.After(t)
}

// IssuedWithin reports whether the issue date falls in [start, end]
func (c *Contract) IssuedWithin(start, end time.Time) bool {
	if !start.IsZero() && c.DateIssued.Before(start) {
		return false
	}
	if !end.IsZero() && c.DateIssued.After(end) {
		return false
	}
	return true
}

// WithdrawnBeforeExpiry reports whether the contract was deleted while it
// could still have been accepted
func (c *Contract) WithdrawnBeforeExpiry(now time.Time) bool {
	return c.Status == StatusDeleted && c.ExpiresAfter(now)
}
