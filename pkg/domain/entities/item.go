package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TypeID identifies an item type in the external universe catalog
type TypeID int64

// Quantity represents an integer quantity of discrete items
type Quantity int64

// PriceBasis selects which side of the market prices are read from
type PriceBasis string

const (
	BasisSell PriceBasis = "sell"
	BasisBuy  PriceBasis = "buy"
)

// ParsePriceBasis normalizes a basis string, defaulting to sell
func ParsePriceBasis(s string) PriceBasis {
	if PriceBasis(s) == BasisBuy {
		return BasisBuy
	}
	return BasisSell
}

// ItemType represents an immutable item type with its volumes
type ItemType struct {
	ID             TypeID
	Name           string
	Volume         *decimal.Decimal
	PackagedVolume *decimal.Decimal
}

// NewItemType creates a validated ItemType
func NewItemType(id TypeID, name string, volume, packagedVolume *decimal.Decimal) (*ItemType, error) {
	if id <= 0 {
		return nil, fmt.Errorf("type id must be positive, got %d", id)
	}
	if name == "" {
		return nil, fmt.Errorf("type name cannot be empty")
	}
	if volume != nil && volume.IsNegative() {
		return nil, fmt.Errorf("volume cannot be negative, got %s", volume)
	}
	if packagedVolume != nil && packagedVolume.IsNegative() {
		return nil, fmt.Errorf("packaged volume cannot be negative, got %s", packagedVolume)
	}

	return &ItemType{
		ID:             id,
		Name:           name,
		Volume:         volume,
		PackagedVolume: packagedVolume,
	}, nil
}

// EffectiveVolume prefers the packaged volume and falls back to the unpackaged one.
// The second return is false when neither is known.
func (t *ItemType) EffectiveVolume() (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	if t.PackagedVolume != nil {
		return *t.PackagedVolume, true
	}
	if t.Volume != nil {
		return *t.Volume, true
	}
	return decimal.Zero, false
}

// ItemPrice is the locally cached market snapshot for an item type
type ItemPrice struct {
	TypeID    TypeID
	Buy       decimal.Decimal
	Sell      decimal.Decimal
	UpdatedAt time.Time
}

// Unit returns the unit price for the given basis
func (p ItemPrice) Unit(basis PriceBasis) decimal.Decimal {
	if basis == BasisBuy {
		return p.Buy
	}
	return p.Sell
}

// Quote is a price returned by the external price feed
type Quote struct {
	Buy  decimal.Decimal
	Sell decimal.Decimal
}
