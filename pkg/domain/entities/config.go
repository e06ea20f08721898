package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRoundingIncrement is substituted whenever the configured increment is not positive
const DefaultRoundingIncrement int64 = 250_000

// ValuationConfig holds the pricing rules for subsidy valuation
type ValuationConfig struct {
	PriceBasis        PriceBasis
	MarkupPct         decimal.Decimal
	CostPerM3         decimal.Decimal
	RoundingIncrement int64
	CorporationID     int64
	DefaultSystemID   SystemID
	DeletedCheck      bool
}

// DefaultValuationConfig returns the configuration created when none exists
func DefaultValuationConfig() ValuationConfig {
	return ValuationConfig{
		PriceBasis:        BasisSell,
		MarkupPct:         decimal.RequireFromString("0.10"),
		CostPerM3:         decimal.NewFromInt(250),
		RoundingIncrement: DefaultRoundingIncrement,
		CorporationID:     1,
		DeletedCheck:      true,
	}
}

// Increment returns the effective rounding increment
func (c ValuationConfig) Increment() decimal.Decimal {
	if c.RoundingIncrement <= 0 {
		return decimal.NewFromInt(DefaultRoundingIncrement)
	}
	return decimal.NewFromInt(c.RoundingIncrement)
}

// Validate checks an admin-supplied configuration before it is stored
func (c ValuationConfig) Validate() error {
	if c.PriceBasis != BasisSell && c.PriceBasis != BasisBuy {
		return fmt.Errorf("price basis must be sell or buy, got %q", c.PriceBasis)
	}
	if c.MarkupPct.IsNegative() {
		return fmt.Errorf("markup cannot be negative, got %s", c.MarkupPct)
	}
	if c.CostPerM3.IsNegative() {
		return fmt.Errorf("cost per m3 cannot be negative, got %s", c.CostPerM3)
	}
	if c.RoundingIncrement <= 0 {
		return NewValidationError(CodeInvalidRoundingConfig, fmt.Sprintf("rounding increment must be positive, got %d", c.RoundingIncrement))
	}
	return nil
}
