package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestItemType_Validation(t *testing.T) {
	validType, err := NewItemType(587, "Rifter", dec("27289"), dec("2500"))
	if err != nil {
		t.Fatalf("Expected valid item type creation to succeed: %v", err)
	}
	if validType.ID != 587 {
		t.Errorf("Expected type id 587, got %d", validType.ID)
	}

	testCases := []struct {
		name        string
		id          TypeID
		typeName    string
		volume      *decimal.Decimal
		packaged    *decimal.Decimal
		expectError string
	}{
		{"zero id", 0, "Rifter", nil, nil, "type id must be positive, got 0"},
		{"empty name", 587, "", nil, nil, "type name cannot be empty"},
		{"negative volume", 587, "Rifter", dec("-1"), nil, "volume cannot be negative, got -1"},
		{"negative packaged volume", 587, "Rifter", nil, dec("-2.5"), "packaged volume cannot be negative, got -2.5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewItemType(tc.id, tc.typeName, tc.volume, tc.packaged)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestItemType_EffectiveVolume(t *testing.T) {
	tests := []struct {
		name      string
		itemType  *ItemType
		expected  string
		expectHas bool
	}{
		{"packaged preferred", &ItemType{ID: 1, Volume: dec("27289"), PackagedVolume: dec("2500")}, "2500", true},
		{"falls back to unpackaged", &ItemType{ID: 2, Volume: dec("5")}, "5", true},
		{"zero packaged still wins", &ItemType{ID: 3, Volume: dec("5"), PackagedVolume: dec("0")}, "0", true},
		{"unknown volume", &ItemType{ID: 4}, "0", false},
		{"nil type", nil, "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vol, ok := tt.itemType.EffectiveVolume()
			if ok != tt.expectHas {
				t.Errorf("Expected known=%t, got %t", tt.expectHas, ok)
			}
			if !vol.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("Expected volume %s, got %s", tt.expected, vol)
			}
		})
	}
}

func TestItemPrice_Unit(t *testing.T) {
	p := ItemPrice{TypeID: 34, Buy: decimal.NewFromInt(4), Sell: decimal.NewFromInt(5)}

	if !p.Unit(BasisSell).Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected sell price 5, got %s", p.Unit(BasisSell))
	}
	if !p.Unit(BasisBuy).Equal(decimal.NewFromInt(4)) {
		t.Errorf("Expected buy price 4, got %s", p.Unit(BasisBuy))
	}
	if ParsePriceBasis("bogus") != BasisSell {
		t.Errorf("Expected unknown basis to default to sell")
	}
}

func TestValuationConfig_Increment(t *testing.T) {
	cfg := DefaultValuationConfig()
	if !cfg.Increment().Equal(decimal.NewFromInt(250000)) {
		t.Errorf("Expected default increment 250000, got %s", cfg.Increment())
	}

	cfg.RoundingIncrement = 0
	if !cfg.Increment().Equal(decimal.NewFromInt(DefaultRoundingIncrement)) {
		t.Errorf("Expected zero increment to fall back to default, got %s", cfg.Increment())
	}

	cfg.RoundingIncrement = -5
	if !cfg.Increment().Equal(decimal.NewFromInt(DefaultRoundingIncrement)) {
		t.Errorf("Expected negative increment to fall back to default, got %s", cfg.Increment())
	}
	if err := cfg.Validate(); !IsValidation(err, CodeInvalidRoundingConfig) {
		t.Errorf("Expected rounding validation error, got %v", err)
	}
}
