package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// Valuation is the computed market value of one fitting
type Valuation struct {
	FittingID entities.FittingID

	// ItemsRaw is the unrounded component subtotal
	ItemsRaw   decimal.Decimal
	ItemsBasis decimal.Decimal
	HullBasis  decimal.Decimal
	// Basis is ItemsBasis + HullBasis, each rounded up on its own
	Basis         decimal.Decimal
	Volume        decimal.Decimal
	Subsidy       decimal.Decimal
	PurchasePrice decimal.Decimal

	MissingPrices  []entities.TypeID
	MissingVolumes []entities.TypeID
}

// Complete reports whether every price and volume was known
func (v *Valuation) Complete() bool {
	return len(v.MissingPrices) == 0 && len(v.MissingVolumes) == 0
}

// CeilToIncrement rounds x up to the next multiple of inc.
// A non-positive inc is replaced with the default increment.
func CeilToIncrement(x, inc decimal.Decimal) decimal.Decimal {
	if !inc.IsPositive() {
		inc = decimal.NewFromInt(entities.DefaultRoundingIncrement)
	}
	q, r := x.QuoRem(inc, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q.Mul(inc)
}

// Valuator values fittings against one consistent config and price snapshot
type Valuator struct {
	config entities.ValuationConfig
	types  map[entities.TypeID]*entities.ItemType
	prices map[entities.TypeID]entities.ItemPrice
}

// NewValuator creates a valuator. The inputs are read once and not retained.
func NewValuator(
	config entities.ValuationConfig,
	types []*entities.ItemType,
	prices []*entities.ItemPrice,
) *Valuator {
	v := &Valuator{
		config: config,
		types:  make(map[entities.TypeID]*entities.ItemType, len(types)),
		prices: make(map[entities.TypeID]entities.ItemPrice, len(prices)),
	}
	for _, t := range types {
		v.types[t.ID] = t
	}
	for _, p := range prices {
		v.prices[p.TypeID] = *p
	}
	return v
}

// Config returns the configuration snapshot the valuator was built with
func (v *Valuator) Config() entities.ValuationConfig {
	return v.config
}

func (v *Valuator) unitPrice(id entities.TypeID) (decimal.Decimal, bool) {
	p, ok := v.prices[id]
	if !ok {
		return decimal.Zero, false
	}
	return p.Unit(v.config.PriceBasis), true
}

func (v *Valuator) unitVolume(id entities.TypeID) (decimal.Decimal, bool) {
	return v.types[id].EffectiveVolume()
}

// Value computes basis, freight volume and suggested subsidy for a fitting.
// Missing prices and volumes count as zero and are listed on the result.
func (v *Valuator) Value(fit *entities.Fitting) *Valuation {
	inc := v.config.Increment()
	missingPrice := make(map[entities.TypeID]bool)
	missingVolume := make(map[entities.TypeID]bool)

	itemsRaw := decimal.Zero
	volume := decimal.Zero
	for _, c := range fit.Components {
		qty := decimal.NewFromInt(int64(c.Quantity))

		price, ok := v.unitPrice(c.TypeID)
		if !ok {
			missingPrice[c.TypeID] = true
		}
		itemsRaw = itemsRaw.Add(qty.Mul(price))

		vol, ok := v.unitVolume(c.TypeID)
		if !ok {
			missingVolume[c.TypeID] = true
		}
		volume = volume.Add(qty.Mul(vol))
	}

	hullPrice, ok := v.unitPrice(fit.HullTypeID)
	if !ok {
		missingPrice[fit.HullTypeID] = true
	}
	hullVolume, ok := v.unitVolume(fit.HullTypeID)
	if !ok {
		missingVolume[fit.HullTypeID] = true
	}
	volume = volume.Add(hullVolume)

	itemsBasis := CeilToIncrement(itemsRaw, inc)
	hullBasis := CeilToIncrement(hullPrice, inc)
	basis := itemsBasis.Add(hullBasis)

	// two-stage: cents first, then the increment
	base := basis.Mul(v.config.MarkupPct).Add(volume.Mul(v.config.CostPerM3)).Round(2)

	return &Valuation{
		FittingID:      fit.ID,
		ItemsRaw:       itemsRaw,
		ItemsBasis:     itemsBasis,
		HullBasis:      hullBasis,
		Basis:          basis,
		Volume:         volume,
		Subsidy:        CeilToIncrement(base, inc),
		PurchasePrice:  CeilToIncrement(basis.Add(base), inc),
		MissingPrices:  sortedIDs(missingPrice),
		MissingVolumes: sortedIDs(missingVolume),
	}
}

// ValueAll values every fitting, keyed by fitting id
func (v *Valuator) ValueAll(fittings []*entities.Fitting) map[entities.FittingID]*Valuation {
	out := make(map[entities.FittingID]*Valuation, len(fittings))
	for _, f := range fittings {
		out[f.ID] = v.Value(f)
	}
	return out
}

func sortedIDs(set map[entities.TypeID]bool) []entities.TypeID {
	if len(set) == 0 {
		return nil
	}
	ids := make([]entities.TypeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
