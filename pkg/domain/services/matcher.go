package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// Inventory is a multiset of item quantities available in one contract or location
type Inventory map[entities.TypeID]entities.Quantity

// InventoryFromItems builds an inventory from contract lines. Excluded lines never count.
func InventoryFromItems(items []entities.ContractItem) Inventory {
	inv := make(Inventory, len(items))
	for _, it := range items {
		if !it.Included || it.Quantity <= 0 {
			continue
		}
		inv[it.TypeID] += it.Quantity
	}
	return inv
}

// Satisfies reports whether the inventory holds the hull and every requirement
func (inv Inventory) Satisfies(hull entities.TypeID, reqs map[entities.TypeID]entities.Quantity) bool {
	if inv[hull] < 1 {
		return false
	}
	for id, qty := range reqs {
		if inv[id] < qty {
			return false
		}
	}
	return true
}

type template struct {
	fitting *entities.Fitting
	reqs    map[entities.TypeID]entities.Quantity
	basis   decimal.Decimal
}

// Matcher classifies inventories against the fitting catalog.
// It holds precomputed requirement maps and performs no I/O.
type Matcher struct {
	ordered []*template
	byHull  map[entities.TypeID][]*template
	known   map[entities.FittingID]bool
}

// NewMatcher indexes fittings by hull in preference order: lowest basis, then
// name, then id. Fittings without a valuation sort as zero basis.
func NewMatcher(fittings []*entities.Fitting, valuations map[entities.FittingID]*Valuation) *Matcher {
	m := &Matcher{
		ordered: make([]*template, 0, len(fittings)),
		byHull:  make(map[entities.TypeID][]*template),
		known:   make(map[entities.FittingID]bool, len(fittings)),
	}

	for _, f := range fittings {
		t := &template{fitting: f, reqs: f.Requirements(), basis: decimal.Zero}
		if v, ok := valuations[f.ID]; ok {
			t.basis = v.Basis
		}
		m.ordered = append(m.ordered, t)
		m.known[f.ID] = true
	}

	sort.SliceStable(m.ordered, func(i, j int) bool {
		return m.ordered[i].before(m.ordered[j])
	})

	for _, t := range m.ordered {
		m.byHull[t.fitting.HullTypeID] = append(m.byHull[t.fitting.HullTypeID], t)
	}
	return m
}

// Known reports whether the fitting is part of the matcher's catalog
func (m *Matcher) Known(id entities.FittingID) bool {
	return m.known[id]
}

// Candidates returns every fitting the inventory satisfies, best first
func (m *Matcher) Candidates(inv Inventory) []entities.FittingID {
	var out []entities.FittingID
	for _, t := range m.ordered {
		if inv.Satisfies(t.fitting.HullTypeID, t.reqs) {
			out = append(out, t.fitting.ID)
		}
	}
	return out
}

// Match returns the preferred fitting for the inventory
func (m *Matcher) Match(inv Inventory) (entities.FittingID, bool) {
	var best *template
	for hull, qty := range inv {
		if qty < 1 {
			continue
		}
		for _, t := range m.byHull[hull] {
			if best != nil && !t.before(best) {
				// per-hull lists are sorted, nothing later can win
				break
			}
			if inv.Satisfies(hull, t.reqs) {
				best = t
				break
			}
		}
	}
	if best == nil {
		return 0, false
	}
	return best.fitting.ID, true
}

// MatchAll matches every contract. A forced override is used as-is and
// skips automatic matching. Unmatched contracts are absent from the result.
func (m *Matcher) MatchAll(
	contracts []*entities.Contract,
	overrides map[entities.ContractID]entities.FittingID,
) map[entities.ContractID]entities.FittingID {
	out := make(map[entities.ContractID]entities.FittingID, len(contracts))
	for _, c := range contracts {
		if forced, ok := overrides[c.ID]; ok {
			out[c.ID] = forced
			continue
		}
		if id, ok := m.Match(InventoryFromItems(c.Items)); ok {
			out[c.ID] = id
		}
	}
	return out
}

func (t *template) before(o *template) bool {
	if c := t.basis.Cmp(o.basis); c != 0 {
		return c < 0
	}
	if t.fitting.Name != o.fitting.Name {
		return t.fitting.Name < o.fitting.Name
	}
	return t.fitting.ID < o.fitting.ID
}
