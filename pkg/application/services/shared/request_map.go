package shared

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// RequestMap holds requested stock by fitting and system
type RequestMap map[string]int64

// NewRequestMap creates an empty request map
func NewRequestMap() RequestMap {
	return make(RequestMap)
}

// NewRequestMapFromRequests builds a request map from stored rows
func NewRequestMapFromRequests(requests []*entities.StockRequest) RequestMap {
	rm := make(RequestMap, len(requests))
	for _, r := range requests {
		rm.Set(r.FittingID, r.SystemID, r.Requested)
	}
	return rm
}

// Get returns the requested quantity, zero when no row exists
func (rm RequestMap) Get(fittingID entities.FittingID, systemID entities.SystemID) int64 {
	return rm[rm.makeKey(fittingID, systemID)]
}

// Set stores the requested quantity for a fitting and system
func (rm RequestMap) Set(fittingID entities.FittingID, systemID entities.SystemID, requested int64) {
	rm[rm.makeKey(fittingID, systemID)] = requested
}

// Has checks whether a row exists for a fitting and system
func (rm RequestMap) Has(fittingID entities.FittingID, systemID entities.SystemID) bool {
	_, exists := rm[rm.makeKey(fittingID, systemID)]
	return exists
}

// Size returns the number of rows stored
func (rm RequestMap) Size() int {
	return len(rm)
}

// Missing returns the (fitting, system) pairs that have no row yet
func (rm RequestMap) Missing(fittings []*entities.Fitting, systems []*entities.DeploymentLocation) []*entities.StockRequest {
	var out []*entities.StockRequest
	for _, sys := range systems {
		for _, f := range fittings {
			if !rm.Has(f.ID, sys.ID) {
				out = append(out, &entities.StockRequest{FittingID: f.ID, SystemID: sys.ID})
			}
		}
	}
	return out
}

// TotalFor returns the summed requested quantity of the given fittings in a system
func (rm RequestMap) TotalFor(ids []entities.FittingID, systemID entities.SystemID) int64 {
	var total int64
	for _, id := range ids {
		total += rm.Get(id, systemID)
	}
	return total
}

// MaxFor returns the largest requested quantity among the given fittings in a system
func (rm RequestMap) MaxFor(ids []entities.FittingID, systemID entities.SystemID) int64 {
	var max int64
	for _, id := range ids {
		if v := rm.Get(id, systemID); v > max {
			max = v
		}
	}
	return max
}

// makeKey creates a consistent key for fitting and system
func (rm RequestMap) makeKey(fittingID entities.FittingID, systemID entities.SystemID) string {
	return fmt.Sprintf("%d|%d", fittingID, systemID)
}

// parseKey extracts fitting and system from a key
func (rm RequestMap) parseKey(key string) (entities.FittingID, entities.SystemID, bool) {
	fit, sys, found := strings.Cut(key, "|")
	if !found {
		return 0, 0, false
	}
	f, err := strconv.ParseInt(fit, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	s, err := strconv.ParseInt(sys, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return entities.FittingID(f), entities.SystemID(s), true
}

// String returns a string representation of the request map for debugging
func (rm RequestMap) String() string {
	if len(rm) == 0 {
		return "RequestMap{empty}"
	}

	keys := make([]string, 0, len(rm))
	for k := range rm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "RequestMap{%d entries:\n", len(rm))
	for _, key := range keys {
		if fittingID, systemID, found := rm.parseKey(key); found {
			fmt.Fprintf(&b, "  fitting %d@system %d: requested=%d\n", fittingID, systemID, rm[key])
		}
	}
	b.WriteString("}")
	return b.String()
}

// ClaimBook aggregates claims per fitting
type ClaimBook struct {
	total    map[entities.FittingID]int64
	byIdentity map[entities.FittingID]map[entities.IdentityID]int64
}

// NewClaimBook sums claims. Non-positive quantities count as no claim.
func NewClaimBook(claims []*entities.Claim) *ClaimBook {
	b := &ClaimBook{
		total:    make(map[entities.FittingID]int64),
		byIdentity: make(map[entities.FittingID]map[entities.IdentityID]int64),
	}
	for _, c := range claims {
		if c.Quantity <= 0 {
			continue
		}
		b.total[c.FittingID] += c.Quantity
		if b.byIdentity[c.FittingID] == nil {
			b.byIdentity[c.FittingID] = make(map[entities.IdentityID]int64)
		}
		b.byIdentity[c.FittingID][c.IdentityID] += c.Quantity
	}
	return b
}

// Total returns the claimed quantity for a fitting across all identities
func (b *ClaimBook) Total(id entities.FittingID) int64 {
	return b.total[id]
}

// By returns the quantity one identity claimed for a fitting
func (b *ClaimBook) By(id entities.FittingID, identity entities.IdentityID) int64 {
	return b.byIdentity[id][identity]
}

// Claimants returns the identities holding claims on a fitting with their quantities, by identity id
func (b *ClaimBook) Claimants(id entities.FittingID) []entities.Claim {
	per := b.byIdentity[id]
	out := make([]entities.Claim, 0, len(per))
	for identity, qty := range per {
		out = append(out, entities.Claim{FittingID: id, IdentityID: identity, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out
}
