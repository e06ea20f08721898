package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// NoDoctrine labels fittings that belong to no doctrine
const NoDoctrine = "No Doctrine"

// Scope selects which contracts count toward available stock
type Scope struct {
	Start     time.Time
	End       time.Time
	SystemIDs []entities.SystemID
	Statuses  []entities.ContractStatus
	// Now is the evaluation time for the expiry check; zero means time.Now()
	Now time.Time
	// ViewerID is the identity whose own claims are reported separately; zero for none
	ViewerID entities.IdentityID
}

// StockRow is one fitting's stock position in one system
type StockRow struct {
	FittingID       entities.FittingID
	FittingName     string
	Doctrine        string
	Requested       int64
	Available       int64
	Needed          int64
	ClaimedTotal    int64
	ClaimedByViewer int64
	AdjustedNeeded  int64
	Claimants       string
	Volume          decimal.Decimal
	Basis           decimal.Decimal
	Subsidy         decimal.Decimal
	PurchasePrice   decimal.Decimal
}

// StockTotals sums the count columns of a set of rows
type StockTotals struct {
	Requested      int64
	Available      int64
	Needed         int64
	AdjustedNeeded int64
}

// Add accumulates a row into the totals
func (t *StockTotals) Add(r StockRow) {
	t.Requested += r.Requested
	t.Available += r.Available
	t.Needed += r.Needed
	t.AdjustedNeeded += r.AdjustedNeeded
}

// SystemStock is the stock summary for one deployment system
type SystemStock struct {
	SystemID   entities.SystemID
	SystemName string
	Rows       []StockRow
	Totals     StockTotals
}

// StockSummary is the doctrine stock report across systems
type StockSummary struct {
	Systems     []SystemStock
	Totals      StockTotals
	GeneratedAt time.Time
}

// DoctrineRequested is the rolled-up requested count of a doctrine in a system
type DoctrineRequested struct {
	DoctrineID entities.DoctrineID
	Name       string
	SystemID   entities.SystemID
	Requested  int64
}

// RequestUpdate reports the outcome of a bulk requested-stock change
type RequestUpdate struct {
	Created int
	Updated int
	Skipped int
}
