package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// ReviewInput carries optional reviewer overrides. Amount is parsed as a decimal.
type ReviewInput struct {
	Amount *string
	Reason *string
}

// ReviewRow is one contract in the reviewer queue
type ReviewRow struct {
	ContractID    entities.ContractID
	DateIssued    time.Time
	Status        entities.ContractStatus
	Title         string
	Issuer        string
	Location      string
	Price         decimal.Decimal
	MatchedNames  []string
	FittingID     *entities.FittingID
	FittingName   string
	Forced        bool
	Basis         decimal.Decimal
	Suggested     decimal.Decimal
	PctOfBasis    decimal.Decimal
	ReviewStatus  entities.ReviewStatus
	Amount        decimal.Decimal
	PrefillAmount decimal.Decimal
	Reason        string
	Paid          bool
	Exempt        bool
}

// FittingValuation is the valuation of one fitting for display
type FittingValuation struct {
	FittingID      entities.FittingID
	FittingName    string
	ItemsBasis     decimal.Decimal
	HullBasis      decimal.Decimal
	Basis          decimal.Decimal
	Volume         decimal.Decimal
	Subsidy        decimal.Decimal
	PurchasePrice  decimal.Decimal
	MissingPrices  []entities.TypeID
	MissingVolumes []entities.TypeID
}
