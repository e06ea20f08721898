package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// PaymentRow aggregates approved subsidies for one display identity
type PaymentRow struct {
	DisplayID             entities.IdentityID
	DisplayName           string
	ApprovedUnpaid        decimal.Decimal
	ApprovedPaid          decimal.Decimal
	TotalApproved         decimal.Decimal
	UnpaidBeforeExempt    decimal.Decimal
	ExemptUnpaid          decimal.Decimal
	ExemptPaidNegativeAbs decimal.Decimal
	Contracts             int
}

// NewPaymentRow returns a row with every bucket at zero
func NewPaymentRow(id entities.IdentityID, name string) PaymentRow {
	return PaymentRow{
		DisplayID:             id,
		DisplayName:           name,
		ApprovedUnpaid:        decimal.Zero,
		ApprovedPaid:          decimal.Zero,
		TotalApproved:         decimal.Zero,
		UnpaidBeforeExempt:    decimal.Zero,
		ExemptUnpaid:          decimal.Zero,
		ExemptPaidNegativeAbs: decimal.Zero,
	}
}

// Accumulate adds another row's buckets into this one
func (p *PaymentRow) Accumulate(o PaymentRow) {
	p.ApprovedUnpaid = p.ApprovedUnpaid.Add(o.ApprovedUnpaid)
	p.ApprovedPaid = p.ApprovedPaid.Add(o.ApprovedPaid)
	p.TotalApproved = p.TotalApproved.Add(o.TotalApproved)
	p.UnpaidBeforeExempt = p.UnpaidBeforeExempt.Add(o.UnpaidBeforeExempt)
	p.ExemptUnpaid = p.ExemptUnpaid.Add(o.ExemptUnpaid)
	p.ExemptPaidNegativeAbs = p.ExemptPaidNegativeAbs.Add(o.ExemptPaidNegativeAbs)
	p.Contracts += o.Contracts
}

// PaymentSummary is the per-main payment report
type PaymentSummary struct {
	Rows   []PaymentRow
	Totals PaymentRow
}

// BulkPayResult reports a bulk mark-paid run
type BulkPayResult struct {
	DisplayID entities.IdentityID
	Updated   int
	Reversed  int
	Skipped   int
	Failed    int
	// Total is the signed sum of amounts settled in this run
	Total decimal.Decimal
}

// ContractLine is one contract in an identity's contract listing
type ContractLine struct {
	ContractID   entities.ContractID
	IssuerID     entities.IdentityID
	IssuerName   string
	DateIssued   time.Time
	Status       entities.ContractStatus
	Price        decimal.Decimal
	ReviewStatus entities.ReviewStatus
	Amount       decimal.Decimal
	Paid         bool
	Exempt       bool
}

// IssuerTotals sums approved subsidies for one sub-identity
type IssuerTotals struct {
	IssuerID   entities.IdentityID
	IssuerName string
	Approved   decimal.Decimal
	Contracts  int
}

// IdentityContracts lists every contract of a display identity's sub-identities
type IdentityContracts struct {
	DisplayID   entities.IdentityID
	DisplayName string
	Issuers     []IssuerTotals
	Contracts   []ContractLine
}
