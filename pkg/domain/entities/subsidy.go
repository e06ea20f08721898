package entities

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ReviewStatus represents the review decision on a subsidy
type ReviewStatus int

const (
	ReviewRejected ReviewStatus = -1
	ReviewPending  ReviewStatus = 0
	ReviewApproved ReviewStatus = 1
)

// String method for ReviewStatus enum
func (s ReviewStatus) String() string {
	switch s {
	case ReviewApproved:
		return "Approved"
	case ReviewRejected:
		return "Rejected"
	default:
		return "Pending"
	}
}

// SubsidyRecord holds the review and payment state for one contract
type SubsidyRecord struct {
	ContractID      ContractID
	ReviewStatus    ReviewStatus
	Amount          decimal.Decimal
	Reason          string
	Paid            bool
	Exempt          bool
	ForcedFittingID *FittingID
}

// NewSubsidyRecord creates a pending record for a contract
func NewSubsidyRecord(contractID ContractID) *SubsidyRecord {
	return &SubsidyRecord{
		ContractID:   contractID,
		ReviewStatus: ReviewPending,
		Amount:       decimal.Zero,
	}
}

// Clone returns a deep copy of the record
func (r *SubsidyRecord) Clone() *SubsidyRecord {
	cp := *r
	if r.ForcedFittingID != nil {
		id := *r.ForcedFittingID
		cp.ForcedFittingID = &id
	}
	return &cp
}

// Approve marks the record approved. A nil amount or reason keeps the
// current value. Returns true when anything changed.
func (r *SubsidyRecord) Approve(amount *decimal.Decimal, reason *string) bool {
	return r.decide(ReviewApproved, amount, reason)
}

// Reject marks the record rejected with a mandatory reason
func (r *SubsidyRecord) Reject(amount *decimal.Decimal, reason string) (bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return false, NewValidationError(CodeReasonRequired, "a reason is required to reject a subsidy")
	}
	return r.decide(ReviewRejected, amount, &reason), nil
}

func (r *SubsidyRecord) decide(status ReviewStatus, amount *decimal.Decimal, reason *string) bool {
	changed := r.ReviewStatus != status
	r.ReviewStatus = status
	if amount != nil && !amount.Equal(r.Amount) {
		r.Amount = *amount
		changed = true
	}
	if reason != nil && *reason != r.Reason {
		r.Reason = *reason
		changed = true
	}
	return changed
}

// Payable reports whether the record is waiting for payment
func (r *SubsidyRecord) Payable() bool {
	return r.ReviewStatus == ReviewApproved && !r.Paid
}

// MarkPaid settles an approved, unpaid record. Exempt records with a
// positive amount are settled by posting the negated amount. Returns
// whether the record changed and whether the amount was reversed.
func (r *SubsidyRecord) MarkPaid() (changed bool, reversed bool) {
	if !r.Payable() {
		return false, false
	}
	if r.Exempt && r.Amount.IsPositive() {
		r.Amount = r.Amount.Neg()
		reversed = true
	}
	r.Paid = true
	return true, reversed
}

// MarkExempt flags the record exempt. Returns false if it already was.
func (r *SubsidyRecord) MarkExempt() bool {
	if r.Exempt {
		return false
	}
	r.Exempt = true
	return true
}

// ForceFitting sets or clears the manual fitting override
func (r *SubsidyRecord) ForceFitting(id *FittingID) bool {
	switch {
	case id == nil && r.ForcedFittingID == nil:
		return false
	case id != nil && r.ForcedFittingID != nil && *id == *r.ForcedFittingID:
		return false
	}
	if id == nil {
		r.ForcedFittingID = nil
	} else {
		v := *id
		r.ForcedFittingID = &v
	}
	return true
}
