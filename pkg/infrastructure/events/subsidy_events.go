package events

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

const (
	SubsidyApprovedEvent  = "subsidy.approved"
	SubsidyRejectedEvent  = "subsidy.rejected"
	SubsidyForcedFitEvent = "subsidy.forced_fit"
	SubsidyPaidEvent      = "subsidy.paid"
	SubsidyExemptedEvent  = "subsidy.exempted"

	PricesRefreshRequestedEvent = "prices.refresh_requested"
	PricesRefreshedEvent        = "prices.refreshed"

	ReconcileCompletedEvent = "reconcile.completed"
)

// ContractStream is the stream id for events about one contract
func ContractStream(id entities.ContractID) string {
	return fmt.Sprintf("contract-%d", id)
}

// PriceStream is the stream for price maintenance events
const PriceStream = "prices"

// ReconcileStream is the stream for reconciliation runs
const ReconcileStream = "reconcile"

type SubsidyReviewed struct {
	ContractID entities.ContractID   `json:"contract_id"`
	Status     entities.ReviewStatus `json:"status"`
	Amount     decimal.Decimal       `json:"amount"`
	Reason     string                `json:"reason"`
}

type SubsidyForcedFit struct {
	ContractID entities.ContractID `json:"contract_id"`
	FittingID  *entities.FittingID `json:"fitting_id,omitempty"`
}

type SubsidyPaid struct {
	ContractID entities.ContractID `json:"contract_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Reversed   bool                `json:"reversed"`
	DisplayID  entities.IdentityID `json:"display_id"`
}

type SubsidyExempted struct {
	ContractID entities.ContractID `json:"contract_id"`
}

type PricesRefreshRequested struct {
	TypeIDs []entities.TypeID `json:"type_ids"`
}

type PricesRefreshed struct {
	Updated int `json:"updated"`
	Missing int `json:"missing"`
}

type ReconcileCompleted struct {
	RunID string `json:"run_id"`
	Steps int    `json:"steps"`
}
