package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
)

const dateFormat = "2006-01-02 15:04"

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func flag(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// StockReport renders the doctrine stock summary, one table per system
func StockReport(summary *dto.StockSummary) Report {
	header := []string{
		"Doctrine", "Fitting", "Requested", "Available", "Needed", "Claimed",
		"Mine", "Adjusted", "Claimants", "Volume", "Basis", "Subsidy", "Purchase",
	}
	r := Report{Name: "stock", Title: "Doctrine Stock", Data: summary}
	for _, sys := range summary.Systems {
		t := Table{
			Name:   sys.SystemName,
			Title:  fmt.Sprintf("%s (%d)", sys.SystemName, sys.SystemID),
			Header: header,
		}
		for _, row := range sys.Rows {
			t.Rows = append(t.Rows, []string{
				row.Doctrine, row.FittingName,
				itoa(row.Requested), itoa(row.Available), itoa(row.Needed),
				itoa(row.ClaimedTotal), itoa(row.ClaimedByViewer), itoa(row.AdjustedNeeded),
				row.Claimants, row.Volume.String(),
				money(row.Basis), money(row.Subsidy), money(row.PurchasePrice),
			})
		}
		t.Footer = []string{
			"Total", "", itoa(sys.Totals.Requested), itoa(sys.Totals.Available),
			itoa(sys.Totals.Needed), "", "", itoa(sys.Totals.AdjustedNeeded),
		}
		r.Tables = append(r.Tables, t)
	}
	r.Notes = append(r.Notes, fmt.Sprintf(
		"All systems: requested %d, available %d, needed %d, adjusted %d",
		summary.Totals.Requested, summary.Totals.Available, summary.Totals.Needed, summary.Totals.AdjustedNeeded))
	return r
}

// ReviewReport renders the reviewer queue
func ReviewReport(rows []dto.ReviewRow) Report {
	t := Table{
		Name:  "queue",
		Title: "Review Queue",
		Header: []string{
			"Contract", "Issued", "State", "Issuer", "Location", "Price", "Fitting", "Matches",
			"Basis", "Suggested", "% Basis", "Status", "Amount", "Paid", "Exempt",
		},
	}
	for _, row := range rows {
		fitting := row.FittingName
		if row.Forced {
			fitting += " (forced)"
		}
		t.Rows = append(t.Rows, []string{
			itoa(int64(row.ContractID)),
			row.DateIssued.Format(dateFormat),
			string(row.Status),
			row.Issuer,
			row.Location,
			money(row.Price),
			fitting,
			strings.Join(row.MatchedNames, "; "),
			money(row.Basis),
			money(row.Suggested),
			row.PctOfBasis.StringFixed(2),
			row.ReviewStatus.String(),
			money(row.PrefillAmount),
			flag(row.Paid),
			flag(row.Exempt),
		})
	}
	return Report{Name: "review", Title: "Subsidy Review", Tables: []Table{t}, Data: rows}
}

// RecordReport renders a single subsidy record after a review action
func RecordReport(action string, rec *entities.SubsidyRecord) Report {
	forced := ""
	if rec.ForcedFittingID != nil {
		forced = itoa(int64(*rec.ForcedFittingID))
	}
	t := Table{
		Name:   "record",
		Title:  action,
		Header: []string{"Contract", "Status", "Amount", "Reason", "Paid", "Exempt", "Forced Fitting"},
		Rows: [][]string{{
			itoa(int64(rec.ContractID)), rec.ReviewStatus.String(), money(rec.Amount),
			rec.Reason, flag(rec.Paid), flag(rec.Exempt), forced,
		}},
	}
	return Report{Name: "record", Tables: []Table{t}, Data: rec}
}

// WithActivity appends the events a command published as an audit table.
// JSON output keeps Data only.
func WithActivity(r Report, evts []events.Event) Report {
	if len(evts) == 0 {
		return r
	}
	t := Table{
		Name:   "activity",
		Title:  "Activity",
		Header: []string{"Time", "Event", "Stream", "Version"},
	}
	for _, e := range evts {
		t.Rows = append(t.Rows, []string{
			e.Timestamp().Format(dateFormat), e.Type(), e.StreamID(), strconv.Itoa(e.Version()),
		})
	}
	r.Tables = append(r.Tables, t)
	return r
}

// ValuationReport renders one fitting valuation
func ValuationReport(v *dto.FittingValuation) Report {
	t := Table{
		Name:   "valuation",
		Title:  v.FittingName,
		Header: []string{"Items", "Hull", "Basis", "Volume", "Subsidy", "Purchase"},
		Rows: [][]string{{
			money(v.ItemsBasis), money(v.HullBasis), money(v.Basis),
			v.Volume.String(), money(v.Subsidy), money(v.PurchasePrice),
		}},
	}
	r := Report{Name: "valuation", Title: "Fitting Valuation", Tables: []Table{t}, Data: v}
	if len(v.MissingPrices) > 0 {
		r.Notes = append(r.Notes, "Missing prices: "+typeList(v.MissingPrices))
	}
	if len(v.MissingVolumes) > 0 {
		r.Notes = append(r.Notes, "Missing volumes: "+typeList(v.MissingVolumes))
	}
	return r
}

func typeList(ids []entities.TypeID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, itoa(int64(id)))
	}
	return strings.Join(parts, ", ")
}

func paymentCells(row dto.PaymentRow) []string {
	return []string{
		row.DisplayName,
		itoa(int64(row.Contracts)),
		money(row.ApprovedUnpaid),
		money(row.ApprovedPaid),
		money(row.TotalApproved),
		money(row.UnpaidBeforeExempt),
		money(row.ExemptUnpaid),
		money(row.ExemptPaidNegativeAbs),
	}
}

// PaymentsReport renders the per-main payment summary
func PaymentsReport(summary *dto.PaymentSummary) Report {
	t := Table{
		Name:  "payments",
		Title: "Payments by Main",
		Header: []string{
			"Main", "Contracts", "Unpaid", "Paid", "Total Approved",
			"Unpaid Before Exempt", "Exempt Unpaid", "Exempt Paid",
		},
		Footer: paymentCells(summary.Totals),
	}
	for _, row := range summary.Rows {
		t.Rows = append(t.Rows, paymentCells(row))
	}
	return Report{Name: "payments", Title: "Subsidy Payments", Tables: []Table{t}, Data: summary}
}

// BulkPayReport renders a bulk mark-paid result
func BulkPayReport(res dto.BulkPayResult) Report {
	t := Table{
		Name:   "paid",
		Title:  "Marked Paid",
		Header: []string{"Main", "Updated", "Reversed", "Skipped", "Failed", "Total"},
		Rows: [][]string{{
			itoa(int64(res.DisplayID)), strconv.Itoa(res.Updated), strconv.Itoa(res.Reversed),
			strconv.Itoa(res.Skipped), strconv.Itoa(res.Failed), money(res.Total),
		}},
	}
	return Report{Name: "pay", Tables: []Table{t}, Data: res}
}

// IdentityContractsReport renders the contracts of one main
func IdentityContractsReport(ic *dto.IdentityContracts) Report {
	issuers := Table{
		Name:   "issuers",
		Title:  "Approved by Character",
		Header: []string{"Character", "Contracts", "Approved"},
	}
	for _, it := range ic.Issuers {
		issuers.Rows = append(issuers.Rows, []string{it.IssuerName, strconv.Itoa(it.Contracts), money(it.Approved)})
	}

	contracts := Table{
		Name:   "contracts",
		Title:  "Contracts",
		Header: []string{"Contract", "Issued", "Character", "Status", "Price", "Review", "Amount", "Paid", "Exempt"},
	}
	for _, c := range ic.Contracts {
		contracts.Rows = append(contracts.Rows, []string{
			itoa(int64(c.ContractID)), c.DateIssued.Format(dateFormat), c.IssuerName, string(c.Status),
			money(c.Price), c.ReviewStatus.String(), money(c.Amount), flag(c.Paid), flag(c.Exempt),
		})
	}
	return Report{
		Name:   "contracts",
		Title:  fmt.Sprintf("Contracts of %s", ic.DisplayName),
		Tables: []Table{issuers, contracts},
		Data:   ic,
	}
}

// ReconcileReport renders a reconciliation pass
func ReconcileReport(rep dto.ReconcileReport) Report {
	t := Table{
		Name:   "steps",
		Title:  "Steps",
		Header: []string{"Step", "Created", "Updated", "Skipped", "Failed", "Error"},
	}
	for _, s := range rep.Steps {
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
		}
		t.Rows = append(t.Rows, []string{
			s.Name, strconv.Itoa(s.Created), strconv.Itoa(s.Updated),
			strconv.Itoa(s.Skipped), strconv.Itoa(s.Failed), errText,
		})
	}
	return Report{
		Name:   "reconcile",
		Title:  "Reconciliation " + rep.RunID,
		Tables: []Table{t},
		Notes:  []string{fmt.Sprintf("Took %s", rep.FinishedAt.Sub(rep.StartedAt))},
		Data:   rep,
	}
}

// RefreshReport renders a price refresh run
func RefreshReport(res dto.RefreshResult) Report {
	t := Table{
		Name:   "refresh",
		Title:  "Price Refresh",
		Header: []string{"Requested", "Updated", "Missing", "Chunks"},
		Rows: [][]string{{
			strconv.Itoa(res.Requested), strconv.Itoa(res.Updated),
			strconv.Itoa(res.Missing), strconv.Itoa(res.Chunks),
		}},
	}
	return Report{Name: "refresh", Tables: []Table{t}, Data: res}
}

// DoctrineRequestedReport renders the requested rollup per doctrine
func DoctrineRequestedReport(rows []dto.DoctrineRequested) Report {
	t := Table{
		Name:   "requested",
		Title:  "Requested by Doctrine",
		Header: []string{"Doctrine", "System", "Requested"},
	}
	for _, row := range rows {
		t.Rows = append(t.Rows, []string{row.Name, itoa(int64(row.SystemID)), itoa(row.Requested)})
	}
	return Report{Name: "requested", Tables: []Table{t}, Data: rows}
}

// MessageReport wraps a one-line outcome
func MessageReport(name, message string, data interface{}) Report {
	return Report{Name: name, Notes: []string{message}, Data: data}
}
