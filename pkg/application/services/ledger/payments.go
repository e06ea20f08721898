package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
)

// resolveDisplay returns the display identity and its name for an issuer.
// Unmapped issuers stand for themselves under their contract name.
func (s *Service) resolveDisplay(ctx context.Context, issuer entities.IdentityID, issuerName string) (entities.IdentityID, string, error) {
	display, ok, err := s.identities.DisplayIdentity(ctx, issuer)
	if err != nil {
		return 0, "", fmt.Errorf("resolve display identity of %d: %w", issuer, err)
	}
	if !ok {
		return issuer, issuerName, nil
	}
	name, found, err := s.identities.DisplayName(ctx, display)
	if err != nil {
		return 0, "", fmt.Errorf("resolve name of %d: %w", display, err)
	}
	if !found || name == "" {
		name = issuerName
	}
	return display, name, nil
}

// AggregatePaymentsToMain buckets every approved subsidy by display identity
func (s *Service) AggregatePaymentsToMain(ctx context.Context) (*dto.PaymentSummary, error) {
	approved := entities.ReviewApproved
	records, err := s.subsidies.ListSubsidies(ctx, repositories.SubsidyFilter{ReviewStatus: &approved})
	if err != nil {
		return nil, fmt.Errorf("list approved subsidies: %w", err)
	}
	contracts, err := s.contracts.ListContracts(ctx, repositories.ContractFilter{})
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	byID := make(map[entities.ContractID]*entities.Contract, len(contracts))
	for _, c := range contracts {
		byID[c.ID] = c
	}

	rows := make(map[entities.IdentityID]*dto.PaymentRow)
	for _, rec := range records {
		c, ok := byID[rec.ContractID]
		if !ok {
			s.log.Warn("approved subsidy without contract", "contract_id", rec.ContractID)
			continue
		}
		display, name, err := s.resolveDisplay(ctx, c.IssuerID, c.IssuerName)
		if err != nil {
			return nil, err
		}
		row, ok := rows[display]
		if !ok {
			r := dto.NewPaymentRow(display, name)
			row = &r
			rows[display] = row
		}
		addToBuckets(row, rec)
	}

	summary := &dto.PaymentSummary{Totals: dto.NewPaymentRow(0, "Total")}
	for _, row := range rows {
		summary.Rows = append(summary.Rows, *row)
		summary.Totals.Accumulate(*row)
	}
	sort.Slice(summary.Rows, func(i, j int) bool {
		a, b := strings.ToLower(summary.Rows[i].DisplayName), strings.ToLower(summary.Rows[j].DisplayName)
		if a != b {
			return a < b
		}
		return summary.Rows[i].DisplayID < summary.Rows[j].DisplayID
	})
	return summary, nil
}

func addToBuckets(row *dto.PaymentRow, rec *entities.SubsidyRecord) {
	amt := rec.Amount
	if rec.Paid {
		row.ApprovedPaid = row.ApprovedPaid.Add(amt)
		if rec.Exempt && amt.IsNegative() {
			row.ExemptPaidNegativeAbs = row.ExemptPaidNegativeAbs.Add(amt.Abs())
		}
	} else {
		row.UnpaidBeforeExempt = row.UnpaidBeforeExempt.Add(amt)
		if rec.Exempt {
			row.ExemptUnpaid = row.ExemptUnpaid.Add(amt)
		} else {
			row.ApprovedUnpaid = row.ApprovedUnpaid.Add(amt)
		}
	}
	row.TotalApproved = row.ApprovedUnpaid.Add(row.ApprovedPaid)
	row.Contracts++
}

// IdentityContracts lists the contracts of every sub-identity of a display
// identity, newest first, with approved totals per issuer
func (s *Service) IdentityContracts(ctx context.Context, display entities.IdentityID) (*dto.IdentityContracts, error) {
	subs, err := s.subIdentities(ctx, display)
	if err != nil {
		return nil, err
	}
	out := &dto.IdentityContracts{DisplayID: display}
	if name, ok, err := s.identities.DisplayName(ctx, display); err != nil {
		return nil, fmt.Errorf("resolve name of %d: %w", display, err)
	} else if ok {
		out.DisplayName = name
	}

	contracts, err := s.contracts.ListContracts(ctx, repositories.ContractFilter{IssuerIDs: subs})
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	ids := make([]entities.ContractID, 0, len(contracts))
	for _, c := range contracts {
		ids = append(ids, c.ID)
	}
	records := make(map[entities.ContractID]*entities.SubsidyRecord, len(ids))
	for start := 0; start < len(ids); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		recs, err := s.subsidies.ListSubsidies(ctx, repositories.SubsidyFilter{ContractIDs: ids[start:end]})
		if err != nil {
			return nil, fmt.Errorf("list subsidies: %w", err)
		}
		for _, r := range recs {
			records[r.ContractID] = r
		}
	}

	totals := make(map[entities.IdentityID]*dto.IssuerTotals)
	for _, c := range contracts {
		rec, ok := records[c.ID]
		if !ok {
			rec = entities.NewSubsidyRecord(c.ID)
		}
		out.Contracts = append(out.Contracts, dto.ContractLine{
			ContractID:   c.ID,
			IssuerID:     c.IssuerID,
			IssuerName:   c.IssuerName,
			DateIssued:   c.DateIssued,
			Status:       c.Status,
			Price:        c.Price,
			ReviewStatus: rec.ReviewStatus,
			Amount:       rec.Amount,
			Paid:         rec.Paid,
			Exempt:       rec.Exempt,
		})

		t, ok := totals[c.IssuerID]
		if !ok {
			t = &dto.IssuerTotals{IssuerID: c.IssuerID, IssuerName: c.IssuerName, Approved: decimal.Zero}
			totals[c.IssuerID] = t
		}
		t.Contracts++
		if rec.ReviewStatus == entities.ReviewApproved {
			t.Approved = t.Approved.Add(rec.Amount)
		}
	}
	if out.DisplayName == "" && len(contracts) > 0 {
		out.DisplayName = contracts[0].IssuerName
	}

	sort.SliceStable(out.Contracts, func(i, j int) bool {
		a, b := out.Contracts[i], out.Contracts[j]
		if !a.DateIssued.Equal(b.DateIssued) {
			return a.DateIssued.After(b.DateIssued)
		}
		return a.ContractID > b.ContractID
	})
	for _, t := range totals {
		out.Issuers = append(out.Issuers, *t)
	}
	sort.Slice(out.Issuers, func(i, j int) bool {
		return out.Issuers[i].IssuerID < out.Issuers[j].IssuerID
	})
	return out, nil
}
