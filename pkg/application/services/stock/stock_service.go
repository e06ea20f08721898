package stock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/application/services/shared"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// Service aggregates doctrine stock per deployment system and manages
// stock targets and claims
type Service struct {
	src        shared.Sources
	identities repositories.IdentityResolver
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates a stock service
func NewService(src shared.Sources, identities repositories.IdentityResolver, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		src:        src,
		identities: identities,
		log:        log.Named("stock"),
		now:        time.Now,
	}
}

// DoctrineStockSummary compares matched open contracts against requested
// stock in every active system of the scope
func (s *Service) DoctrineStockSummary(ctx context.Context, scope dto.Scope) (*dto.StockSummary, error) {
	now := scope.Now
	if now.IsZero() {
		now = s.now()
	}
	statuses := scope.Statuses
	if len(statuses) == 0 {
		statuses = entities.DefaultOpenStatuses
	}

	filter := repositories.ContractFilter{
		Statuses:     statuses,
		IssuedAfter:  scope.Start,
		IssuedBefore: scope.End,
	}
	snap, err := shared.LoadSnapshot(ctx, s.src, &filter, s.log)
	if err != nil {
		return nil, fmt.Errorf("doctrine stock summary: %w", err)
	}

	// corporation comes from the same config read as the valuations
	open := make([]*entities.Contract, 0, len(snap.Contracts))
	for _, c := range snap.Contracts {
		if c.CorporationID == snap.Config.CorporationID && c.ExpiresAfter(now) {
			open = append(open, c)
		}
	}
	matches := snap.Matcher.MatchAll(open, snap.Overrides())

	claimants, err := s.claimantLabels(ctx, snap)
	if err != nil {
		return nil, err
	}

	summary := &dto.StockSummary{GeneratedAt: now}
	for _, sys := range snap.ActiveLocations(scope.SystemIDs) {
		available := make(map[entities.FittingID]int64)
		for _, c := range open {
			if !sys.Covers(c.StartLocationID) {
				continue
			}
			if id, ok := matches[c.ID]; ok {
				available[id]++
			}
		}

		block := dto.SystemStock{SystemID: sys.ID, SystemName: sys.Name}
		for _, fit := range snap.Fittings {
			requested := snap.Requests.Get(fit.ID, sys.ID)
			avail := available[fit.ID]
			if requested <= 0 && avail <= 0 {
				continue
			}
			row := s.buildRow(snap, sys.ID, fit, requested, avail, scope.ViewerID)
			row.Claimants = claimants[fit.ID]
			block.Rows = append(block.Rows, row)
			block.Totals.Add(row)
		}
		summary.Totals.Requested += block.Totals.Requested
		summary.Totals.Available += block.Totals.Available
		summary.Totals.Needed += block.Totals.Needed
		summary.Totals.AdjustedNeeded += block.Totals.AdjustedNeeded
		summary.Systems = append(summary.Systems, block)
	}

	s.log.Debug("stock summary built",
		"systems", len(summary.Systems),
		"open_contracts", len(open),
		"matched", len(matches),
	)
	return summary, nil
}

func (s *Service) buildRow(
	snap *shared.Snapshot,
	systemID entities.SystemID,
	fit *entities.Fitting,
	requested, available int64,
	viewer entities.IdentityID,
) dto.StockRow {
	needed := requested - available
	if needed < 0 {
		needed = 0
	}
	claimed := snap.Claims.Total(fit.ID)
	adjusted := needed - claimed
	if adjusted < 0 {
		adjusted = 0
	}

	row := dto.StockRow{
		FittingID:      fit.ID,
		FittingName:    fit.Name,
		Doctrine:       doctrineLabel(snap, systemID, fit.ID),
		Requested:      requested,
		Available:      available,
		Needed:         needed,
		ClaimedTotal:   claimed,
		AdjustedNeeded: adjusted,
	}
	if viewer != 0 {
		row.ClaimedByViewer = snap.Claims.By(fit.ID, viewer)
	}
	if v, ok := snap.Valuations[fit.ID]; ok {
		row.Volume = v.Volume
		row.Basis = v.Basis
		row.Subsidy = v.Subsidy
		row.PurchasePrice = v.PurchasePrice
	}
	return row
}

// doctrineLabel picks the member doctrine with the greatest summed requested
// in the system, ties by name
func doctrineLabel(snap *shared.Snapshot, systemID entities.SystemID, id entities.FittingID) string {
	best := ""
	var bestTotal int64 = -1
	for _, d := range snap.DoctrinesOf(id) {
		total := snap.Requests.TotalFor(d.FittingIDs, systemID)
		if total > bestTotal || (total == bestTotal && d.Name < best) {
			best = d.Name
			bestTotal = total
		}
	}
	if best == "" {
		return dto.NoDoctrine
	}
	return best
}

// claimantLabels renders "Main (qty)" lists per fitting, quantities summed per main
func (s *Service) claimantLabels(ctx context.Context, snap *shared.Snapshot) (map[entities.FittingID]string, error) {
	out := make(map[entities.FittingID]string)
	for _, fit := range snap.Fittings {
		claims := snap.Claims.Claimants(fit.ID)
		if len(claims) == 0 {
			continue
		}
		perMain := make(map[string]int64)
		for _, c := range claims {
			name, err := s.mainName(ctx, c.IdentityID)
			if err != nil {
				return nil, err
			}
			perMain[name] += c.Quantity
		}
		names := make([]string, 0, len(perMain))
		for n := range perMain {
			names = append(names, n)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, n := range names {
			parts = append(parts, fmt.Sprintf("%s (%d)", n, perMain[n]))
		}
		out[fit.ID] = strings.Join(parts, ", ")
	}
	return out, nil
}

func (s *Service) mainName(ctx context.Context, id entities.IdentityID) (string, error) {
	if s.identities == nil {
		return "Unknown", nil
	}
	display, ok, err := s.identities.DisplayIdentity(ctx, id)
	if err != nil {
		return "", fmt.Errorf("resolve identity %d: %w", id, err)
	}
	if !ok {
		display = id
	}
	name, ok, err := s.identities.DisplayName(ctx, display)
	if err != nil {
		return "", fmt.Errorf("resolve name %d: %w", display, err)
	}
	if !ok || name == "" {
		return "Unknown", nil
	}
	return name, nil
}
