package review

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/application/services/shared"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/domain/services"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

var hundred = decimal.NewFromInt(100)

// Service builds the reviewer queue and exposes fitting valuations and matches
type Service struct {
	src        shared.Sources
	identities repositories.IdentityResolver
	log        *logger.Logger
}

// NewService creates a review service
func NewService(src shared.Sources, identities repositories.IdentityResolver, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		src:        src,
		identities: identities,
		log:        log.Named("review"),
	}
}

func windowFilter(scope dto.Scope) repositories.ContractFilter {
	return repositories.ContractFilter{
		Statuses:     scope.Statuses,
		IssuedAfter:  scope.Start,
		IssuedBefore: scope.End,
	}
}

// ReviewQueue lists every imported contract of the configured corporation
// issued within the window, newest first
func (s *Service) ReviewQueue(ctx context.Context, scope dto.Scope) ([]dto.ReviewRow, error) {
	filter := windowFilter(scope)
	snap, err := shared.LoadSnapshot(ctx, s.src, &filter, s.log)
	if err != nil {
		return nil, fmt.Errorf("review queue: %w", err)
	}

	var queued []*entities.Contract
	for _, c := range snap.Contracts {
		if c.CorporationID != snap.Config.CorporationID {
			continue
		}
		if _, ok := snap.Subsidies[c.ID]; !ok {
			continue
		}
		queued = append(queued, c)
	}
	sort.SliceStable(queued, func(i, j int) bool {
		if !queued[i].DateIssued.Equal(queued[j].DateIssued) {
			return queued[i].DateIssued.After(queued[j].DateIssued)
		}
		return queued[i].ID > queued[j].ID
	})

	matches := snap.Matcher.MatchAll(queued, snap.Overrides())
	issuers := make(map[entities.IdentityID]string)

	rows := make([]dto.ReviewRow, 0, len(queued))
	for _, c := range queued {
		rec := snap.Subsidies[c.ID]
		issuer, ok := issuers[c.IssuerID]
		if !ok {
			issuer, err = s.issuerLabel(ctx, c)
			if err != nil {
				return nil, err
			}
			issuers[c.IssuerID] = issuer
		}

		row := dto.ReviewRow{
			ContractID:   c.ID,
			DateIssued:   c.DateIssued,
			Status:       c.Status,
			Title:        c.Title,
			Issuer:       issuer,
			Location:     c.StartLocationName,
			Price:        c.Price,
			Basis:        decimal.Zero,
			Suggested:    decimal.Zero,
			PctOfBasis:   decimal.Zero,
			ReviewStatus: rec.ReviewStatus,
			Amount:       rec.Amount,
			Reason:       rec.Reason,
			Paid:         rec.Paid,
			Exempt:       rec.Exempt,
			Forced:       rec.ForcedFittingID != nil,
		}
		for _, id := range snap.Matcher.Candidates(services.InventoryFromItems(c.Items)) {
			if f, ok := snap.Fitting(id); ok {
				row.MatchedNames = append(row.MatchedNames, f.Name)
			}
		}
		sort.Strings(row.MatchedNames)

		if fid, ok := matches[c.ID]; ok {
			id := fid
			row.FittingID = &id
			if f, ok := snap.Fitting(fid); ok {
				row.FittingName = f.Name
			}
			if v, ok := snap.Valuations[fid]; ok {
				row.Basis = v.Basis
				row.Suggested = v.Subsidy
			}
		}
		if row.Basis.IsPositive() {
			row.PctOfBasis = c.Price.Div(row.Basis).Mul(hundred).Round(2)
		}
		row.PrefillAmount = rec.Amount
		if rec.Amount.IsZero() {
			row.PrefillAmount = row.Suggested
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// issuerLabel renders "Main (Alt)" when the issuer belongs to another display identity
func (s *Service) issuerLabel(ctx context.Context, c *entities.Contract) (string, error) {
	display, ok, err := s.identities.DisplayIdentity(ctx, c.IssuerID)
	if err != nil {
		return "", fmt.Errorf("resolve display identity of %d: %w", c.IssuerID, err)
	}
	if !ok {
		return c.IssuerName, nil
	}
	main, found, err := s.identities.DisplayName(ctx, display)
	if err != nil {
		return "", fmt.Errorf("resolve name of %d: %w", display, err)
	}
	if !found || main == "" || main == c.IssuerName {
		return c.IssuerName, nil
	}
	return fmt.Sprintf("%s (%s)", main, c.IssuerName), nil
}

// ValuationFor values a single fitting against the active config and price cache
func (s *Service) ValuationFor(ctx context.Context, id entities.FittingID) (*dto.FittingValuation, error) {
	snap, err := shared.LoadSnapshot(ctx, shared.Sources{
		Catalog: s.src.Catalog,
		Prices:  s.src.Prices,
		Config:  s.src.Config,
	}, nil, s.log)
	if err != nil {
		return nil, fmt.Errorf("valuation for fitting %d: %w", id, err)
	}
	f, ok := snap.Fitting(id)
	if !ok {
		return nil, entities.NewNotFoundError("fitting", int64(id))
	}
	v := snap.Valuations[id]
	return &dto.FittingValuation{
		FittingID:      f.ID,
		FittingName:    f.Name,
		ItemsBasis:     v.ItemsBasis,
		HullBasis:      v.HullBasis,
		Basis:          v.Basis,
		Volume:         v.Volume,
		Subsidy:        v.Subsidy,
		PurchasePrice:  v.PurchasePrice,
		MissingPrices:  v.MissingPrices,
		MissingVolumes: v.MissingVolumes,
	}, nil
}

// MatchAll maps every contract of the configured corporation issued within
// the window to its fitting. Forced overrides win over automatic matches.
func (s *Service) MatchAll(ctx context.Context, scope dto.Scope) (map[entities.ContractID]entities.FittingID, error) {
	filter := windowFilter(scope)
	snap, err := shared.LoadSnapshot(ctx, s.src, &filter, s.log)
	if err != nil {
		return nil, fmt.Errorf("match all: %w", err)
	}
	in := make([]*entities.Contract, 0, len(snap.Contracts))
	for _, c := range snap.Contracts {
		if c.CorporationID == snap.Config.CorporationID {
			in = append(in, c)
		}
	}
	out := snap.Matcher.MatchAll(in, snap.Overrides())
	s.log.Debug("matched contracts", "contracts", len(in), "matched", len(out))
	return out, nil
}
