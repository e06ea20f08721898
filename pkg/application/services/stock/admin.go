package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/application/services/shared"
	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// SaveClaim records a pilot's claim on a fitting's shortfall, replacing any previous claim
func (s *Service) SaveClaim(
	ctx context.Context,
	fittingID entities.FittingID,
	identityID entities.IdentityID,
	quantity int64,
) (*entities.Claim, error) {
	claim, err := entities.NewClaim(fittingID, identityID, quantity)
	if err != nil {
		return nil, err
	}
	if _, err := s.src.Catalog.GetFitting(ctx, fittingID); err != nil {
		return nil, err
	}
	claim.CreatedAt = s.now()
	if err := s.src.Stock.SaveClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("save claim: %w", err)
	}
	s.log.Info("claim saved", "fitting_id", fittingID, "identity_id", identityID, "quantity", quantity)
	return claim, nil
}

// ClearClaim removes a claim. Clearing a claim that does not exist is not an error.
func (s *Service) ClearClaim(ctx context.Context, fittingID entities.FittingID, identityID entities.IdentityID) (bool, error) {
	existed, err := s.src.Stock.DeleteClaim(ctx, fittingID, identityID)
	if err != nil {
		return false, fmt.Errorf("clear claim: %w", err)
	}
	if existed {
		s.log.Info("claim cleared", "fitting_id", fittingID, "identity_id", identityID)
	}
	return existed, nil
}

// SetRequested sets the stock target of one fitting in one system
func (s *Service) SetRequested(
	ctx context.Context,
	fittingID entities.FittingID,
	systemID entities.SystemID,
	requested int64,
) (bool, error) {
	if requested < 0 {
		return false, entities.NewValidationError(entities.CodeInvalidQuantity,
			fmt.Sprintf("requested cannot be negative, got %d", requested))
	}
	if _, err := s.src.Catalog.GetFitting(ctx, fittingID); err != nil {
		return false, err
	}
	if _, err := s.src.Stock.GetLocation(ctx, systemID); err != nil {
		return false, err
	}
	changed, err := s.src.Stock.SetRequested(ctx, fittingID, systemID, requested)
	if err != nil {
		return false, fmt.Errorf("set requested: %w", err)
	}
	return changed, nil
}

// SetDoctrineRequested sets the same stock target on every fitting of a
// doctrine. Missing rows are created, unchanged rows are skipped.
func (s *Service) SetDoctrineRequested(
	ctx context.Context,
	doctrineID entities.DoctrineID,
	systemID entities.SystemID,
	requested int64,
) (dto.RequestUpdate, error) {
	var res dto.RequestUpdate
	if requested < 0 {
		return res, entities.NewValidationError(entities.CodeInvalidQuantity,
			fmt.Sprintf("requested cannot be negative, got %d", requested))
	}
	doctrine, err := s.src.Catalog.GetDoctrine(ctx, doctrineID)
	if err != nil {
		return res, err
	}
	if _, err := s.src.Stock.GetLocation(ctx, systemID); err != nil {
		return res, err
	}
	existing, err := s.src.Stock.ListRequests(ctx)
	if err != nil {
		return res, fmt.Errorf("list requests: %w", err)
	}
	current := shared.NewRequestMapFromRequests(existing)

	for _, fid := range doctrine.FittingIDs {
		if _, err := s.src.Catalog.GetFitting(ctx, fid); err != nil {
			if errors.Is(err, entities.ErrNotFound) {
				s.log.Warn("doctrine references unknown fitting", "doctrine_id", doctrineID, "fitting_id", fid)
				res.Skipped++
				continue
			}
			return res, err
		}
		had := current.Has(fid, systemID)
		changed, err := s.src.Stock.SetRequested(ctx, fid, systemID, requested)
		if err != nil {
			return res, fmt.Errorf("set requested for fitting %d: %w", fid, err)
		}
		switch {
		case !had:
			res.Created++
		case changed:
			res.Updated++
		default:
			res.Skipped++
		}
	}
	s.log.Info("doctrine requested updated",
		"doctrine_id", doctrineID,
		"system_id", systemID,
		"created", res.Created,
		"updated", res.Updated,
		"skipped", res.Skipped,
	)
	return res, nil
}

// DoctrineRequested rolls requested stock up per doctrine as the largest
// target among its fittings
func (s *Service) DoctrineRequested(ctx context.Context, systemID entities.SystemID) ([]dto.DoctrineRequested, error) {
	doctrines, err := s.src.Catalog.ListDoctrines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctrines: %w", err)
	}
	requests, err := s.src.Stock.ListRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	rm := shared.NewRequestMapFromRequests(requests)

	out := make([]dto.DoctrineRequested, 0, len(doctrines))
	for _, d := range doctrines {
		out = append(out, dto.DoctrineRequested{
			DoctrineID: d.ID,
			Name:       d.Name,
			SystemID:   systemID,
			Requested:  rm.MaxFor(d.FittingIDs, systemID),
		})
	}
	return out, nil
}
