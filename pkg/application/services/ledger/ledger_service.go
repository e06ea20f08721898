package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// DefaultChunkSize bounds how many contract ids go into one repository call
const DefaultChunkSize = 1000

// Service maintains review and payment state of subsidy records
type Service struct {
	contracts  repositories.ContractRepository
	subsidies  repositories.SubsidyRepository
	catalog    repositories.CatalogRepository
	config     repositories.ConfigRepository
	identities repositories.IdentityResolver
	publisher  events.Publisher
	log        *logger.Logger
	chunkSize  int
	now        func() time.Time
}

// Deps lists the collaborators of the ledger
type Deps struct {
	Contracts  repositories.ContractRepository
	Subsidies  repositories.SubsidyRepository
	Catalog    repositories.CatalogRepository
	Config     repositories.ConfigRepository
	Identities repositories.IdentityResolver
	Publisher  events.Publisher
	Log        *logger.Logger
	ChunkSize  int
}

// NewService creates a ledger service
func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	chunk := d.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &Service{
		contracts:  d.Contracts,
		subsidies:  d.Subsidies,
		catalog:    d.Catalog,
		config:     d.Config,
		identities: d.Identities,
		publisher:  d.Publisher,
		log:        log.Named("ledger"),
		chunkSize:  chunk,
		now:        time.Now,
	}
}

func parseAmount(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil, entities.NewValidationError(entities.CodeInvalidSubsidyAmount, fmt.Sprintf("cannot parse amount %q", s))
	}
	if amount.IsNegative() {
		return nil, entities.NewValidationError(entities.CodeInvalidSubsidyAmount, fmt.Sprintf("amount cannot be negative, got %s", amount))
	}
	return &amount, nil
}

// Approve marks a contract's subsidy approved. A missing amount or reason
// keeps the stored value.
func (s *Service) Approve(ctx context.Context, id entities.ContractID, in dto.ReviewInput) (*entities.SubsidyRecord, error) {
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := s.contracts.GetContract(ctx, id); err != nil {
		return nil, err
	}

	var out *entities.SubsidyRecord
	changed := false
	err = s.subsidies.WithLock(ctx, id, func(rec *entities.SubsidyRecord) error {
		changed = rec.Approve(amount, in.Reason)
		out = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("approve contract %d: %w", id, err)
	}
	if changed {
		s.publish(events.ContractStream(id), events.SubsidyApprovedEvent, events.SubsidyReviewed{
			ContractID: id, Status: out.ReviewStatus, Amount: out.Amount, Reason: out.Reason,
		})
		s.log.Info("subsidy approved", "contract_id", id, "amount", out.Amount.String())
	}
	return out, nil
}

// Reject marks a contract's subsidy rejected. A non-empty reason is required.
func (s *Service) Reject(ctx context.Context, id entities.ContractID, in dto.ReviewInput) (*entities.SubsidyRecord, error) {
	if in.Reason == nil || strings.TrimSpace(*in.Reason) == "" {
		return nil, entities.NewValidationError(entities.CodeReasonRequired, "a reason is required to reject a subsidy")
	}
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := s.contracts.GetContract(ctx, id); err != nil {
		return nil, err
	}

	var out *entities.SubsidyRecord
	changed := false
	err = s.subsidies.WithLock(ctx, id, func(rec *entities.SubsidyRecord) error {
		var rerr error
		changed, rerr = rec.Reject(amount, *in.Reason)
		out = rec.Clone()
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("reject contract %d: %w", id, err)
	}
	if changed {
		s.publish(events.ContractStream(id), events.SubsidyRejectedEvent, events.SubsidyReviewed{
			ContractID: id, Status: out.ReviewStatus, Amount: out.Amount, Reason: out.Reason,
		})
		s.log.Info("subsidy rejected", "contract_id", id, "reason", out.Reason)
	}
	return out, nil
}

// ForceFit sets the fitting a contract counts as, or clears the override when fittingID is nil
func (s *Service) ForceFit(ctx context.Context, id entities.ContractID, fittingID *entities.FittingID) (*entities.SubsidyRecord, error) {
	if _, err := s.contracts.GetContract(ctx, id); err != nil {
		return nil, err
	}
	if fittingID != nil {
		if _, err := s.catalog.GetFitting(ctx, *fittingID); err != nil {
			return nil, err
		}
	}

	var out *entities.SubsidyRecord
	changed := false
	err := s.subsidies.WithLock(ctx, id, func(rec *entities.SubsidyRecord) error {
		changed = rec.ForceFitting(fittingID)
		out = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("force fit contract %d: %w", id, err)
	}
	if changed {
		s.publish(events.ContractStream(id), events.SubsidyForcedFitEvent, events.SubsidyForcedFit{
			ContractID: id, FittingID: out.ForcedFittingID,
		})
		s.log.Info("fitting override changed", "contract_id", id, "fitting_id", fittingID)
	}
	return out, nil
}

// subIdentities resolves a display identity; one with no sub-identities stands for itself
func (s *Service) subIdentities(ctx context.Context, display entities.IdentityID) ([]entities.IdentityID, error) {
	if display <= 0 {
		return nil, entities.NewValidationError(entities.CodeInvalidIdentity, fmt.Sprintf("identity id must be positive, got %d", display))
	}
	subs, err := s.identities.SubIdentities(ctx, display)
	if err != nil {
		return nil, fmt.Errorf("resolve sub-identities of %d: %w", display, err)
	}
	if len(subs) == 0 {
		subs = []entities.IdentityID{display}
	}
	return subs, nil
}

// BulkMarkPaid settles every approved, unpaid subsidy of a display identity.
// Exempt records with a positive amount settle as the negated amount. Each
// record is locked and re-checked on its own; a failing record is counted
// and does not stop the rest.
func (s *Service) BulkMarkPaid(ctx context.Context, display entities.IdentityID) (dto.BulkPayResult, error) {
	res := dto.BulkPayResult{DisplayID: display, Total: decimal.Zero}

	subs, err := s.subIdentities(ctx, display)
	if err != nil {
		return res, err
	}
	contracts, err := s.contracts.ListContracts(ctx, repositories.ContractFilter{IssuerIDs: subs})
	if err != nil {
		return res, fmt.Errorf("list contracts: %w", err)
	}
	if len(contracts) == 0 {
		return res, nil
	}
	ids := make([]entities.ContractID, 0, len(contracts))
	for _, c := range contracts {
		ids = append(ids, c.ID)
	}

	approved := entities.ReviewApproved
	unpaid := false
	for start := 0; start < len(ids); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		due, err := s.subsidies.ListSubsidies(ctx, repositories.SubsidyFilter{
			ContractIDs:  ids[start:end],
			ReviewStatus: &approved,
			Paid:         &unpaid,
		})
		if err != nil {
			return res, fmt.Errorf("list payable subsidies: %w", err)
		}
		for _, candidate := range due {
			s.payOne(ctx, candidate.ContractID, display, &res)
		}
	}

	s.log.Info("bulk mark paid",
		"display_id", display,
		"updated", res.Updated,
		"reversed", res.Reversed,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"total", res.Total.String(),
	)
	return res, nil
}

func (s *Service) payOne(ctx context.Context, id entities.ContractID, display entities.IdentityID, res *dto.BulkPayResult) {
	var changed, reversed bool
	var amount decimal.Decimal
	err := s.subsidies.WithLock(ctx, id, func(rec *entities.SubsidyRecord) error {
		changed, reversed = rec.MarkPaid()
		amount = rec.Amount
		return nil
	})
	switch {
	case err != nil:
		res.Failed++
		level := s.log.Error
		if errors.Is(err, entities.ErrConcurrencyConflict) {
			level = s.log.Warn
		}
		level("mark paid failed", "contract_id", id, "error", err)
	case !changed:
		// paid or unapproved between listing and locking
		res.Skipped++
	default:
		res.Updated++
		if reversed {
			res.Reversed++
		}
		res.Total = res.Total.Add(amount)
		s.publish(events.ContractStream(id), events.SubsidyPaidEvent, events.SubsidyPaid{
			ContractID: id, Amount: amount, Reversed: reversed, DisplayID: display,
		})
	}
}

// MarkWithdrawnExempt flags subsidies of contracts deleted before their
// expiry as exempt. Disabled when the config's deleted check is off.
func (s *Service) MarkWithdrawnExempt(ctx context.Context, now time.Time) (dto.StepResult, error) {
	res := dto.StepResult{Name: "mark_exempt"}
	cfg, err := s.config.Active(ctx)
	if err != nil {
		return res, fmt.Errorf("load config: %w", err)
	}
	if !cfg.DeletedCheck {
		s.log.Debug("deleted check disabled, skipping exemption marking")
		return res, nil
	}

	deleted, err := s.contracts.ListContracts(ctx, repositories.ContractFilter{
		Statuses: []entities.ContractStatus{entities.StatusDeleted},
	})
	if err != nil {
		return res, fmt.Errorf("list deleted contracts: %w", err)
	}
	var ids []entities.ContractID
	for _, c := range deleted {
		if c.WithdrawnBeforeExpiry(now) {
			ids = append(ids, c.ID)
		}
	}

	for start := 0; start < len(ids); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		notExempt, err := s.subsidies.ListSubsidies(ctx, repositories.SubsidyFilter{ContractIDs: chunk})
		if err != nil {
			res.Failed += len(chunk)
			s.log.Error("list subsidies for exemption failed", "error", err)
			continue
		}
		pending := make([]entities.ContractID, 0, len(notExempt))
		for _, rec := range notExempt {
			if rec.Exempt {
				res.Skipped++
				continue
			}
			pending = append(pending, rec.ContractID)
		}
		if len(pending) == 0 {
			continue
		}
		changed, err := s.subsidies.MarkExempt(ctx, pending)
		if err != nil {
			res.Failed += len(pending)
			s.log.Error("mark exempt failed", "error", err)
			continue
		}
		res.Updated += len(changed)
		res.Skipped += len(pending) - len(changed)
		for _, id := range changed {
			s.publish(events.ContractStream(id), events.SubsidyExemptedEvent, events.SubsidyExempted{ContractID: id})
		}
	}
	return res, nil
}

func (s *Service) publish(stream, eventType string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.AppendEvent(stream, events.NewEvent(eventType, stream, data)); err != nil {
		s.log.Warn("publish event failed", "event_type", eventType, "error", err)
	}
}
