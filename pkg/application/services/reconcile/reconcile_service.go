package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/application/services/ledger"
	"github.com/vsinha/subsidy/pkg/application/services/shared"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// DefaultChunkSize bounds the ids written per repository call
const DefaultChunkSize = 1000

// Step names reported by Run
const (
	StepImportSubsidies = "import_subsidies"
	StepMarkExempt      = "mark_exempt"
	StepSeedRequests    = "seed_requests"
	StepSeedPrices      = "seed_prices"
	StepRefreshPrices   = "request_price_refresh"
)

// Deps lists the collaborators of a reconciliation pass
type Deps struct {
	Catalog          repositories.CatalogRepository
	Prices           repositories.PriceRepository
	Contracts        repositories.ContractRepository
	Subsidies        repositories.SubsidyRepository
	Stock            repositories.StockRepository
	Config           repositories.ConfigRepository
	Ledger           *ledger.Service
	Publisher        events.Publisher
	Log              *logger.Logger
	ChunkSize        int
	DefaultRequested int64
}

// Service brings derived rows in line with the synced catalog and contracts
type Service struct {
	deps      Deps
	log       *logger.Logger
	chunkSize int
	now       func() time.Time
}

// NewService creates a reconciliation service
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
		deps:      d,
		log:       log.Named("reconcile"),
		chunkSize: chunk,
		now:       time.Now,
	}
}

type step struct {
	name string
	run  func(ctx context.Context, now time.Time) (dto.StepResult, error)
}

// Run executes every step in order. A failing step is recorded on the
// report and the remaining steps still run.
func (s *Service) Run(ctx context.Context) dto.ReconcileReport {
	now := s.now()
	report := dto.ReconcileReport{RunID: uuid.NewString(), StartedAt: now}
	log := s.log.With("run_id", report.RunID)

	steps := []step{
		{StepImportSubsidies, s.ImportSubsidies},
		{StepMarkExempt, s.markExempt},
		{StepSeedRequests, s.SeedRequests},
		{StepSeedPrices, s.SeedPrices},
		{StepRefreshPrices, s.requestRefresh},
	}
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			report.Steps = append(report.Steps, dto.StepResult{Name: st.name, Err: err})
			continue
		}
		res, err := st.run(ctx, now)
		res.Name = st.name
		if err != nil {
			res.Err = err
			log.Error("reconcile step failed", "step", st.name, "error", err)
		} else {
			log.Info("reconcile step done",
				"step", st.name,
				"created", res.Created,
				"updated", res.Updated,
				"skipped", res.Skipped,
				"failed", res.Failed,
			)
		}
		report.Steps = append(report.Steps, res)
	}
	report.FinishedAt = s.now()

	if s.deps.Publisher != nil {
		evt := events.NewEvent(events.ReconcileCompletedEvent, events.ReconcileStream, events.ReconcileCompleted{
			RunID: report.RunID,
			Steps: len(report.Steps),
		})
		if err := s.deps.Publisher.AppendEvent(events.ReconcileStream, evt); err != nil {
			log.Warn("publish event failed", "event_type", events.ReconcileCompletedEvent, "error", err)
		}
	}
	return report
}

func chunks[T any](ids []T, size int, fn func([]T) error) error {
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// ImportSubsidies creates a pending subsidy record for every contract of
// the configured corporation that has none
func (s *Service) ImportSubsidies(ctx context.Context, _ time.Time) (dto.StepResult, error) {
	var res dto.StepResult
	cfg, err := s.deps.Config.Active(ctx)
	if err != nil {
		return res, fmt.Errorf("load config: %w", err)
	}
	contracts, err := s.deps.Contracts.ListContracts(ctx, repositories.ContractFilter{CorporationID: cfg.CorporationID})
	if err != nil {
		return res, fmt.Errorf("list contracts: %w", err)
	}
	ids := make([]entities.ContractID, 0, len(contracts))
	for _, c := range contracts {
		ids = append(ids, c.ID)
	}
	err = chunks(ids, s.chunkSize, func(batch []entities.ContractID) error {
		created, err := s.deps.Subsidies.CreateMissing(ctx, batch)
		if err != nil {
			res.Failed += len(batch)
			return fmt.Errorf("create subsidy records: %w", err)
		}
		res.Created += created
		res.Skipped += len(batch) - created
		return nil
	})
	return res, err
}

func (s *Service) markExempt(ctx context.Context, now time.Time) (dto.StepResult, error) {
	if s.deps.Ledger == nil {
		return dto.StepResult{}, nil
	}
	return s.deps.Ledger.MarkWithdrawnExempt(ctx, now)
}

// SeedRequests creates a stock request with the default quantity for every
// fitting and active system pair that has none. Existing rows are untouched.
func (s *Service) SeedRequests(ctx context.Context, _ time.Time) (dto.StepResult, error) {
	var res dto.StepResult
	snap, err := shared.LoadSnapshot(ctx, shared.Sources{
		Catalog: s.deps.Catalog,
		Prices:  s.deps.Prices,
		Stock:   s.deps.Stock,
		Config:  s.deps.Config,
	}, nil, nil)
	if err != nil {
		return res, err
	}
	active := snap.ActiveLocations(nil)
	missing := snap.Requests.Missing(snap.Fittings, active)
	for _, r := range missing {
		r.Requested = s.deps.DefaultRequested
	}
	res.Skipped = len(snap.Fittings)*len(active) - len(missing)

	err = chunks(missing, s.chunkSize, func(batch []*entities.StockRequest) error {
		created, err := s.deps.Stock.EnsureRequests(ctx, batch)
		if err != nil {
			res.Failed += len(batch)
			return fmt.Errorf("ensure stock requests: %w", err)
		}
		res.Created += created
		res.Skipped += len(batch) - created
		return nil
	})
	return res, err
}

// knownTypeIDs returns every item type, hull and component id, ascending
func (s *Service) knownTypeIDs(ctx context.Context) ([]entities.TypeID, error) {
	types, err := s.deps.Catalog.ListItemTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list item types: %w", err)
	}
	fittings, err := s.deps.Catalog.ListFittings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fittings: %w", err)
	}
	seen := make(map[entities.TypeID]bool, len(types))
	for _, t := range types {
		seen[t.ID] = true
	}
	for _, f := range fittings {
		seen[f.HullTypeID] = true
		for _, c := range f.Components {
			seen[c.TypeID] = true
		}
	}
	ids := make([]entities.TypeID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SeedPrices creates a zero price row for every known type that has none
func (s *Service) SeedPrices(ctx context.Context, _ time.Time) (dto.StepResult, error) {
	var res dto.StepResult
	ids, err := s.knownTypeIDs(ctx)
	if err != nil {
		return res, err
	}
	err = chunks(ids, s.chunkSize, func(batch []entities.TypeID) error {
		created, err := s.deps.Prices.EnsurePrices(ctx, batch)
		if err != nil {
			res.Failed += len(batch)
			return fmt.Errorf("ensure prices: %w", err)
		}
		res.Created += created
		res.Skipped += len(batch) - created
		return nil
	})
	return res, err
}

// requestRefresh asks the price refresher to update every known type
func (s *Service) requestRefresh(ctx context.Context, _ time.Time) (dto.StepResult, error) {
	var res dto.StepResult
	if s.deps.Publisher == nil {
		res.Skipped = 1
		return res, nil
	}
	ids, err := s.knownTypeIDs(ctx)
	if err != nil {
		return res, err
	}
	evt := events.NewEvent(events.PricesRefreshRequestedEvent, events.PriceStream, events.PricesRefreshRequested{TypeIDs: ids})
	if err := s.deps.Publisher.AppendEvent(events.PriceStream, evt); err != nil {
		res.Failed = 1
		return res, fmt.Errorf("publish refresh request: %w", err)
	}
	res.Created = 1
	return res, nil
}
