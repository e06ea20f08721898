package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/application/services/ledger"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
	"github.com/vsinha/subsidy/pkg/infrastructure/repositories/memory"
	fixtures "github.com/vsinha/subsidy/pkg/infrastructure/testing"
)

type harness struct {
	svc       *Service
	store     *memory.Store
	bus       *events.InMemoryEventStore
	feed      *memory.StaticPriceFeed
	refresher *PriceRefresher
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	store := fixtures.BuildFrigateStore(now)
	bus := events.NewInMemoryEventStore(nil)
	feed := memory.NewStaticPriceFeed(map[entities.TypeID]entities.Quote{
		fixtures.Rifter: {Buy: decimal.NewFromInt(460_000), Sell: decimal.NewFromInt(510_000)},
	})
	refresher := NewPriceRefresher(store.Prices, feed, bus, nil, 2)
	if err := refresher.Subscribe(bus); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	led := ledger.NewService(ledger.Deps{
		Contracts:  store.Contracts,
		Subsidies:  store.Subsidies,
		Catalog:    store.Catalog,
		Config:     store.Config,
		Identities: store.Identities,
		Publisher:  bus,
		ChunkSize:  2,
	})
	svc := NewService(Deps{
		Catalog:          store.Catalog,
		Prices:           store.Prices,
		Contracts:        store.Contracts,
		Subsidies:        store.Subsidies,
		Stock:            store.Stock,
		Config:           store.Config,
		Ledger:           led,
		Publisher:        bus,
		ChunkSize:        2,
		DefaultRequested: 2,
	})
	svc.now = func() time.Time { return now }
	return &harness{svc: svc, store: store, bus: bus, feed: feed, refresher: refresher}
}

func stepByName(t *testing.T, report dto.ReconcileReport, name string) dto.StepResult {
	t.Helper()
	for _, s := range report.Steps {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("Expected step %s in report", name)
	return dto.StepResult{}
}

func TestRun(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	report := h.svc.Run(ctx)
	h.bus.Wait()

	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("Expected uuid run id, got %q", report.RunID)
	}
	if report.Failed() {
		t.Fatalf("Expected no failed steps, got %+v", report.Steps)
	}
	if len(report.Steps) != 5 {
		t.Fatalf("Expected 5 steps, got %d", len(report.Steps))
	}

	tests := []struct {
		step    string
		created int
		updated int
		skipped int
	}{
		// 1008 belongs to another corporation
		{StepImportSubsidies, 7, 0, 0},
		{StepMarkExempt, 0, 1, 0},
		// 3 fittings x 3 active systems, 4 rows already present
		{StepSeedRequests, 5, 0, 4},
		{StepSeedPrices, 0, 0, 5},
		{StepRefreshPrices, 1, 0, 0},
	}
	for _, tt := range tests {
		got := stepByName(t, report, tt.step)
		if got.Created != tt.created || got.Updated != tt.updated || got.Skipped != tt.skipped {
			t.Errorf("%s: expected created/updated/skipped %d/%d/%d, got %d/%d/%d",
				tt.step, tt.created, tt.updated, tt.skipped, got.Created, got.Updated, got.Skipped)
		}
	}

	recs, _ := h.store.Subsidies.ListSubsidies(ctx, repositories.SubsidyFilter{})
	if len(recs) != 7 {
		t.Fatalf("Expected 7 subsidy records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.ReviewStatus != entities.ReviewPending {
			t.Errorf("Contract %d: expected pending, got %s", r.ContractID, r.ReviewStatus)
		}
		if r.Exempt != (r.ContractID == 1004) {
			t.Errorf("Contract %d: unexpected exempt=%v", r.ContractID, r.Exempt)
		}
	}

	requests, _ := h.store.Stock.ListRequests(ctx)
	got := make(map[[2]int64]int64)
	for _, r := range requests {
		got[[2]int64{int64(r.FittingID), int64(r.SystemID)}] = r.Requested
	}
	if got[[2]int64{int64(fixtures.RifterTackle), int64(fixtures.Amarr)}] != 2 {
		t.Errorf("Expected seeded request of 2 in Amarr")
	}
	if got[[2]int64{int64(fixtures.RifterTackle), int64(fixtures.Jita)}] != 3 {
		t.Errorf("Expected existing Jita request kept at 3")
	}
	if _, ok := got[[2]int64{int64(fixtures.RifterTackle), int64(fixtures.Dodixie)}]; ok {
		t.Errorf("Expected no request seeded for inactive system")
	}

	prices, _ := h.store.Prices.ListPrices(ctx)
	for _, p := range prices {
		switch p.TypeID {
		case fixtures.Rifter:
			if !p.Sell.Equal(decimal.NewFromInt(510_000)) {
				t.Errorf("Expected refreshed Rifter sell 510000, got %s", p.Sell)
			}
		default:
			if !p.Sell.IsZero() {
				t.Errorf("Type %d: expected unquoted price zeroed, got %s", p.TypeID, p.Sell)
			}
		}
	}

	done, _ := h.bus.ReadEvents(events.ReconcileStream, 0)
	if len(done) != 1 {
		t.Fatalf("Expected 1 completion event, got %d", len(done))
	}
	if payload := done[0].Data().(events.ReconcileCompleted); payload.RunID != report.RunID {
		t.Errorf("Expected completion for run %s, got %s", report.RunID, payload.RunID)
	}
}

func TestRunIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	h.svc.Run(ctx)
	h.bus.Wait()
	report := h.svc.Run(ctx)
	h.bus.Wait()

	for _, name := range []string{StepImportSubsidies, StepMarkExempt, StepSeedRequests, StepSeedPrices} {
		s := stepByName(t, report, name)
		if s.Created != 0 || s.Updated != 0 {
			t.Errorf("%s: expected no changes on rerun, got created %d updated %d", name, s.Created, s.Updated)
		}
	}
	if s := stepByName(t, report, StepImportSubsidies); s.Skipped != 7 {
		t.Errorf("Expected 7 skipped imports, got %d", s.Skipped)
	}
	if s := stepByName(t, report, StepSeedRequests); s.Skipped != 9 {
		t.Errorf("Expected 9 skipped requests, got %d", s.Skipped)
	}
}

func TestSeedPricesNewType(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	probe := &entities.ItemType{ID: 999, Name: "Probe"}
	if err := h.store.Catalog.LoadItemTypes(ctx, []*entities.ItemType{probe}); err != nil {
		t.Fatalf("LoadItemTypes failed: %v", err)
	}
	res, err := h.svc.SeedPrices(ctx, now)
	if err != nil {
		t.Fatalf("SeedPrices failed: %v", err)
	}
	if res.Created != 1 {
		t.Errorf("Expected 1 price row created, got %d", res.Created)
	}
}

func TestRunCancelled(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := h.svc.Run(ctx)
	if len(report.Steps) != 5 {
		t.Fatalf("Expected every step reported, got %d", len(report.Steps))
	}
	for _, s := range report.Steps {
		if !errors.Is(s.Err, context.Canceled) {
			t.Errorf("%s: expected context canceled, got %v", s.Name, s.Err)
		}
	}
	if !report.Failed() {
		t.Errorf("Expected report to be failed")
	}
}
