package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
	"github.com/vsinha/subsidy/pkg/infrastructure/repositories/memory"
	fixtures "github.com/vsinha/subsidy/pkg/infrastructure/testing"
)

func newTestLedger(now time.Time) (*Service, *memory.Store, *events.InMemoryEventStore) {
	store := fixtures.BuildFrigateStore(now)
	bus := events.NewInMemoryEventStore(nil)
	svc := NewService(Deps{
		Contracts:  store.Contracts,
		Subsidies:  store.Subsidies,
		Catalog:    store.Catalog,
		Config:     store.Config,
		Identities: store.Identities,
		Publisher:  bus,
		ChunkSize:  2,
	})
	svc.now = func() time.Time { return now }
	return svc, store, bus
}

func str(s string) *string { return &s }

func isk(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func approveAll(t *testing.T, svc *Service, ids ...entities.ContractID) {
	t.Helper()
	for _, id := range ids {
		if _, err := svc.Approve(context.Background(), id, dto.ReviewInput{Amount: str("1000000")}); err != nil {
			t.Fatalf("Approve %d failed: %v", id, err)
		}
	}
}

func record(t *testing.T, store *memory.Store, id entities.ContractID) *entities.SubsidyRecord {
	t.Helper()
	recs, err := store.Subsidies.ListSubsidies(context.Background(), repositories.SubsidyFilter{ContractIDs: []entities.ContractID{id}})
	if err != nil {
		t.Fatalf("ListSubsidies failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected 1 record for contract %d, got %d", id, len(recs))
	}
	return recs[0]
}

func TestApprove(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, bus := newTestLedger(now)
	ctx := context.Background()

	rec, err := svc.Approve(ctx, 1001, dto.ReviewInput{Amount: str(" 1,250,000 "), Reason: str("looks good")})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if rec.ReviewStatus != entities.ReviewApproved {
		t.Errorf("Expected approved, got %s", rec.ReviewStatus)
	}
	if !rec.Amount.Equal(isk(1_250_000)) {
		t.Errorf("Expected amount 1250000, got %s", rec.Amount)
	}
	if stored := record(t, store, 1001); stored.Reason != "looks good" {
		t.Errorf("Expected stored reason, got %q", stored.Reason)
	}

	// same decision again changes nothing and publishes nothing
	if _, err := svc.Approve(ctx, 1001, dto.ReviewInput{Amount: str("1250000")}); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	evts, _ := bus.ReadEvents(events.ContractStream(1001), 0)
	if len(evts) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(evts))
	}
	if evts[0].Type() != events.SubsidyApprovedEvent {
		t.Errorf("Expected %s, got %s", events.SubsidyApprovedEvent, evts[0].Type())
	}

	// missing amount keeps the stored one
	rec, err = svc.Approve(ctx, 1001, dto.ReviewInput{})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if !rec.Amount.Equal(isk(1_250_000)) {
		t.Errorf("Expected amount kept at 1250000, got %s", rec.Amount)
	}
}

func TestReviewValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, _ := newTestLedger(now)
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func() error
		code    string
		missing bool
	}{
		{
			name: "reject without reason",
			run: func() error {
				_, err := svc.Reject(ctx, 1001, dto.ReviewInput{})
				return err
			},
			code: entities.CodeReasonRequired,
		},
		{
			name: "reject with blank reason",
			run: func() error {
				_, err := svc.Reject(ctx, 1001, dto.ReviewInput{Reason: str("   ")})
				return err
			},
			code: entities.CodeReasonRequired,
		},
		{
			name: "malformed amount",
			run: func() error {
				_, err := svc.Approve(ctx, 1001, dto.ReviewInput{Amount: str("lots")})
				return err
			},
			code: entities.CodeInvalidSubsidyAmount,
		},
		{
			name: "negative amount",
			run: func() error {
				_, err := svc.Approve(ctx, 1001, dto.ReviewInput{Amount: str("-5")})
				return err
			},
			code: entities.CodeInvalidSubsidyAmount,
		},
		{
			name: "unknown contract",
			run: func() error {
				_, err := svc.Approve(ctx, 4242, dto.ReviewInput{})
				return err
			},
			missing: true,
		},
		{
			name: "unknown fitting",
			run: func() error {
				id := entities.FittingID(99)
				_, err := svc.ForceFit(ctx, 1001, &id)
				return err
			},
			missing: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil {
				t.Fatalf("Expected error, got nil")
			}
			if tt.missing {
				if !errors.Is(err, entities.ErrNotFound) {
					t.Errorf("Expected not found, got %v", err)
				}
				return
			}
			if !entities.IsValidation(err, tt.code) {
				t.Errorf("Expected validation %s, got %v", tt.code, err)
			}
		})
	}

	recs, _ := store.Subsidies.ListSubsidies(ctx, repositories.SubsidyFilter{})
	if len(recs) != 0 {
		t.Errorf("Expected no records written by failed reviews, got %d", len(recs))
	}
}

func TestRejectAndForceFit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, bus := newTestLedger(now)
	ctx := context.Background()

	rec, err := svc.Reject(ctx, 1007, dto.ReviewInput{Reason: str("hull only")})
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rec.ReviewStatus != entities.ReviewRejected || rec.Reason != "hull only" {
		t.Errorf("Expected rejected with reason, got %s %q", rec.ReviewStatus, rec.Reason)
	}

	fit := fixtures.RifterArmor
	rec, err = svc.ForceFit(ctx, 1007, &fit)
	if err != nil {
		t.Fatalf("ForceFit failed: %v", err)
	}
	if rec.ForcedFittingID == nil || *rec.ForcedFittingID != fixtures.RifterArmor {
		t.Fatalf("Expected forced fitting %d, got %v", fixtures.RifterArmor, rec.ForcedFittingID)
	}
	if rec.ReviewStatus != entities.ReviewRejected {
		t.Errorf("Expected review status untouched, got %s", rec.ReviewStatus)
	}

	rec, err = svc.ForceFit(ctx, 1007, nil)
	if err != nil {
		t.Fatalf("ForceFit clear failed: %v", err)
	}
	if rec.ForcedFittingID != nil {
		t.Errorf("Expected override cleared, got %d", *rec.ForcedFittingID)
	}

	evts, _ := bus.ReadEvents(events.ContractStream(1007), 0)
	want := []string{events.SubsidyRejectedEvent, events.SubsidyForcedFitEvent, events.SubsidyForcedFitEvent}
	if len(evts) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(evts))
	}
	for i, e := range evts {
		if e.Type() != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], e.Type())
		}
	}
}

func TestMarkWithdrawnExempt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, _ := newTestLedger(now)
	ctx := context.Background()

	approveAll(t, svc, 1001, 1004)

	res, err := svc.MarkWithdrawnExempt(ctx, now)
	if err != nil {
		t.Fatalf("MarkWithdrawnExempt failed: %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("Expected 1 exempted, got %d", res.Updated)
	}
	if !record(t, store, 1004).Exempt {
		t.Errorf("Expected contract 1004 exempt")
	}
	if record(t, store, 1001).Exempt {
		t.Errorf("Expected contract 1001 not exempt")
	}

	res, err = svc.MarkWithdrawnExempt(ctx, now)
	if err != nil {
		t.Fatalf("MarkWithdrawnExempt failed: %v", err)
	}
	if res.Updated != 0 || res.Skipped != 1 {
		t.Errorf("Expected rerun to skip 1, got updated %d skipped %d", res.Updated, res.Skipped)
	}
}

// racingSubsidies flips records exempt right after handing out its listing,
// as a second worker would
type racingSubsidies struct {
	repositories.SubsidyRepository
}

func (r racingSubsidies) ListSubsidies(ctx context.Context, filter repositories.SubsidyFilter) ([]*entities.SubsidyRecord, error) {
	recs, err := r.SubsidyRepository.ListSubsidies(ctx, filter)
	if err != nil {
		return nil, err
	}
	if _, err := r.SubsidyRepository.MarkExempt(ctx, filter.ContractIDs); err != nil {
		return nil, err
	}
	return recs, nil
}

func TestMarkWithdrawnExemptConcurrentFlip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := fixtures.BuildFrigateStore(now)
	bus := events.NewInMemoryEventStore(nil)
	svc := NewService(Deps{
		Contracts:  store.Contracts,
		Subsidies:  racingSubsidies{store.Subsidies},
		Catalog:    store.Catalog,
		Config:     store.Config,
		Identities: store.Identities,
		Publisher:  bus,
	})
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	approveAll(t, svc, 1004)

	res, err := svc.MarkWithdrawnExempt(ctx, now)
	if err != nil {
		t.Fatalf("MarkWithdrawnExempt failed: %v", err)
	}
	if res.Updated != 0 || res.Skipped != 1 {
		t.Errorf("Expected the flipped record skipped, got updated %d skipped %d", res.Updated, res.Skipped)
	}
	evts, _ := bus.ReadEvents(events.ContractStream(1004), 0)
	for _, e := range evts {
		if e.Type() == events.SubsidyExemptedEvent {
			t.Errorf("Expected no exempted event for a record changed elsewhere")
		}
	}
}

func TestMarkWithdrawnExemptDisabled(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, _ := newTestLedger(now)
	ctx := context.Background()

	cfg := entities.DefaultValuationConfig()
	cfg.DeletedCheck = false
	if err := store.Config.Save(ctx, cfg); err != nil {
		t.Fatalf("Save config failed: %v", err)
	}
	approveAll(t, svc, 1004)

	res, err := svc.MarkWithdrawnExempt(ctx, now)
	if err != nil {
		t.Fatalf("MarkWithdrawnExempt failed: %v", err)
	}
	if res.Updated != 0 {
		t.Errorf("Expected nothing exempted, got %d", res.Updated)
	}
	if record(t, store, 1004).Exempt {
		t.Errorf("Expected contract 1004 not exempt")
	}
}

func TestBulkMarkPaid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, bus := newTestLedger(now)
	ctx := context.Background()

	approveAll(t, svc, 1001, 1002, 1003, 1004)
	if _, err := svc.Reject(ctx, 1005, dto.ReviewInput{Reason: str("expired")}); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if _, err := svc.MarkWithdrawnExempt(ctx, now); err != nil {
		t.Fatalf("MarkWithdrawnExempt failed: %v", err)
	}

	res, err := svc.BulkMarkPaid(ctx, fixtures.MainPilot)
	if err != nil {
		t.Fatalf("BulkMarkPaid failed: %v", err)
	}
	if res.Updated != 3 {
		t.Errorf("Expected 3 updated, got %d", res.Updated)
	}
	if res.Reversed != 1 {
		t.Errorf("Expected 1 reversed, got %d", res.Reversed)
	}
	if res.Failed != 0 {
		t.Errorf("Expected 0 failed, got %d", res.Failed)
	}
	if !res.Total.Equal(isk(1_000_000)) {
		t.Errorf("Expected total 1000000, got %s", res.Total)
	}

	if got := record(t, store, 1004).Amount; !got.Equal(isk(-1_000_000)) {
		t.Errorf("Expected exempt amount flipped to -1000000, got %s", got)
	}
	if rec := record(t, store, 1005); rec.Paid {
		t.Errorf("Expected rejected contract to stay unpaid")
	}
	if rec := record(t, store, 1003); rec.Paid {
		t.Errorf("Expected other identity's contract to stay unpaid")
	}

	evts, _ := bus.ReadEvents(events.ContractStream(1004), 0)
	last := evts[len(evts)-1]
	paid, ok := last.Data().(events.SubsidyPaid)
	if !ok || !paid.Reversed || paid.DisplayID != fixtures.MainPilot {
		t.Errorf("Expected reversed paid event for main, got %#v", last.Data())
	}

	res, err = svc.BulkMarkPaid(ctx, fixtures.MainPilot)
	if err != nil {
		t.Fatalf("BulkMarkPaid rerun failed: %v", err)
	}
	if res.Updated != 0 || !res.Total.IsZero() {
		t.Errorf("Expected rerun to change nothing, got %d updated total %s", res.Updated, res.Total)
	}
}

func TestBulkMarkPaidUnmappedIdentity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, _ := newTestLedger(now)
	ctx := context.Background()

	approveAll(t, svc, 1003, 1006)

	res, err := svc.BulkMarkPaid(ctx, fixtures.SoloPilot)
	if err != nil {
		t.Fatalf("BulkMarkPaid failed: %v", err)
	}
	if res.Updated != 2 {
		t.Errorf("Expected 2 updated, got %d", res.Updated)
	}
	if !record(t, store, 1006).Paid {
		t.Errorf("Expected contract 1006 paid")
	}

	if _, err := svc.BulkMarkPaid(ctx, 0); !entities.IsValidation(err, entities.CodeInvalidIdentity) {
		t.Errorf("Expected invalid identity, got %v", err)
	}
}

func TestBulkMarkPaidConcurrent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, _ := newTestLedger(now)
	ctx := context.Background()

	approveAll(t, svc, 1001, 1002, 1004)
	if _, err := svc.MarkWithdrawnExempt(ctx, now); err != nil {
		t.Fatalf("MarkWithdrawnExempt failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]dto.BulkPayResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.BulkMarkPaid(ctx, fixtures.MainPilot)
			if err != nil {
				t.Errorf("BulkMarkPaid failed: %v", err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	updated, reversed := 0, 0
	for _, r := range results {
		updated += r.Updated
		reversed += r.Reversed
	}
	if updated != 3 {
		t.Errorf("Expected 3 updates across runs, got %d", updated)
	}
	if reversed != 1 {
		t.Errorf("Expected exempt record reversed once, got %d", reversed)
	}
	if got := record(t, store, 1004).Amount; !got.Equal(isk(-1_000_000)) {
		t.Errorf("Expected -1000000 after concurrent runs, got %s", got)
	}
}
