package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/application/services/shared"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/infrastructure/repositories/memory"
	fixtures "github.com/vsinha/subsidy/pkg/infrastructure/testing"
)

func newTestReview(t *testing.T, now time.Time, imported ...entities.ContractID) (*Service, *memory.Store) {
	t.Helper()
	store := fixtures.BuildFrigateStore(now)
	if _, err := store.Subsidies.CreateMissing(context.Background(), imported); err != nil {
		t.Fatalf("CreateMissing failed: %v", err)
	}
	src := shared.Sources{
		Catalog:   store.Catalog,
		Prices:    store.Prices,
		Contracts: store.Contracts,
		Subsidies: store.Subsidies,
		Stock:     store.Stock,
		Config:    store.Config,
	}
	return NewService(src, store.Identities, nil), store
}

func window(now time.Time) dto.Scope {
	return dto.Scope{Start: now.Add(-30 * 24 * time.Hour), End: now}
}

func isk(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func rowFor(t *testing.T, rows []dto.ReviewRow, id entities.ContractID) dto.ReviewRow {
	t.Helper()
	for _, r := range rows {
		if r.ContractID == id {
			return r
		}
	}
	t.Fatalf("Expected review row for contract %d", id)
	return dto.ReviewRow{}
}

func TestReviewQueue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store := newTestReview(t, now, 1001, 1002, 1003, 1004, 1006, 1007, 1008)
	ctx := context.Background()

	err := store.Subsidies.WithLock(ctx, 1003, func(rec *entities.SubsidyRecord) error {
		amount := isk(750_000)
		rec.Approve(&amount, nil)
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock failed: %v", err)
	}

	rows, err := svc.ReviewQueue(ctx, window(now))
	if err != nil {
		t.Fatalf("ReviewQueue failed: %v", err)
	}

	// 1005 was never imported and 1008 belongs to another corporation
	want := []entities.ContractID{1007, 1006, 1004, 1003, 1002, 1001}
	if len(rows) != len(want) {
		t.Fatalf("Expected %d rows, got %d", len(want), len(rows))
	}
	for i, id := range want {
		if rows[i].ContractID != id {
			t.Errorf("Row %d: expected contract %d, got %d", i, id, rows[i].ContractID)
		}
	}

	alt := rowFor(t, rows, 1002)
	if alt.Issuer != "Main Pilot (Alt Pilot)" {
		t.Errorf("Expected issuer Main Pilot (Alt Pilot), got %q", alt.Issuer)
	}
	if len(alt.MatchedNames) != 2 || alt.MatchedNames[0] != "Rifter Armor" || alt.MatchedNames[1] != "Rifter Tackle" {
		t.Errorf("Expected both Rifter fits matched, got %v", alt.MatchedNames)
	}
	if alt.FittingID == nil || *alt.FittingID != fixtures.RifterArmor {
		t.Fatalf("Expected cheapest fit Rifter Armor, got %v", alt.FittingID)
	}
	if !alt.Basis.Equal(isk(1_250_000)) {
		t.Errorf("Expected basis 1250000, got %s", alt.Basis)
	}
	if !alt.PctOfBasis.Equal(decimal.RequireFromString("320")) {
		t.Errorf("Expected 320%% of basis, got %s", alt.PctOfBasis)
	}
	if !alt.PrefillAmount.Equal(isk(1_000_000)) {
		t.Errorf("Expected prefill from suggested subsidy, got %s", alt.PrefillAmount)
	}

	main := rowFor(t, rows, 1001)
	if main.Issuer != "Main Pilot" {
		t.Errorf("Expected issuer Main Pilot, got %q", main.Issuer)
	}
	if !main.PctOfBasis.Equal(decimal.RequireFromString("120")) {
		t.Errorf("Expected 120%% of basis, got %s", main.PctOfBasis)
	}

	solo := rowFor(t, rows, 1003)
	if solo.Issuer != "Solo Pilot" {
		t.Errorf("Expected unmapped issuer shown as itself, got %q", solo.Issuer)
	}
	if solo.ReviewStatus != entities.ReviewApproved {
		t.Errorf("Expected approved, got %s", solo.ReviewStatus)
	}
	if !solo.PrefillAmount.Equal(isk(750_000)) {
		t.Errorf("Expected prefill from stored amount, got %s", solo.PrefillAmount)
	}

	bare := rowFor(t, rows, 1007)
	if bare.FittingID != nil || len(bare.MatchedNames) != 0 {
		t.Errorf("Expected no match for bare hull, got %v %v", bare.FittingID, bare.MatchedNames)
	}
	if !bare.PctOfBasis.IsZero() || !bare.Suggested.IsZero() {
		t.Errorf("Expected zero pct and suggestion without basis, got %s %s", bare.PctOfBasis, bare.Suggested)
	}
}

func TestReviewQueueForcedFit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store := newTestReview(t, now, 1007)
	ctx := context.Background()

	fit := fixtures.RifterTackle
	err := store.Subsidies.WithLock(ctx, 1007, func(rec *entities.SubsidyRecord) error {
		rec.ForceFitting(&fit)
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock failed: %v", err)
	}

	rows, err := svc.ReviewQueue(ctx, window(now))
	if err != nil {
		t.Fatalf("ReviewQueue failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if !row.Forced || row.FittingName != "Rifter Tackle" {
		t.Errorf("Expected forced Rifter Tackle, got forced=%v %q", row.Forced, row.FittingName)
	}
	if !row.PctOfBasis.Equal(decimal.RequireFromString("20")) {
		t.Errorf("Expected 20%% of basis, got %s", row.PctOfBasis)
	}
}

func TestValuationFor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestReview(t, now)
	ctx := context.Background()

	tests := []struct {
		id       entities.FittingID
		basis    int64
		subsidy  int64
		purchase int64
	}{
		{fixtures.RifterTackle, 2_500_000, 1_000_000, 3_500_000},
		{fixtures.RifterArmor, 1_250_000, 1_000_000, 2_250_000},
		{fixtures.SlasherTackle, 1_500_000, 1_000_000, 2_500_000},
	}
	for _, tt := range tests {
		v, err := svc.ValuationFor(ctx, tt.id)
		if err != nil {
			t.Fatalf("ValuationFor %d failed: %v", tt.id, err)
		}
		if !v.Basis.Equal(isk(tt.basis)) {
			t.Errorf("%s: expected basis %d, got %s", v.FittingName, tt.basis, v.Basis)
		}
		if !v.Subsidy.Equal(isk(tt.subsidy)) {
			t.Errorf("%s: expected subsidy %d, got %s", v.FittingName, tt.subsidy, v.Subsidy)
		}
		if !v.PurchasePrice.Equal(isk(tt.purchase)) {
			t.Errorf("%s: expected purchase price %d, got %s", v.FittingName, tt.purchase, v.PurchasePrice)
		}
	}

	if _, err := svc.ValuationFor(ctx, 99); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestMatchAll(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestReview(t, now)

	got, err := svc.MatchAll(context.Background(), window(now))
	if err != nil {
		t.Fatalf("MatchAll failed: %v", err)
	}
	want := map[entities.ContractID]entities.FittingID{
		1001: fixtures.RifterTackle,
		1002: fixtures.RifterArmor,
		1003: fixtures.SlasherTackle,
		1004: fixtures.RifterArmor,
		1005: fixtures.RifterTackle,
		1006: fixtures.SlasherTackle,
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d matches, got %d: %v", len(want), len(got), got)
	}
	for id, fid := range want {
		if got[id] != fid {
			t.Errorf("Contract %d: expected fitting %d, got %d", id, fid, got[id])
		}
	}
}
