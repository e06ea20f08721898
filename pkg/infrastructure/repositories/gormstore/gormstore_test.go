package gormstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
	fixtures "github.com/vsinha/subsidy/pkg/infrastructure/testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open("sqlite", dsn, logger.Nop())
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db, logger.Nop())
}

func loadFrigates(t *testing.T, s *Store, now time.Time) {
	t.Helper()
	ctx := context.Background()
	if err := s.Catalog.LoadItemTypes(ctx, fixtures.FrigateItemTypes()); err != nil {
		t.Fatalf("Failed to load item types: %v", err)
	}
	if err := s.Catalog.LoadFittings(ctx, fixtures.FrigateFittings()); err != nil {
		t.Fatalf("Failed to load fittings: %v", err)
	}
	if err := s.Catalog.LoadDoctrines(ctx, fixtures.FrigateDoctrines()); err != nil {
		t.Fatalf("Failed to load doctrines: %v", err)
	}
	if err := s.Prices.LoadPrices(ctx, fixtures.FrigatePrices()); err != nil {
		t.Fatalf("Failed to load prices: %v", err)
	}
	if err := s.Stock.LoadLocations(ctx, fixtures.FrigateLocations()); err != nil {
		t.Fatalf("Failed to load locations: %v", err)
	}
	if _, err := s.Stock.EnsureRequests(ctx, fixtures.FrigateRequests()); err != nil {
		t.Fatalf("Failed to load requests: %v", err)
	}
	if err := s.Contracts.LoadContracts(ctx, fixtures.FrigateContracts(now)); err != nil {
		t.Fatalf("Failed to load contracts: %v", err)
	}
	if err := s.Identities.LoadIdentities(ctx, fixtures.FrigateIdentities()); err != nil {
		t.Fatalf("Failed to load identities: %v", err)
	}
}

func TestCatalogRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	loadFrigates(t, s, time.Now())

	fit, err := s.Catalog.GetFitting(ctx, fixtures.RifterTackle)
	if err != nil {
		t.Fatalf("Failed to get fitting: %v", err)
	}
	if fit.HullTypeID != fixtures.Rifter {
		t.Errorf("Expected hull %d, got %d", fixtures.Rifter, fit.HullTypeID)
	}
	if len(fit.Components) != 2 || fit.Components[0].TypeID != fixtures.WarpScrambler {
		t.Errorf("Expected components in load order, got %+v", fit.Components)
	}

	// reloading replaces the component list
	changed := fixtures.FrigateFittings()[0]
	changed.Components = changed.Components[1:]
	if err := s.Catalog.LoadFittings(ctx, []*entities.Fitting{changed}); err != nil {
		t.Fatalf("Failed to reload fitting: %v", err)
	}
	fit, _ = s.Catalog.GetFitting(ctx, fixtures.RifterTackle)
	if len(fit.Components) != 1 || fit.Components[0].TypeID != fixtures.StasisWeb {
		t.Errorf("Expected single web component after reload, got %+v", fit.Components)
	}

	doctrines, _ := s.Catalog.ListDoctrines(ctx)
	if len(doctrines) != 3 || doctrines[0].Name != "Armor Frigates" {
		t.Errorf("Expected doctrines ordered by name, got %d starting %q", len(doctrines), doctrines[0].Name)
	}

	item, _ := s.Catalog.GetItemType(ctx, fixtures.Rifter)
	v, ok := item.EffectiveVolume()
	if !ok || !v.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("Expected packaged volume 2500, got %s", v)
	}

	_, err = s.Catalog.GetFitting(ctx, 999)
	var nf *entities.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestContractRepo_Filter(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newTestStore(t)
	loadFrigates(t, s, now)

	tests := []struct {
		name     string
		filter   repositories.ContractFilter
		expected int
	}{
		{"all", repositories.ContractFilter{}, 8},
		{"corporation", repositories.ContractFilter{CorporationID: fixtures.Corporation}, 7},
		{"deleted", repositories.ContractFilter{Statuses: []entities.ContractStatus{entities.StatusDeleted}}, 1},
		{"issuer", repositories.ContractFilter{IssuerIDs: []entities.IdentityID{fixtures.AltPilot}}, 2},
		{"window", repositories.ContractFilter{IssuedAfter: now.Add(-48*time.Hour + 3*time.Minute + time.Second)}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Contracts.ListContracts(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Failed to list contracts: %v", err)
			}
			if len(got) != tt.expected {
				t.Errorf("Expected %d contracts, got %d", tt.expected, len(got))
			}
		})
	}

	c, err := s.Contracts.GetContract(ctx, 1002)
	if err != nil {
		t.Fatalf("Failed to get contract: %v", err)
	}
	if len(c.Items) != 4 || c.Items[3].TypeID != fixtures.ArmorPlate || c.Items[3].Quantity != 2 {
		t.Errorf("Expected four items ending with two plates, got %+v", c.Items)
	}
	if !c.Price.Equal(decimal.NewFromInt(4_000_000)) {
		t.Errorf("Expected price 4000000, got %s", c.Price)
	}
}

func TestPriceRepo_EnsureAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.Prices.EnsurePrices(ctx, []entities.TypeID{1, 2})
	if err != nil {
		t.Fatalf("Failed to ensure prices: %v", err)
	}
	if created != 2 {
		t.Errorf("Expected 2 created, got %d", created)
	}
	created, _ = s.Prices.EnsurePrices(ctx, []entities.TypeID{1, 2})
	if created != 0 {
		t.Errorf("Expected rerun to create nothing, got %d", created)
	}

	updated, err := s.Prices.UpdatePrices(ctx, []*entities.ItemPrice{
		{TypeID: 1, Buy: decimal.NewFromInt(90), Sell: decimal.NewFromInt(100), UpdatedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Failed to update prices: %v", err)
	}
	if updated != 1 {
		t.Errorf("Expected 1 updated, got %d", updated)
	}

	prices, _ := s.Prices.ListPrices(ctx)
	if len(prices) != 2 {
		t.Fatalf("Expected 2 prices, got %d", len(prices))
	}
	if !prices[0].Sell.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected sell 100, got %s", prices[0].Sell)
	}
	if !prices[1].Sell.IsZero() {
		t.Errorf("Expected seeded price to stay zero, got %s", prices[1].Sell)
	}
}

func TestSubsidyRepo_CreateMissingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.Subsidies.CreateMissing(ctx, []entities.ContractID{1, 2, 3})
	if err != nil {
		t.Fatalf("Failed to create records: %v", err)
	}
	if created != 3 {
		t.Errorf("Expected 3 created, got %d", created)
	}

	created, _ = s.Subsidies.CreateMissing(ctx, []entities.ContractID{2, 3, 4})
	if created != 1 {
		t.Errorf("Expected 1 created on rerun, got %d", created)
	}

	all, _ := s.Subsidies.ListSubsidies(ctx, repositories.SubsidyFilter{})
	if len(all) != 4 {
		t.Errorf("Expected 4 records, got %d", len(all))
	}
}

func TestSubsidyRepo_WithLock(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Subsidies.WithLock(ctx, 7, func(rec *entities.SubsidyRecord) error {
		amount := decimal.NewFromInt(250000)
		rec.Approve(&amount, nil)
		return nil
	})
	if err != nil {
		t.Fatalf("Expected lock to succeed: %v", err)
	}

	abort := errors.New("abort")
	err = s.Subsidies.WithLock(ctx, 7, func(rec *entities.SubsidyRecord) error {
		rec.Paid = true
		return abort
	})
	if !errors.Is(err, abort) {
		t.Errorf("Expected callback error to surface, got %v", err)
	}

	err = s.Subsidies.WithLock(ctx, 7, func(rec *entities.SubsidyRecord) error {
		_, err := rec.Reject(nil, "")
		return err
	})
	if !entities.IsValidation(err, entities.CodeReasonRequired) {
		t.Errorf("Expected validation error to pass through, got %v", err)
	}

	approved := entities.ReviewApproved
	recs, _ := s.Subsidies.ListSubsidies(ctx, repositories.SubsidyFilter{ReviewStatus: &approved})
	if len(recs) != 1 {
		t.Fatalf("Expected 1 approved record, got %d", len(recs))
	}
	if recs[0].Paid {
		t.Error("Expected failed callback not to persist changes")
	}
	if !recs[0].Amount.Equal(decimal.NewFromInt(250000)) {
		t.Errorf("Expected amount 250000, got %s", recs[0].Amount)
	}

	unpaid := false
	recs, _ = s.Subsidies.ListSubsidies(ctx, repositories.SubsidyFilter{Paid: &unpaid, ContractIDs: []entities.ContractID{7, 8}})
	if len(recs) != 1 {
		t.Errorf("Expected 1 unpaid record for contract 7, got %d", len(recs))
	}
}

func TestSubsidyRepo_MarkExempt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Subsidies.CreateMissing(ctx, []entities.ContractID{1, 2})

	changed, err := s.Subsidies.MarkExempt(ctx, []entities.ContractID{1, 99})
	if err != nil {
		t.Fatalf("Failed to mark exempt: %v", err)
	}
	if len(changed) != 1 || changed[0] != 1 {
		t.Errorf("Expected only contract 1 changed, got %v", changed)
	}
	changed, _ = s.Subsidies.MarkExempt(ctx, []entities.ContractID{1, 2})
	if len(changed) != 1 || changed[0] != 2 {
		t.Errorf("Expected already-exempt record to be skipped, got %v", changed)
	}
}

func TestStockRepo_RequestsAndClaims(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	loadFrigates(t, s, time.Now())

	loc, err := s.Stock.GetLocation(ctx, fixtures.Dodixie)
	if err != nil {
		t.Fatalf("Failed to get location: %v", err)
	}
	if loc.Active {
		t.Error("Expected Dodixie to stay inactive")
	}
	if len(loc.LocationIDs) != 1 || loc.LocationIDs[0] != fixtures.DodixieStation {
		t.Errorf("Expected Dodixie station, got %v", loc.LocationIDs)
	}

	changed, err := s.Stock.SetRequested(ctx, fixtures.RifterTackle, fixtures.Jita, 3)
	if err != nil {
		t.Fatalf("Failed to set requested: %v", err)
	}
	if changed {
		t.Error("Expected unchanged target not to report a change")
	}
	changed, _ = s.Stock.SetRequested(ctx, fixtures.RifterTackle, fixtures.Jita, 5)
	if !changed {
		t.Error("Expected new target to report a change")
	}
	changed, _ = s.Stock.SetRequested(ctx, fixtures.RifterArmor, fixtures.Amarr, 1)
	if !changed {
		t.Error("Expected missing request to be created")
	}

	requests, _ := s.Stock.ListRequests(ctx)
	if len(requests) != 5 {
		t.Fatalf("Expected 5 requests, got %d", len(requests))
	}
	if requests[0].SystemID != fixtures.Jita || requests[0].FittingID != fixtures.RifterTackle || requests[0].Requested != 5 {
		t.Errorf("Expected Rifter Tackle in Jita at 5 first, got %+v", requests[0])
	}

	claim := &entities.Claim{FittingID: fixtures.RifterTackle, IdentityID: fixtures.MainPilot, Quantity: 2}
	if err := s.Stock.SaveClaim(ctx, claim); err != nil {
		t.Fatalf("Failed to save claim: %v", err)
	}
	claim.Quantity = 4
	_ = s.Stock.SaveClaim(ctx, claim)
	claims, _ := s.Stock.ListClaims(ctx)
	if len(claims) != 1 || claims[0].Quantity != 4 {
		t.Errorf("Expected one claim of 4, got %+v", claims)
	}

	deleted, _ := s.Stock.DeleteClaim(ctx, fixtures.RifterTackle, fixtures.MainPilot)
	if !deleted {
		t.Error("Expected claim to be deleted")
	}
	deleted, _ = s.Stock.DeleteClaim(ctx, fixtures.RifterTackle, fixtures.MainPilot)
	if deleted {
		t.Error("Expected second delete to report nothing removed")
	}
}

func TestConfigRepo_ActiveAndSave(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cfg, err := s.Config.Active(ctx)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RoundingIncrement != entities.DefaultRoundingIncrement {
		t.Errorf("Expected default increment, got %d", cfg.RoundingIncrement)
	}
	if !cfg.DeletedCheck {
		t.Error("Expected default config to check deleted contracts")
	}

	cfg.PriceBasis = entities.BasisBuy
	cfg.RoundingIncrement = 100_000
	if err := s.Config.Save(ctx, cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	got, _ := s.Config.Active(ctx)
	if got.PriceBasis != entities.BasisBuy || got.RoundingIncrement != 100_000 {
		t.Errorf("Expected saved config, got %+v", got)
	}

	cfg.RoundingIncrement = 0
	err = s.Config.Save(ctx, cfg)
	if !entities.IsValidation(err, entities.CodeInvalidRoundingConfig) {
		t.Errorf("Expected rounding validation error, got %v", err)
	}
}

func TestIdentityRepo_Resolve(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	loadFrigates(t, s, time.Now())

	display, ok, err := s.Identities.DisplayIdentity(ctx, fixtures.AltPilot)
	if err != nil || !ok || display != fixtures.MainPilot {
		t.Errorf("Expected alt to resolve to main, got %d %v %v", display, ok, err)
	}
	_, ok, _ = s.Identities.DisplayIdentity(ctx, fixtures.SoloPilot)
	if ok {
		t.Error("Expected solo pilot to be unmapped")
	}

	subs, _ := s.Identities.SubIdentities(ctx, fixtures.MainPilot)
	if len(subs) != 2 || subs[0] != fixtures.MainPilot || subs[1] != fixtures.AltPilot {
		t.Errorf("Expected main and alt, got %v", subs)
	}
	subs, _ = s.Identities.SubIdentities(ctx, fixtures.SoloPilot)
	if len(subs) != 0 {
		t.Errorf("Expected no sub-identities for unmapped pilot, got %v", subs)
	}

	name, ok, _ := s.Identities.DisplayName(ctx, fixtures.AltPilot)
	if !ok || name != "Alt Pilot" {
		t.Errorf("Expected Alt Pilot, got %q", name)
	}
}
