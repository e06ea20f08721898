package shared

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	fixtures "github.com/vsinha/subsidy/pkg/infrastructure/testing"
)

func TestLoadSnapshot_FrigateScenario(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := fixtures.BuildFrigateStore(now)
	src := Sources{
		Catalog:   store.Catalog,
		Prices:    store.Prices,
		Contracts: store.Contracts,
		Subsidies: store.Subsidies,
		Stock:     store.Stock,
		Config:    store.Config,
	}

	forced := fixtures.RifterTackle
	_ = store.Subsidies.WithLock(ctx, 1002, func(rec *entities.SubsidyRecord) error {
		rec.ForceFitting(&forced)
		return nil
	})

	snap, err := LoadSnapshot(ctx, src, &repositories.ContractFilter{CorporationID: fixtures.Corporation}, nil)
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}

	if len(snap.Fittings) != 3 {
		t.Errorf("Expected 3 fittings, got %d", len(snap.Fittings))
	}
	if len(snap.Contracts) != 7 {
		t.Errorf("Expected 7 in-corporation contracts, got %d", len(snap.Contracts))
	}
	if !snap.Valuations[fixtures.RifterTackle].Basis.Equal(decimalOf(2_500_000)) {
		t.Errorf("Expected Rifter Tackle basis 2500000, got %s", snap.Valuations[fixtures.RifterTackle].Basis)
	}

	matches := snap.MatchAll()
	if matches[1002] != fixtures.RifterTackle {
		t.Errorf("Expected forced Rifter Tackle on 1002, got %d", matches[1002])
	}
	if matches[1004] != fixtures.RifterArmor {
		t.Errorf("Expected Rifter Armor on 1004, got %d", matches[1004])
	}
	if _, ok := matches[1007]; ok {
		t.Error("Expected bare hull contract to stay unmatched")
	}

	active := snap.ActiveLocations(nil)
	if len(active) != 3 {
		t.Errorf("Expected 3 active systems, got %d", len(active))
	}
	if got := snap.ActiveLocations([]entities.SystemID{fixtures.Amarr, fixtures.Dodixie}); len(got) != 1 {
		t.Errorf("Expected only Amarr when restricting to Amarr and inactive Dodixie, got %d", len(got))
	}
	if snap.TypeName(fixtures.Rifter) != "Rifter" || snap.TypeName(1) != "type 1" {
		t.Errorf("Expected type names to resolve with fallback")
	}
}

func TestLoadSnapshot_WithoutContracts(t *testing.T) {
	store := fixtures.BuildFrigateStore(time.Now())
	src := Sources{Catalog: store.Catalog, Prices: store.Prices, Config: store.Config}

	snap, err := LoadSnapshot(context.Background(), src, nil, nil)
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if len(snap.Contracts) != 0 || snap.Requests.Size() != 0 {
		t.Errorf("Expected catalog-only snapshot, got %d contracts and %d requests", len(snap.Contracts), snap.Requests.Size())
	}
	if len(snap.Valuations) != 3 {
		t.Errorf("Expected 3 valuations, got %d", len(snap.Valuations))
	}
}

func decimalOf(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
