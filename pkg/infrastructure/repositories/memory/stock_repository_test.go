package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
)

func TestStockRepository_Requests(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()

	created, _ := repo.EnsureRequests(ctx, []*entities.StockRequest{
		{FittingID: 1, SystemID: 100},
		{FittingID: 2, SystemID: 100},
	})
	if created != 2 {
		t.Errorf("Expected 2 created, got %d", created)
	}

	changed, _ := repo.SetRequested(ctx, 1, 100, 5)
	if !changed {
		t.Error("Expected requested change to be reported")
	}
	changed, _ = repo.SetRequested(ctx, 1, 100, 5)
	if changed {
		t.Error("Expected identical requested to be a no-op")
	}

	created, _ = repo.EnsureRequests(ctx, []*entities.StockRequest{{FittingID: 1, SystemID: 100}})
	if created != 0 {
		t.Errorf("Expected existing row to be kept, got %d created", created)
	}

	reqs, _ := repo.ListRequests(ctx)
	if len(reqs) != 2 || reqs[0].Requested != 5 {
		t.Errorf("Expected fitting 1 to keep requested 5, got %+v", reqs)
	}
}

func TestStockRepository_Claims(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()

	_ = repo.SaveClaim(ctx, &entities.Claim{FittingID: 1, IdentityID: 9, Quantity: 2})
	_ = repo.SaveClaim(ctx, &entities.Claim{FittingID: 1, IdentityID: 9, Quantity: 3})

	claims, _ := repo.ListClaims(ctx)
	if len(claims) != 1 || claims[0].Quantity != 3 {
		t.Fatalf("Expected one claim with quantity 3, got %+v", claims)
	}
	if claims[0].CreatedAt.IsZero() {
		t.Error("Expected created timestamp to be set")
	}

	existed, _ := repo.DeleteClaim(ctx, 1, 9)
	if !existed {
		t.Error("Expected delete to report an existing claim")
	}
	existed, _ = repo.DeleteClaim(ctx, 1, 9)
	if existed {
		t.Error("Expected second delete to report nothing removed")
	}
}

func TestContractRepository_Filter(t *testing.T) {
	ctx := context.Background()
	repo := NewContractRepository()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	_ = repo.LoadContracts(ctx, []*entities.Contract{
		{ID: 1, IssuerID: 10, CorporationID: 1, Status: entities.StatusOutstanding, DateIssued: base, Price: decimal.Zero},
		{ID: 2, IssuerID: 11, CorporationID: 1, Status: entities.StatusDeleted, DateIssued: base.Add(time.Hour), Price: decimal.Zero},
		{ID: 3, IssuerID: 10, CorporationID: 2, Status: entities.StatusOutstanding, DateIssued: base, Price: decimal.Zero},
	})

	tests := []struct {
		name     string
		filter   repositories.ContractFilter
		expected []entities.ContractID
	}{
		{"all", repositories.ContractFilter{}, []entities.ContractID{1, 3, 2}},
		{"corporation", repositories.ContractFilter{CorporationID: 1}, []entities.ContractID{1, 2}},
		{"status", repositories.ContractFilter{Statuses: []entities.ContractStatus{entities.StatusDeleted}}, []entities.ContractID{2}},
		{"issuer", repositories.ContractFilter{IssuerIDs: []entities.IdentityID{10}}, []entities.ContractID{1, 3}},
		{"window", repositories.ContractFilter{IssuedAfter: base.Add(time.Minute)}, []entities.ContractID{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := repo.ListContracts(ctx, tt.filter)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d contracts, got %d", len(tt.expected), len(got))
			}
			for i, c := range got {
				if c.ID != tt.expected[i] {
					t.Errorf("Expected contract %d at %d, got %d", tt.expected[i], i, c.ID)
				}
			}
		})
	}

	_, err := repo.GetContract(ctx, 42)
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestConfigRepository_AutoCreatesDefault(t *testing.T) {
	ctx := context.Background()
	repo := NewConfigRepository()

	cfg, _ := repo.Active(ctx)
	if cfg.RoundingIncrement != entities.DefaultRoundingIncrement {
		t.Errorf("Expected default increment, got %d", cfg.RoundingIncrement)
	}

	cfg.RoundingIncrement = 0
	if err := repo.Save(ctx, cfg); !entities.IsValidation(err, entities.CodeInvalidRoundingConfig) {
		t.Errorf("Expected invalid rounding error, got %v", err)
	}

	cfg.RoundingIncrement = 1_000_000
	_ = repo.Save(ctx, cfg)
	again, _ := repo.Active(ctx)
	if again.RoundingIncrement != 1_000_000 {
		t.Errorf("Expected saved increment 1000000, got %d", again.RoundingIncrement)
	}
}
