package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/application/services/ledger"
	"github.com/vsinha/subsidy/pkg/application/services/reconcile"
	"github.com/vsinha/subsidy/pkg/application/services/review"
	"github.com/vsinha/subsidy/pkg/application/services/shared"
	"github.com/vsinha/subsidy/pkg/application/services/stock"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
	fixtures "github.com/vsinha/subsidy/pkg/infrastructure/testing"
	"github.com/vsinha/subsidy/pkg/interfaces/cli/output"
)

// Walks the frigate fleet through one review and payment cycle
func main() {
	ctx := context.Background()
	now := time.Now().UTC()
	log := logger.Nop()

	store := fixtures.BuildFrigateStore(now)
	src := shared.Sources{
		Catalog:   store.Catalog,
		Prices:    store.Prices,
		Contracts: store.Contracts,
		Subsidies: store.Subsidies,
		Stock:     store.Stock,
		Config:    store.Config,
	}

	ledgerSvc := ledger.NewService(ledger.Deps{
		Contracts:  store.Contracts,
		Subsidies:  store.Subsidies,
		Catalog:    store.Catalog,
		Config:     store.Config,
		Identities: store.Identities,
		Log:        log,
	})
	reconciler := reconcile.NewService(reconcile.Deps{
		Catalog:   store.Catalog,
		Prices:    store.Prices,
		Contracts: store.Contracts,
		Subsidies: store.Subsidies,
		Stock:     store.Stock,
		Config:    store.Config,
		Ledger:    ledgerSvc,
		Log:       log,
	})
	stockSvc := stock.NewService(src, store.Identities, log)
	reviewSvc := review.NewService(src, store.Identities, log)

	show := func(r output.Report) {
		if err := output.Generate(r, output.Config{Format: "text", Writer: os.Stdout}); err != nil {
			fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		}
	}

	show(output.ReconcileReport(reconciler.Run(ctx)))

	scope := dto.Scope{
		Start:     now.AddDate(0, 0, -30),
		End:       now,
		Now:       now,
		SystemIDs: []entities.SystemID{fixtures.Jita},
		ViewerID:  fixtures.MainPilot,
	}
	summary, err := stockSvc.DoctrineStockSummary(ctx, scope)
	if err != nil {
		fmt.Printf("stock summary failed: %v\n", err)
		return
	}
	show(output.StockReport(summary))

	scope.SystemIDs = nil
	queue, err := reviewSvc.ReviewQueue(ctx, scope)
	if err != nil {
		fmt.Printf("review queue failed: %v\n", err)
		return
	}
	show(output.ReviewReport(queue))

	// approve everything at the suggested amount
	for _, row := range queue {
		amount := row.Suggested.String()
		if _, err := ledgerSvc.Approve(ctx, row.ContractID, dto.ReviewInput{Amount: &amount}); err != nil {
			fmt.Printf("approve %d failed: %v\n", row.ContractID, err)
		}
	}

	paid, err := ledgerSvc.BulkMarkPaid(ctx, fixtures.MainPilot)
	if err != nil {
		fmt.Printf("mark paid failed: %v\n", err)
		return
	}
	show(output.BulkPayReport(paid))

	payments, err := ledgerSvc.AggregatePaymentsToMain(ctx)
	if err != nil {
		fmt.Printf("payments failed: %v\n", err)
		return
	}
	show(output.PaymentsReport(payments))
}
