package commands

import (
	"context"
	"fmt"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/interfaces/cli/output"
)

func runPay(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	if cfg.IdentityID <= 0 {
		return output.Report{}, fmt.Errorf("pay requires -identity")
	}
	mark := app.eventMark()
	res, err := app.Ledger.BulkMarkPaid(ctx, entities.IdentityID(cfg.IdentityID))
	if err != nil {
		return output.Report{}, err
	}
	return output.WithActivity(output.BulkPayReport(res), app.activitySince(mark)), nil
}

func runPayments(ctx context.Context, app *App, _ Config) (output.Report, error) {
	summary, err := app.Ledger.AggregatePaymentsToMain(ctx)
	if err != nil {
		return output.Report{}, fmt.Errorf("payments: %w", err)
	}
	return output.PaymentsReport(summary), nil
}

func runContracts(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	if cfg.IdentityID <= 0 {
		return output.Report{}, fmt.Errorf("contracts requires -identity")
	}
	ic, err := app.Ledger.IdentityContracts(ctx, entities.IdentityID(cfg.IdentityID))
	if err != nil {
		return output.Report{}, err
	}
	return output.IdentityContractsReport(ic), nil
}
