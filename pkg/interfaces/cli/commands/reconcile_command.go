package commands

import (
	"context"
	"fmt"

	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
	"github.com/vsinha/subsidy/pkg/interfaces/cli/output"
)

func runReconcile(ctx context.Context, app *App, _ Config) (output.Report, error) {
	rep := app.Reconcile.Run(ctx)
	for _, step := range rep.Steps {
		if step.Err != nil {
			app.Log.Warn("reconcile step failed", "step", step.Name, "error", step.Err)
		}
	}
	return output.WithActivity(output.ReconcileReport(rep), app.streamActivity(events.ReconcileStream)), nil
}

func runRefresh(ctx context.Context, app *App, _ Config) (output.Report, error) {
	res, err := app.Refresher.Refresh(ctx, nil)
	if err != nil {
		return output.Report{}, fmt.Errorf("refresh prices: %w", err)
	}
	return output.RefreshReport(res), nil
}

// runImport applies the scenario inside NewApp; the report only confirms
// what the store now holds
func runImport(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	if app.Settings.Database.Driver == "memory" {
		return output.Report{}, fmt.Errorf("import needs a SQL store (database.driver sqlite or postgres)")
	}
	fittings, err := app.Sources.Catalog.ListFittings(ctx)
	if err != nil {
		return output.Report{}, err
	}
	contracts, err := app.Sources.Contracts.ListContracts(ctx, repositories.ContractFilter{})
	if err != nil {
		return output.Report{}, err
	}
	msg := fmt.Sprintf("Imported %s: %d fittings, %d contracts", cfg.ScenarioDir, len(fittings), len(contracts))
	return output.MessageReport("import", msg, map[string]int{
		"fittings":  len(fittings),
		"contracts": len(contracts),
	}), nil
}
