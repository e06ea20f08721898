package commands

import (
	"context"
	"fmt"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
	"github.com/vsinha/subsidy/pkg/interfaces/cli/output"
)

func runReview(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	now, err := cfg.now()
	if err != nil {
		return output.Report{}, err
	}
	// reviewers see every imported contract in the window, whatever its status
	scope := app.Scope(cfg, now)
	scope.Statuses = nil
	rows, err := app.Review.ReviewQueue(ctx, scope)
	if err != nil {
		return output.Report{}, fmt.Errorf("review queue: %w", err)
	}
	return output.ReviewReport(rows), nil
}

// reviewInput maps the flags onto the ledger's optional fields. An empty
// flag leaves the stored value untouched.
func reviewInput(cfg Config) dto.ReviewInput {
	var in dto.ReviewInput
	if cfg.Amount != "" {
		amount := cfg.Amount
		in.Amount = &amount
	}
	if cfg.Reason != "" {
		reason := cfg.Reason
		in.Reason = &reason
	}
	return in
}

func contractFlag(cfg Config, command string) (entities.ContractID, error) {
	if cfg.ContractID <= 0 {
		return 0, fmt.Errorf("%s requires -contract", command)
	}
	return entities.ContractID(cfg.ContractID), nil
}

func runApprove(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	id, err := contractFlag(cfg, "approve")
	if err != nil {
		return output.Report{}, err
	}
	rec, err := app.Ledger.Approve(ctx, id, reviewInput(cfg))
	if err != nil {
		return output.Report{}, err
	}
	return output.WithActivity(output.RecordReport("Approved", rec), app.streamActivity(events.ContractStream(id))), nil
}

func runReject(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	id, err := contractFlag(cfg, "reject")
	if err != nil {
		return output.Report{}, err
	}
	rec, err := app.Ledger.Reject(ctx, id, reviewInput(cfg))
	if err != nil {
		return output.Report{}, err
	}
	return output.WithActivity(output.RecordReport("Rejected", rec), app.streamActivity(events.ContractStream(id))), nil
}

// runForceFit pins the contract to -fitting, or clears the pin when no
// fitting is given
func runForceFit(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	id, err := contractFlag(cfg, "force-fit")
	if err != nil {
		return output.Report{}, err
	}
	var fitting *entities.FittingID
	if cfg.FittingID > 0 {
		fid := entities.FittingID(cfg.FittingID)
		fitting = &fid
	}
	rec, err := app.Ledger.ForceFit(ctx, id, fitting)
	if err != nil {
		return output.Report{}, err
	}
	title := "Forced fitting cleared"
	if fitting != nil {
		title = fmt.Sprintf("Forced to fitting %d", *fitting)
	}
	return output.WithActivity(output.RecordReport(title, rec), app.streamActivity(events.ContractStream(id))), nil
}

func runValuation(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	if cfg.FittingID <= 0 {
		return output.Report{}, fmt.Errorf("valuation requires -fitting")
	}
	v, err := app.Review.ValuationFor(ctx, entities.FittingID(cfg.FittingID))
	if err != nil {
		return output.Report{}, err
	}
	return output.ValuationReport(v), nil
}
