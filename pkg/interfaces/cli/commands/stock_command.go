package commands

import (
	"context"
	"fmt"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/interfaces/cli/output"
)

func runStock(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	now, err := cfg.now()
	if err != nil {
		return output.Report{}, err
	}
	summary, err := app.Stock.DoctrineStockSummary(ctx, app.Scope(cfg, now))
	if err != nil {
		return output.Report{}, fmt.Errorf("stock summary: %w", err)
	}
	return output.StockReport(summary), nil
}

func runClaim(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	if cfg.FittingID <= 0 || cfg.IdentityID <= 0 {
		return output.Report{}, fmt.Errorf("claim requires -fitting and -identity")
	}
	fid := entities.FittingID(cfg.FittingID)
	iid := entities.IdentityID(cfg.IdentityID)

	if cfg.Clear {
		existed, err := app.Stock.ClearClaim(ctx, fid, iid)
		if err != nil {
			return output.Report{}, err
		}
		msg := fmt.Sprintf("No claim of identity %d on fitting %d", iid, fid)
		if existed {
			msg = fmt.Sprintf("Cleared claim of identity %d on fitting %d", iid, fid)
		}
		return output.MessageReport("claim", msg, map[string]bool{"cleared": existed}), nil
	}

	claim, err := app.Stock.SaveClaim(ctx, fid, iid, cfg.Quantity)
	if err != nil {
		return output.Report{}, err
	}
	msg := fmt.Sprintf("Identity %d claims %d of fitting %d", claim.IdentityID, claim.Quantity, claim.FittingID)
	return output.MessageReport("claim", msg, claim), nil
}

// runRequested shows the per-doctrine rollup, or with -set writes a
// target for one fitting or every fitting of a doctrine
func runRequested(ctx context.Context, app *App, cfg Config) (output.Report, error) {
	if cfg.SystemID <= 0 {
		return output.Report{}, fmt.Errorf("requested requires -system")
	}
	sid := entities.SystemID(cfg.SystemID)

	if !cfg.Set {
		rows, err := app.Stock.DoctrineRequested(ctx, sid)
		if err != nil {
			return output.Report{}, err
		}
		return output.DoctrineRequestedReport(rows), nil
	}

	switch {
	case cfg.DoctrineID > 0:
		res, err := app.Stock.SetDoctrineRequested(ctx, entities.DoctrineID(cfg.DoctrineID), sid, cfg.Quantity)
		if err != nil {
			return output.Report{}, err
		}
		msg := fmt.Sprintf("Doctrine %d in system %d: %d created, %d updated, %d unchanged",
			cfg.DoctrineID, sid, res.Created, res.Updated, res.Skipped)
		return output.MessageReport("requested", msg, res), nil
	case cfg.FittingID > 0:
		changed, err := app.Stock.SetRequested(ctx, entities.FittingID(cfg.FittingID), sid, cfg.Quantity)
		if err != nil {
			return output.Report{}, err
		}
		msg := fmt.Sprintf("Fitting %d in system %d unchanged at %d", cfg.FittingID, sid, cfg.Quantity)
		if changed {
			msg = fmt.Sprintf("Fitting %d in system %d set to %d", cfg.FittingID, sid, cfg.Quantity)
		}
		return output.MessageReport("requested", msg, map[string]bool{"changed": changed}), nil
	default:
		return output.Report{}, fmt.Errorf("requested -set needs -fitting or -doctrine")
	}
}
