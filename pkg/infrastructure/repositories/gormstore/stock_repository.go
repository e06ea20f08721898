package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// StockRepo stores deployment systems, stock requests and claims
type StockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStockRepo(db *gorm.DB, baseLog *logger.Logger) *StockRepo {
	return &StockRepo{db: db, log: baseLog.With("repo", "StockRepo")}
}

var _ repositories.StockRepository = (*StockRepo)(nil)

func (r *StockRepo) ListLocations(ctx context.Context) ([]*entities.DeploymentLocation, error) {
	var rows []LocationRow
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, mapError("list locations", err)
	}
	out := make([]*entities.DeploymentLocation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *StockRepo) GetLocation(ctx context.Context, id entities.SystemID) (*entities.DeploymentLocation, error) {
	var row LocationRow
	err := r.db.WithContext(ctx).Where("id = ?", int64(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.NewNotFoundError("system", int64(id))
	}
	if err != nil {
		return nil, mapError("get location", err)
	}
	return row.toEntity(), nil
}

func (r *StockRepo) LoadLocations(ctx context.Context, locations []*entities.DeploymentLocation) error {
	if len(locations) == 0 {
		return nil
	}
	rows := make([]LocationRow, 0, len(locations))
	for _, l := range locations {
		row := LocationRow{ID: int64(l.ID), Name: l.Name, Active: l.Active, LocationIDs: make([]int64, 0, len(l.LocationIDs))}
		for _, id := range l.LocationIDs {
			row.LocationIDs = append(row.LocationIDs, int64(id))
		}
		rows = append(rows, row)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "active", "location_ids"}),
		}).
		Create(&rows).Error
	return mapError("load locations", err)
}

func (r *StockRepo) ListRequests(ctx context.Context) ([]*entities.StockRequest, error) {
	var rows []StockRequestRow
	if err := r.db.WithContext(ctx).Order("system_id ASC, fitting_id ASC").Find(&rows).Error; err != nil {
		return nil, mapError("list stock requests", err)
	}
	out := make([]*entities.StockRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entities.StockRequest{
			FittingID: entities.FittingID(row.FittingID),
			SystemID:  entities.SystemID(row.SystemID),
			Requested: row.Requested,
		})
	}
	return out, nil
}

func (r *StockRepo) EnsureRequests(ctx context.Context, requests []*entities.StockRequest) (int, error) {
	if len(requests) == 0 {
		return 0, nil
	}
	rows := make([]StockRequestRow, 0, len(requests))
	for _, req := range requests {
		rows = append(rows, StockRequestRow{
			FittingID: int64(req.FittingID),
			SystemID:  int64(req.SystemID),
			Requested: req.Requested,
		})
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, mapError("ensure stock requests", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (r *StockRepo) SetRequested(
	ctx context.Context,
	fittingID entities.FittingID,
	systemID entities.SystemID,
	requested int64,
) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row StockRequestRow
		err := tx.Where("fitting_id = ? AND system_id = ?", int64(fittingID), int64(systemID)).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			changed = true
			return tx.Create(&StockRequestRow{
				FittingID: int64(fittingID),
				SystemID:  int64(systemID),
				Requested: requested,
			}).Error
		}
		if err != nil {
			return err
		}
		if row.Requested == requested {
			return nil
		}
		changed = true
		return tx.Model(&StockRequestRow{}).
			Where("fitting_id = ? AND system_id = ?", int64(fittingID), int64(systemID)).
			Update("requested", requested).Error
	})
	if err != nil {
		return false, mapError("set requested", err)
	}
	return changed, nil
}

func (r *StockRepo) ListClaims(ctx context.Context) ([]*entities.Claim, error) {
	var rows []ClaimRow
	if err := r.db.WithContext(ctx).Order("fitting_id ASC, identity_id ASC").Find(&rows).Error; err != nil {
		return nil, mapError("list claims", err)
	}
	out := make([]*entities.Claim, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entities.Claim{
			FittingID:  entities.FittingID(row.FittingID),
			IdentityID: entities.IdentityID(row.IdentityID),
			Quantity:   row.Quantity,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}

func (r *StockRepo) SaveClaim(ctx context.Context, claim *entities.Claim) error {
	created := claim.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	row := ClaimRow{
		FittingID:  int64(claim.FittingID),
		IdentityID: int64(claim.IdentityID),
		Quantity:   claim.Quantity,
		CreatedAt:  created.UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fitting_id"}, {Name: "identity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "created_at"}),
		}).
		Create(&row).Error
	return mapError("save claim", err)
}

func (r *StockRepo) DeleteClaim(ctx context.Context, fittingID entities.FittingID, identityID entities.IdentityID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("fitting_id = ? AND identity_id = ?", int64(fittingID), int64(identityID)).
		Delete(&ClaimRow{})
	if res.Error != nil {
		return false, mapError("delete claim", res.Error)
	}
	return res.RowsAffected > 0, nil
}
