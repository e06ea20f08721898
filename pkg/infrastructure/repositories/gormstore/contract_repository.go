package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// ContractRepo stores synced contracts and their items
type ContractRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContractRepo(db *gorm.DB, baseLog *logger.Logger) *ContractRepo {
	return &ContractRepo{db: db, log: baseLog.With("repo", "ContractRepo")}
}

var _ repositories.ContractRepository = (*ContractRepo)(nil)

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

func applyContractFilter(q *gorm.DB, f repositories.ContractFilter) *gorm.DB {
	if f.CorporationID != 0 {
		q = q.Where("corporation_id = ?", f.CorporationID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		q = q.Where("status IN ?", statuses)
	}
	if len(f.IssuerIDs) > 0 {
		ids := make([]int64, 0, len(f.IssuerIDs))
		for _, id := range f.IssuerIDs {
			ids = append(ids, int64(id))
		}
		q = q.Where("issuer_id IN ?", ids)
	}
	if !f.IssuedAfter.IsZero() {
		q = q.Where("date_issued >= ?", f.IssuedAfter.UTC())
	}
	if !f.IssuedBefore.IsZero() {
		q = q.Where("date_issued <= ?", f.IssuedBefore.UTC())
	}
	return q
}

func (r *ContractRepo) ListContracts(ctx context.Context, filter repositories.ContractFilter) ([]*entities.Contract, error) {
	var rows []ContractRow
	q := applyContractFilter(preloadItems(r.db.WithContext(ctx)), filter)
	if err := q.Order("date_issued ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, mapError("list contracts", err)
	}
	out := make([]*entities.Contract, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *ContractRepo) GetContract(ctx context.Context, id entities.ContractID) (*entities.Contract, error) {
	var row ContractRow
	err := preloadItems(r.db.WithContext(ctx)).Where("id = ?", int64(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.NewNotFoundError("contract", int64(id))
	}
	if err != nil {
		return nil, mapError("get contract", err)
	}
	return row.toEntity(), nil
}

// LoadContracts upserts contracts and replaces their item lists
func (r *ContractRepo) LoadContracts(ctx context.Context, contracts []*entities.Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range contracts {
			row := contractRow(c)
			if err := tx.Omit("Items").
				Clauses(clause.OnConflict{
					Columns: []clause.Column{{Name: "id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"issuer_id",
						"issuer_name",
						"corporation_id",
						"start_location_id",
						"start_location_name",
						"price",
						"status",
						"title",
						"date_issued",
						"date_expired",
					}),
				}).
				Create(&row).Error; err != nil {
				return err
			}
			if err := tx.Where("contract_id = ?", row.ID).Delete(&ContractItemRow{}).Error; err != nil {
				return err
			}
			if len(row.Items) > 0 {
				if err := tx.Create(&row.Items).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	return mapError("load contracts", err)
}
