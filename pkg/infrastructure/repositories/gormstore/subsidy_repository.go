package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// SubsidyRepo stores subsidy records. WithLock holds a row lock
// (SELECT ... FOR UPDATE NOWAIT) on Postgres; SQLite serializes writers itself.
type SubsidyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubsidyRepo(db *gorm.DB, baseLog *logger.Logger) *SubsidyRepo {
	return &SubsidyRepo{db: db, log: baseLog.With("repo", "SubsidyRepo")}
}

var _ repositories.SubsidyRepository = (*SubsidyRepo)(nil)

func contractIDs(ids []entities.ContractID) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}

func (r *SubsidyRepo) ListSubsidies(ctx context.Context, filter repositories.SubsidyFilter) ([]*entities.SubsidyRecord, error) {
	q := r.db.WithContext(ctx)
	if len(filter.ContractIDs) > 0 {
		q = q.Where("contract_id IN ?", contractIDs(filter.ContractIDs))
	}
	if filter.ReviewStatus != nil {
		q = q.Where("review_status = ?", int(*filter.ReviewStatus))
	}
	if filter.Paid != nil {
		q = q.Where("paid = ?", *filter.Paid)
	}
	var rows []SubsidyRow
	if err := q.Order("contract_id ASC").Find(&rows).Error; err != nil {
		return nil, mapError("list subsidies", err)
	}
	out := make([]*entities.SubsidyRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *SubsidyRepo) CreateMissing(ctx context.Context, ids []entities.ContractID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([]SubsidyRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, SubsidyRow{
			ContractID:   int64(id),
			ReviewStatus: int(entities.ReviewPending),
			Amount:       decimal.Zero,
			UpdatedAt:    now,
		})
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, mapError("create subsidy records", res.Error)
	}
	return int(res.RowsAffected), nil
}

// MarkExempt selects the records still to flip and updates exactly those,
// so the returned ids are the ones this call changed
func (r *SubsidyRepo) MarkExempt(ctx context.Context, ids []entities.ContractID) ([]entities.ContractID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var changed []entities.ContractID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&SubsidyRow{})
		if isPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var pending []int64
		if err := q.Where("contract_id IN ? AND exempt = ?", contractIDs(ids), false).
			Order("contract_id").
			Pluck("contract_id", &pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		res := tx.Model(&SubsidyRow{}).
			Where("contract_id IN ? AND exempt = ?", pending, false).
			Updates(map[string]interface{}{"exempt": true, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		for _, id := range pending {
			changed = append(changed, entities.ContractID(id))
		}
		return nil
	})
	if err != nil {
		return nil, mapError("mark exempt", err)
	}
	return changed, nil
}

// WithLock loads the record inside a transaction, runs fn and saves the
// result. A missing record is created pending. Nothing is written when fn fails.
func (r *SubsidyRepo) WithLock(ctx context.Context, id entities.ContractID, fn func(rec *entities.SubsidyRecord) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := SubsidyRow{
			ContractID:   int64(id),
			ReviewStatus: int(entities.ReviewPending),
			Amount:       decimal.Zero,
			UpdatedAt:    time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		q := tx
		if isPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"})
		}
		var row SubsidyRow
		if err := q.Where("contract_id = ?", int64(id)).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return entities.NewNotFoundError("subsidy", int64(id))
			}
			return err
		}

		rec := row.toEntity()
		if err := fn(rec); err != nil {
			return err
		}
		updated := subsidyRow(rec)
		updated.UpdatedAt = time.Now().UTC()
		return tx.Model(&SubsidyRow{}).
			Where("contract_id = ?", int64(id)).
			Select("review_status", "amount", "reason", "paid", "exempt", "forced_fitting_id", "updated_at").
			Updates(&updated).Error
	})
	if err == nil {
		return nil
	}
	var ve *entities.ValidationError
	if errors.As(err, &ve) || errors.Is(err, entities.ErrNotFound) {
		return err
	}
	r.log.Warn("subsidy lock failed", "contract_id", id, "error", err)
	return mapError("lock contract", err)
}

// LoadSubsidies replaces records, used for fixtures and imports
func (r *SubsidyRepo) LoadSubsidies(ctx context.Context, records []*entities.SubsidyRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]SubsidyRow, 0, len(records))
	now := time.Now().UTC()
	for _, rec := range records {
		row := subsidyRow(rec)
		row.UpdatedAt = now
		rows = append(rows, row)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	return mapError("load subsidies", err)
}
