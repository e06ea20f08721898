package gormstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// PriceRepo stores the local price cache
type PriceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriceRepo(db *gorm.DB, baseLog *logger.Logger) *PriceRepo {
	return &PriceRepo{db: db, log: baseLog.With("repo", "PriceRepo")}
}

var _ repositories.PriceRepository = (*PriceRepo)(nil)

func (r *PriceRepo) ListPrices(ctx context.Context) ([]*entities.ItemPrice, error) {
	var rows []ItemPriceRow
	if err := r.db.WithContext(ctx).Order("type_id ASC").Find(&rows).Error; err != nil {
		return nil, mapError("list prices", err)
	}
	out := make([]*entities.ItemPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *PriceRepo) EnsurePrices(ctx context.Context, ids []entities.TypeID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([]ItemPriceRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, ItemPriceRow{TypeID: int64(id), Buy: decimal.Zero, Sell: decimal.Zero, UpdatedAt: now})
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, mapError("ensure prices", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (r *PriceRepo) UpdatePrices(ctx context.Context, prices []*entities.ItemPrice) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([]ItemPriceRow, 0, len(prices))
	for _, p := range prices {
		at := p.UpdatedAt
		if at.IsZero() {
			at = now
		}
		rows = append(rows, ItemPriceRow{TypeID: int64(p.TypeID), Buy: p.Buy, Sell: p.Sell, UpdatedAt: at.UTC()})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"buy", "sell", "updated_at"}),
		}).
		Create(&rows).Error
	if err != nil {
		return 0, mapError("update prices", err)
	}
	return len(rows), nil
}

// LoadPrices writes fixture prices, replacing existing rows
func (r *PriceRepo) LoadPrices(ctx context.Context, prices []*entities.ItemPrice) error {
	_, err := r.UpdatePrices(ctx, prices)
	return err
}
