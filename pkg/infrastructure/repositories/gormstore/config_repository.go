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

// ConfigRepo stores the singleton valuation config in row 1
type ConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConfigRepo(db *gorm.DB, baseLog *logger.Logger) *ConfigRepo {
	return &ConfigRepo{db: db, log: baseLog.With("repo", "ConfigRepo")}
}

var _ repositories.ConfigRepository = (*ConfigRepo)(nil)

func (r *ConfigRepo) Active(ctx context.Context) (entities.ValuationConfig, error) {
	var row ConfigRow
	err := r.db.WithContext(ctx).Where("id = ?", 1).First(&row).Error
	if err == nil {
		return row.toEntity(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.ValuationConfig{}, mapError("load config", err)
	}

	def := configRow(entities.DefaultValuationConfig())
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&def).Error; err != nil {
		return entities.ValuationConfig{}, mapError("create default config", err)
	}
	// another writer may have won the insert
	if err := r.db.WithContext(ctx).Where("id = ?", 1).First(&row).Error; err != nil {
		return entities.ValuationConfig{}, mapError("load config", err)
	}
	r.log.Info("created default valuation config")
	return row.toEntity(), nil
}

func (r *ConfigRepo) Save(ctx context.Context, cfg entities.ValuationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	row := configRow(cfg)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	return mapError("save config", err)
}
