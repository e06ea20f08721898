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

// CatalogRepo stores item types, fittings and doctrines
type CatalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) *CatalogRepo {
	return &CatalogRepo{db: db, log: baseLog.With("repo", "CatalogRepo")}
}

var _ repositories.CatalogRepository = (*CatalogRepo)(nil)

func (r *CatalogRepo) ListItemTypes(ctx context.Context) ([]*entities.ItemType, error) {
	var rows []ItemTypeRow
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, mapError("list item types", err)
	}
	out := make([]*entities.ItemType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *CatalogRepo) GetItemType(ctx context.Context, id entities.TypeID) (*entities.ItemType, error) {
	var row ItemTypeRow
	err := r.db.WithContext(ctx).Where("id = ?", int64(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.NewNotFoundError("item type", int64(id))
	}
	if err != nil {
		return nil, mapError("get item type", err)
	}
	return row.toEntity(), nil
}

func (r *CatalogRepo) LoadItemTypes(ctx context.Context, types []*entities.ItemType) error {
	if len(types) == 0 {
		return nil
	}
	rows := make([]ItemTypeRow, 0, len(types))
	for _, t := range types {
		rows = append(rows, ItemTypeRow{
			ID:             int64(t.ID),
			Name:           t.Name,
			Volume:         t.Volume,
			PackagedVolume: t.PackagedVolume,
		})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "volume", "packaged_volume"}),
		}).
		Create(&rows).Error
	return mapError("load item types", err)
}

func preloadComponents(db *gorm.DB) *gorm.DB {
	return db.Preload("Components", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

func (r *CatalogRepo) ListFittings(ctx context.Context) ([]*entities.Fitting, error) {
	var rows []FittingRow
	if err := preloadComponents(r.db.WithContext(ctx)).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, mapError("list fittings", err)
	}
	out := make([]*entities.Fitting, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *CatalogRepo) GetFitting(ctx context.Context, id entities.FittingID) (*entities.Fitting, error) {
	var row FittingRow
	err := preloadComponents(r.db.WithContext(ctx)).Where("id = ?", int64(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.NewNotFoundError("fitting", int64(id))
	}
	if err != nil {
		return nil, mapError("get fitting", err)
	}
	return row.toEntity(), nil
}

// LoadFittings upserts fittings and replaces their component lists
func (r *CatalogRepo) LoadFittings(ctx context.Context, fittings []*entities.Fitting) error {
	if len(fittings) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, f := range fittings {
			row := fittingRow(f)
			if err := tx.Omit("Components").
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "id"}},
					DoUpdates: clause.AssignmentColumns([]string{"name", "hull_type_id"}),
				}).
				Create(&row).Error; err != nil {
				return err
			}
			if err := tx.Where("fitting_id = ?", row.ID).Delete(&ComponentRow{}).Error; err != nil {
				return err
			}
			if len(row.Components) > 0 {
				if err := tx.Create(&row.Components).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	return mapError("load fittings", err)
}

func (r *CatalogRepo) ListDoctrines(ctx context.Context) ([]*entities.Doctrine, error) {
	var rows []DoctrineRow
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, mapError("list doctrines", err)
	}
	out := make([]*entities.Doctrine, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *CatalogRepo) GetDoctrine(ctx context.Context, id entities.DoctrineID) (*entities.Doctrine, error) {
	var row DoctrineRow
	err := r.db.WithContext(ctx).Where("id = ?", int64(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.NewNotFoundError("doctrine", int64(id))
	}
	if err != nil {
		return nil, mapError("get doctrine", err)
	}
	return row.toEntity(), nil
}

func (r *CatalogRepo) LoadDoctrines(ctx context.Context, doctrines []*entities.Doctrine) error {
	if len(doctrines) == 0 {
		return nil
	}
	rows := make([]DoctrineRow, 0, len(doctrines))
	for _, d := range doctrines {
		row := DoctrineRow{ID: int64(d.ID), Name: d.Name, FittingIDs: make([]int64, 0, len(d.FittingIDs))}
		for _, fid := range d.FittingIDs {
			row.FittingIDs = append(row.FittingIDs, int64(fid))
		}
		rows = append(rows, row)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "fitting_ids"}),
		}).
		Create(&rows).Error
	return mapError("load doctrines", err)
}
