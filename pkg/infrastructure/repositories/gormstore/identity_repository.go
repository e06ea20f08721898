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

// IdentityRepo resolves display identities from the identities table
type IdentityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdentityRepo(db *gorm.DB, baseLog *logger.Logger) *IdentityRepo {
	return &IdentityRepo{db: db, log: baseLog.With("repo", "IdentityRepo")}
}

var _ repositories.IdentityResolver = (*IdentityRepo)(nil)

func (r *IdentityRepo) DisplayIdentity(ctx context.Context, sub entities.IdentityID) (entities.IdentityID, bool, error) {
	var row IdentityRow
	err := r.db.WithContext(ctx).Where("id = ?", int64(sub)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, mapError("resolve display identity", err)
	}
	if row.DisplayID == nil {
		return 0, false, nil
	}
	return entities.IdentityID(*row.DisplayID), true, nil
}

func (r *IdentityRepo) SubIdentities(ctx context.Context, display entities.IdentityID) ([]entities.IdentityID, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&IdentityRow{}).
		Where("display_id = ?", int64(display)).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, mapError("list sub-identities", err)
	}
	out := make([]entities.IdentityID, 0, len(ids))
	for _, id := range ids {
		out = append(out, entities.IdentityID(id))
	}
	return out, nil
}

func (r *IdentityRepo) DisplayName(ctx context.Context, id entities.IdentityID) (string, bool, error) {
	var row IdentityRow
	err := r.db.WithContext(ctx).Where("id = ?", int64(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapError("resolve identity name", err)
	}
	return row.Name, true, nil
}

// LoadIdentities upserts identities. A zero DisplayID stores the identity unmapped.
func (r *IdentityRepo) LoadIdentities(ctx context.Context, identities []entities.Identity) error {
	if len(identities) == 0 {
		return nil
	}
	ids := make([]IdentityRow, 0, len(identities))
	for _, id := range identities {
		row := IdentityRow{ID: int64(id.ID), Name: id.Name}
		if id.DisplayID != 0 {
			display := int64(id.DisplayID)
			row.DisplayID = &display
		}
		ids = append(ids, row)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "display_id"}),
		}).
		Create(&ids).Error
	return mapError("load identities", err)
}
