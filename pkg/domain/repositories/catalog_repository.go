package repositories

import (
	"context"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// CatalogRepository provides access to item types, fittings and doctrines
type CatalogRepository interface {
	ListItemTypes(ctx context.Context) ([]*entities.ItemType, error)
	GetItemType(ctx context.Context, id entities.TypeID) (*entities.ItemType, error)
	ListFittings(ctx context.Context) ([]*entities.Fitting, error)
	GetFitting(ctx context.Context, id entities.FittingID) (*entities.Fitting, error)
	ListDoctrines(ctx context.Context) ([]*entities.Doctrine, error)
	GetDoctrine(ctx context.Context, id entities.DoctrineID) (*entities.Doctrine, error)

	LoadItemTypes(ctx context.Context, types []*entities.ItemType) error
	LoadFittings(ctx context.Context, fittings []*entities.Fitting) error
	LoadDoctrines(ctx context.Context, doctrines []*entities.Doctrine) error
}
