package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

type ItemTypeRow struct {
	ID             int64            `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name           string           `gorm:"column:name;not null;index"`
	Volume         *decimal.Decimal `gorm:"column:volume;type:numeric(20,4)"`
	PackagedVolume *decimal.Decimal `gorm:"column:packaged_volume;type:numeric(20,4)"`
}

func (ItemTypeRow) TableName() string { return "item_types" }

func (r ItemTypeRow) toEntity() *entities.ItemType {
	return &entities.ItemType{
		ID:             entities.TypeID(r.ID),
		Name:           r.Name,
		Volume:         r.Volume,
		PackagedVolume: r.PackagedVolume,
	}
}

type ItemPriceRow struct {
	TypeID    int64           `gorm:"column:type_id;primaryKey;autoIncrement:false"`
	Buy       decimal.Decimal `gorm:"column:buy;type:numeric(20,2);not null;default:0"`
	Sell      decimal.Decimal `gorm:"column:sell;type:numeric(20,2);not null;default:0"`
	UpdatedAt time.Time       `gorm:"column:updated_at;not null"`
}

func (ItemPriceRow) TableName() string { return "item_prices" }

func (r ItemPriceRow) toEntity() *entities.ItemPrice {
	return &entities.ItemPrice{
		TypeID:    entities.TypeID(r.TypeID),
		Buy:       r.Buy,
		Sell:      r.Sell,
		UpdatedAt: r.UpdatedAt,
	}
}

type FittingRow struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name       string         `gorm:"column:name;not null;index"`
	HullTypeID int64          `gorm:"column:hull_type_id;not null;index"`
	Components []ComponentRow `gorm:"foreignKey:FittingID;references:ID;constraint:OnDelete:CASCADE"`
}

func (FittingRow) TableName() string { return "fittings" }

type ComponentRow struct {
	FittingID int64 `gorm:"column:fitting_id;primaryKey;autoIncrement:false"`
	Position  int   `gorm:"column:position;primaryKey;autoIncrement:false"`
	TypeID    int64 `gorm:"column:type_id;not null"`
	Quantity  int64 `gorm:"column:quantity;not null"`
}

func (ComponentRow) TableName() string { return "fitting_components" }

func (r FittingRow) toEntity() *entities.Fitting {
	f := &entities.Fitting{
		ID:         entities.FittingID(r.ID),
		Name:       r.Name,
		HullTypeID: entities.TypeID(r.HullTypeID),
		Components: make([]entities.Component, 0, len(r.Components)),
	}
	for _, c := range r.Components {
		f.Components = append(f.Components, entities.Component{
			TypeID:   entities.TypeID(c.TypeID),
			Quantity: entities.Quantity(c.Quantity),
		})
	}
	return f
}

func fittingRow(f *entities.Fitting) FittingRow {
	row := FittingRow{ID: int64(f.ID), Name: f.Name, HullTypeID: int64(f.HullTypeID)}
	for i, c := range f.Components {
		row.Components = append(row.Components, ComponentRow{
			FittingID: int64(f.ID),
			Position:  i,
			TypeID:    int64(c.TypeID),
			Quantity:  int64(c.Quantity),
		})
	}
	return row
}

type DoctrineRow struct {
	ID         int64                      `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name       string                     `gorm:"column:name;not null"`
	FittingIDs datatypes.JSONSlice[int64] `gorm:"column:fitting_ids"`
}

func (DoctrineRow) TableName() string { return "doctrines" }

func (r DoctrineRow) toEntity() *entities.Doctrine {
	d := &entities.Doctrine{ID: entities.DoctrineID(r.ID), Name: r.Name}
	for _, id := range r.FittingIDs {
		d.FittingIDs = append(d.FittingIDs, entities.FittingID(id))
	}
	return d
}

type LocationRow struct {
	ID          int64                      `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name        string                     `gorm:"column:name;not null"`
	Active      bool                       `gorm:"column:active;not null"`
	LocationIDs datatypes.JSONSlice[int64] `gorm:"column:location_ids"`
}

func (LocationRow) TableName() string { return "deployment_locations" }

func (r LocationRow) toEntity() *entities.DeploymentLocation {
	l := &entities.DeploymentLocation{ID: entities.SystemID(r.ID), Name: r.Name, Active: r.Active}
	for _, id := range r.LocationIDs {
		l.LocationIDs = append(l.LocationIDs, entities.LocationID(id))
	}
	return l
}

type StockRequestRow struct {
	FittingID int64 `gorm:"column:fitting_id;primaryKey;autoIncrement:false"`
	SystemID  int64 `gorm:"column:system_id;primaryKey;autoIncrement:false"`
	Requested int64 `gorm:"column:requested;not null;default:0"`
}

func (StockRequestRow) TableName() string { return "stock_requests" }

type ClaimRow struct {
	FittingID  int64     `gorm:"column:fitting_id;primaryKey;autoIncrement:false"`
	IdentityID int64     `gorm:"column:identity_id;primaryKey;autoIncrement:false"`
	Quantity   int64     `gorm:"column:quantity;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (ClaimRow) TableName() string { return "claims" }

type ContractRow struct {
	ID                int64             `gorm:"column:id;primaryKey;autoIncrement:false"`
	IssuerID          int64             `gorm:"column:issuer_id;not null;index"`
	IssuerName        string            `gorm:"column:issuer_name"`
	CorporationID     int64             `gorm:"column:corporation_id;not null;index"`
	StartLocationID   int64             `gorm:"column:start_location_id;not null"`
	StartLocationName string            `gorm:"column:start_location_name"`
	Price             decimal.Decimal   `gorm:"column:price;type:numeric(20,2);not null;default:0"`
	Status            string            `gorm:"column:status;not null;index"`
	Title             string            `gorm:"column:title"`
	DateIssued        time.Time         `gorm:"column:date_issued;not null;index"`
	DateExpired       *time.Time        `gorm:"column:date_expired"`
	Items             []ContractItemRow `gorm:"foreignKey:ContractID;references:ID;constraint:OnDelete:CASCADE"`
}

func (ContractRow) TableName() string { return "contracts" }

type ContractItemRow struct {
	ContractID int64 `gorm:"column:contract_id;primaryKey;autoIncrement:false"`
	Position   int   `gorm:"column:position;primaryKey;autoIncrement:false"`
	TypeID     int64 `gorm:"column:type_id;not null"`
	Quantity   int64 `gorm:"column:quantity;not null"`
	Included   bool  `gorm:"column:included;not null"`
}

func (ContractItemRow) TableName() string { return "contract_items" }

func (r ContractRow) toEntity() *entities.Contract {
	c := &entities.Contract{
		ID:                entities.ContractID(r.ID),
		IssuerID:          entities.IdentityID(r.IssuerID),
		IssuerName:        r.IssuerName,
		CorporationID:     r.CorporationID,
		StartLocationID:   entities.LocationID(r.StartLocationID),
		StartLocationName: r.StartLocationName,
		Price:             r.Price,
		Status:            entities.ContractStatus(r.Status),
		Title:             r.Title,
		DateIssued:        r.DateIssued,
		DateExpired:       r.DateExpired,
		Items:             make([]entities.ContractItem, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		c.Items = append(c.Items, entities.ContractItem{
			TypeID:   entities.TypeID(it.TypeID),
			Quantity: entities.Quantity(it.Quantity),
			Included: it.Included,
		})
	}
	return c
}

func contractRow(c *entities.Contract) ContractRow {
	row := ContractRow{
		ID:                int64(c.ID),
		IssuerID:          int64(c.IssuerID),
		IssuerName:        c.IssuerName,
		CorporationID:     c.CorporationID,
		StartLocationID:   int64(c.StartLocationID),
		StartLocationName: c.StartLocationName,
		Price:             c.Price,
		Status:            string(c.Status),
		Title:             c.Title,
		DateIssued:        c.DateIssued.UTC(),
		DateExpired:       c.DateExpired,
	}
	for i, it := range c.Items {
		row.Items = append(row.Items, ContractItemRow{
			ContractID: int64(c.ID),
			Position:   i,
			TypeID:     int64(it.TypeID),
			Quantity:   int64(it.Quantity),
			Included:   it.Included,
		})
	}
	return row
}

type SubsidyRow struct {
	ContractID      int64           `gorm:"column:contract_id;primaryKey;autoIncrement:false"`
	ReviewStatus    int             `gorm:"column:review_status;not null;default:0;index"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null;default:0"`
	Reason          string          `gorm:"column:reason"`
	Paid            bool            `gorm:"column:paid;not null;default:false;index"`
	Exempt          bool            `gorm:"column:exempt;not null;default:false"`
	ForcedFittingID *int64          `gorm:"column:forced_fitting_id"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (SubsidyRow) TableName() string { return "subsidies" }

func (r SubsidyRow) toEntity() *entities.SubsidyRecord {
	rec := &entities.SubsidyRecord{
		ContractID:   entities.ContractID(r.ContractID),
		ReviewStatus: entities.ReviewStatus(r.ReviewStatus),
		Amount:       r.Amount,
		Reason:       r.Reason,
		Paid:         r.Paid,
		Exempt:       r.Exempt,
	}
	if r.ForcedFittingID != nil {
		id := entities.FittingID(*r.ForcedFittingID)
		rec.ForcedFittingID = &id
	}
	return rec
}

func subsidyRow(rec *entities.SubsidyRecord) SubsidyRow {
	row := SubsidyRow{
		ContractID:   int64(rec.ContractID),
		ReviewStatus: int(rec.ReviewStatus),
		Amount:       rec.Amount,
		Reason:       rec.Reason,
		Paid:         rec.Paid,
		Exempt:       rec.Exempt,
	}
	if rec.ForcedFittingID != nil {
		id := int64(*rec.ForcedFittingID)
		row.ForcedFittingID = &id
	}
	return row
}

// ConfigRow is the singleton valuation configuration, always stored with id 1
type ConfigRow struct {
	ID                int64           `gorm:"column:id;primaryKey;autoIncrement:false"`
	PriceBasis        string          `gorm:"column:price_basis;not null"`
	MarkupPct         decimal.Decimal `gorm:"column:markup_pct;type:numeric(10,4);not null"`
	CostPerM3         decimal.Decimal `gorm:"column:cost_per_m3;type:numeric(20,2);not null"`
	RoundingIncrement int64           `gorm:"column:rounding_increment;not null"`
	CorporationID     int64           `gorm:"column:corporation_id;not null"`
	DefaultSystemID   int64           `gorm:"column:default_system_id"`
	DeletedCheck      bool            `gorm:"column:deleted_check;not null"`
}

func (ConfigRow) TableName() string { return "valuation_config" }

func (r ConfigRow) toEntity() entities.ValuationConfig {
	return entities.ValuationConfig{
		PriceBasis:        entities.ParsePriceBasis(r.PriceBasis),
		MarkupPct:         r.MarkupPct,
		CostPerM3:         r.CostPerM3,
		RoundingIncrement: r.RoundingIncrement,
		CorporationID:     r.CorporationID,
		DefaultSystemID:   entities.SystemID(r.DefaultSystemID),
		DeletedCheck:      r.DeletedCheck,
	}
}

func configRow(cfg entities.ValuationConfig) ConfigRow {
	return ConfigRow{
		ID:                1,
		PriceBasis:        string(cfg.PriceBasis),
		MarkupPct:         cfg.MarkupPct,
		CostPerM3:         cfg.CostPerM3,
		RoundingIncrement: cfg.RoundingIncrement,
		CorporationID:     cfg.CorporationID,
		DefaultSystemID:   int64(cfg.DefaultSystemID),
		DeletedCheck:      cfg.DeletedCheck,
	}
}

// IdentityRow maps a character to its display identity. A null display id leaves it unmapped.
type IdentityRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name      string `gorm:"column:name;not null"`
	DisplayID *int64 `gorm:"column:display_id;index"`
}

func (IdentityRow) TableName() string { return "identities" }

func allModels() []interface{} {
	return []interface{}{
		&ItemTypeRow{},
		&ItemPriceRow{},
		&FittingRow{},
		&ComponentRow{},
		&DoctrineRow{},
		&LocationRow{},
		&StockRequestRow{},
		&ClaimRow{},
		&ContractRow{},
		&ContractItemRow{},
		&SubsidyRow{},
		&ConfigRow{},
		&IdentityRow{},
	}
}
