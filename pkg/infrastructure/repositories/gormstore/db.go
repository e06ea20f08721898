package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// Open connects to the database and migrates the schema
func Open(driver, dsn string, logg *logger.Logger) (*gorm.DB, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer at a time; concurrent sqlite writers fail with "database is locked"
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	logg.Info("database ready", "driver", driver, "dsn", dsn)
	return db, nil
}

// Store bundles the SQL-backed repositories over one connection
type Store struct {
	Catalog    *CatalogRepo
	Prices     *PriceRepo
	Contracts  *ContractRepo
	Subsidies  *SubsidyRepo
	Stock      *StockRepo
	Config     *ConfigRepo
	Identities *IdentityRepo
}

// NewStore creates every repository over db
func NewStore(db *gorm.DB, baseLog *logger.Logger) *Store {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Store{
		Catalog:    NewCatalogRepo(db, baseLog),
		Prices:     NewPriceRepo(db, baseLog),
		Contracts:  NewContractRepo(db, baseLog),
		Subsidies:  NewSubsidyRepo(db, baseLog),
		Stock:      NewStockRepo(db, baseLog),
		Config:     NewConfigRepo(db, baseLog),
		Identities: NewIdentityRepo(db, baseLog),
	}
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// mapError converts lock failures into ErrConcurrencyConflict
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "55P03", "40001", "40P01":
			return fmt.Errorf("%s: %w: %v", op, entities.ErrConcurrencyConflict, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, entities.ErrConcurrencyConflict, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "could not obtain lock") {
		return fmt.Errorf("%s: %w: %v", op, entities.ErrConcurrencyConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
