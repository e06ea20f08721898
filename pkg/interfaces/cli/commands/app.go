package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/application/services/ledger"
	"github.com/vsinha/subsidy/pkg/application/services/reconcile"
	"github.com/vsinha/subsidy/pkg/application/services/review"
	"github.com/vsinha/subsidy/pkg/application/services/shared"
	"github.com/vsinha/subsidy/pkg/application/services/stock"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/config"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
	"github.com/vsinha/subsidy/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/subsidy/pkg/infrastructure/repositories/gormstore"
	"github.com/vsinha/subsidy/pkg/infrastructure/repositories/memory"
)

// App is the wired set of stores and services one command runs against
type App struct {
	Settings config.Config
	Log      *logger.Logger
	Events   *events.InMemoryEventStore

	Sources    shared.Sources
	Identities repositories.IdentityResolver

	Stock     *stock.Service
	Review    *review.Service
	Ledger    *ledger.Service
	Reconcile *reconcile.Service
	Refresher *reconcile.PriceRefresher

	closers []func() error
}

// NewApp loads settings, opens the configured store, applies the scenario
// directory when one is given and wires every service
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	settings, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	if cfg.Quiet {
		settings.Log.Mode = "quiet"
	}
	log, err := logger.New(settings.Log.Mode)
	if err != nil {
		return nil, err
	}

	app := &App{Settings: settings, Log: log}
	app.closers = append(app.closers, func() error { log.Sync(); return nil })
	app.Events = events.NewInMemoryEventStore(log)

	var sink csv.Sink
	switch settings.Database.Driver {
	case "memory":
		store := memory.NewStore()
		app.Sources = shared.Sources{
			Catalog:   store.Catalog,
			Prices:    store.Prices,
			Contracts: store.Contracts,
			Subsidies: store.Subsidies,
			Stock:     store.Stock,
			Config:    store.Config,
		}
		app.Identities = store.Identities
		sink = csv.Sink{
			Catalog: store.Catalog, Prices: store.Prices, Stock: store.Stock,
			Contracts: store.Contracts, Subsidies: store.Subsidies, Identities: store.Identities,
		}
	default:
		db, err := gormstore.Open(settings.Database.Driver, settings.Database.DSN, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			app.closers = append(app.closers, sqlDB.Close)
		}
		store := gormstore.NewStore(db, log)
		app.Sources = shared.Sources{
			Catalog:   store.Catalog,
			Prices:    store.Prices,
			Contracts: store.Contracts,
			Subsidies: store.Subsidies,
			Stock:     store.Stock,
			Config:    store.Config,
		}
		app.Identities = store.Identities
		sink = csv.Sink{
			Catalog: store.Catalog, Prices: store.Prices, Stock: store.Stock,
			Contracts: store.Contracts, Subsidies: store.Subsidies, Identities: store.Identities,
		}
	}

	// the SQL store keeps its state, so it only takes the scenario on import
	feed := memory.NewStaticPriceFeed(nil)
	inMemory := settings.Database.Driver == "memory"
	if cfg.ScenarioDir != "" {
		scenario, err := csv.NewLoader(log).LoadDir(cfg.ScenarioDir)
		if err != nil {
			app.Close()
			return nil, err
		}
		if inMemory || cfg.Import {
			if err := scenario.Apply(ctx, sink); err != nil {
				app.Close()
				return nil, fmt.Errorf("apply scenario: %w", err)
			}
		}
		feed = scenarioFeed(scenario)
	} else if inMemory || cfg.Import {
		app.Close()
		return nil, fmt.Errorf("a scenario directory is required (-scenario <dir>)")
	}

	app.Stock = stock.NewService(app.Sources, app.Identities, log)
	app.Review = review.NewService(app.Sources, app.Identities, log)
	app.Ledger = ledger.NewService(ledger.Deps{
		Contracts:  app.Sources.Contracts,
		Subsidies:  app.Sources.Subsidies,
		Catalog:    app.Sources.Catalog,
		Config:     app.Sources.Config,
		Identities: app.Identities,
		Publisher:  app.Events,
		Log:        log,
		ChunkSize:  settings.Reconcile.ChunkSize,
	})
	app.Refresher = reconcile.NewPriceRefresher(app.Sources.Prices, feed, app.Events, log, settings.Reconcile.ChunkSize)
	if err := app.Refresher.Subscribe(app.Events); err != nil {
		app.Close()
		return nil, fmt.Errorf("subscribe price refresher: %w", err)
	}
	app.Reconcile = reconcile.NewService(reconcile.Deps{
		Catalog:          app.Sources.Catalog,
		Prices:           app.Sources.Prices,
		Contracts:        app.Sources.Contracts,
		Subsidies:        app.Sources.Subsidies,
		Stock:            app.Sources.Stock,
		Config:           app.Sources.Config,
		Ledger:           app.Ledger,
		Publisher:        app.Events,
		Log:              log,
		ChunkSize:        settings.Reconcile.ChunkSize,
		DefaultRequested: settings.Reconcile.DefaultRequested,
	})
	return app, nil
}

// scenarioFeed quotes the scenario's prices back, standing in for the
// external market feed
func scenarioFeed(s *csv.Scenario) *memory.StaticPriceFeed {
	quotes := make(map[entities.TypeID]entities.Quote, len(s.Prices))
	for _, p := range s.Prices {
		quotes[p.TypeID] = entities.Quote{Buy: p.Buy, Sell: p.Sell}
	}
	return memory.NewStaticPriceFeed(quotes)
}

// Scope builds the reporting window from settings and command flags
func (a *App) Scope(cfg Config, now time.Time) dto.Scope {
	days := a.Settings.Scope.LookbackDays
	if cfg.Days > 0 {
		days = cfg.Days
	}
	scope := dto.Scope{
		End:      now,
		Statuses: a.Settings.Scope.OpenStatuses(),
		Now:      now,
		ViewerID: entities.IdentityID(cfg.IdentityID),
	}
	if days > 0 {
		scope.Start = now.AddDate(0, 0, -days)
	}
	if cfg.SystemID > 0 {
		scope.SystemIDs = []entities.SystemID{entities.SystemID(cfg.SystemID)}
	}
	return scope
}

// streamActivity returns the events recorded on one stream during this run
func (a *App) streamActivity(stream string) []events.Event {
	evts, err := a.Events.ReadEvents(stream, 0)
	if err != nil {
		a.Log.Warn("read events failed", "stream", stream, "error", err)
		return nil
	}
	return evts
}

// eventMark is the position activitySince reads from
func (a *App) eventMark() int {
	evts, _ := a.Events.ReadAllEvents(0)
	return len(evts)
}

// activitySince returns every event published after mark
func (a *App) activitySince(mark int) []events.Event {
	evts, err := a.Events.ReadAllEvents(mark)
	if err != nil {
		a.Log.Warn("read events failed", "error", err)
		return nil
	}
	return evts
}

// Close waits for event handlers and releases the store
func (a *App) Close() {
	if a.Events != nil {
		a.Events.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
}
