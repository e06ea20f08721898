package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// PriceRefresher copies quotes from the price feed into the local price cache
type PriceRefresher struct {
	prices    repositories.PriceRepository
	feed      repositories.PriceFeed
	publisher events.Publisher
	log       *logger.Logger
	chunkSize int
	timeout   time.Duration
}

// NewPriceRefresher creates a refresher. The publisher may be nil.
func NewPriceRefresher(
	prices repositories.PriceRepository,
	feed repositories.PriceFeed,
	publisher events.Publisher,
	log *logger.Logger,
	chunkSize int,
) *PriceRefresher {
	if log == nil {
		log = logger.Nop()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &PriceRefresher{
		prices:    prices,
		feed:      feed,
		publisher: publisher,
		log:       log.Named("price_refresher"),
		chunkSize: chunkSize,
		timeout:   5 * time.Minute,
	}
}

// Refresh fetches quotes for ids, or for every cached row when ids is empty.
// Types the feed does not quote are stored as zero and counted as missing.
// A failing chunk is logged and the remaining chunks still run.
func (r *PriceRefresher) Refresh(ctx context.Context, ids []entities.TypeID) (dto.RefreshResult, error) {
	var res dto.RefreshResult
	if len(ids) == 0 {
		rows, err := r.prices.ListPrices(ctx)
		if err != nil {
			return res, fmt.Errorf("list prices: %w", err)
		}
		for _, p := range rows {
			ids = append(ids, p.TypeID)
		}
	}
	res.Requested = len(ids)

	var errs []error
	_ = chunks(ids, r.chunkSize, func(batch []entities.TypeID) error {
		res.Chunks++
		quotes, err := r.feed.GetPrices(ctx, batch)
		if err != nil {
			r.log.Error("price feed failed", "chunk", res.Chunks, "types", len(batch), "error", err)
			errs = append(errs, fmt.Errorf("chunk %d: %w", res.Chunks, err))
			return nil
		}
		now := time.Now().UTC()
		rows := make([]*entities.ItemPrice, 0, len(batch))
		for _, id := range batch {
			q, ok := quotes[id]
			if !ok {
				res.Missing++
				q = entities.Quote{Buy: decimal.Zero, Sell: decimal.Zero}
			}
			rows = append(rows, &entities.ItemPrice{TypeID: id, Buy: q.Buy, Sell: q.Sell, UpdatedAt: now})
		}
		updated, err := r.prices.UpdatePrices(ctx, rows)
		if err != nil {
			r.log.Error("price update failed", "chunk", res.Chunks, "error", err)
			errs = append(errs, fmt.Errorf("chunk %d: %w", res.Chunks, err))
			return nil
		}
		res.Updated += updated
		return nil
	})

	r.log.Info("prices refreshed",
		"requested", res.Requested,
		"updated", res.Updated,
		"missing", res.Missing,
		"chunks", res.Chunks,
	)
	if r.publisher != nil {
		evt := events.NewEvent(events.PricesRefreshedEvent, events.PriceStream, events.PricesRefreshed{
			Updated: res.Updated,
			Missing: res.Missing,
		})
		if err := r.publisher.AppendEvent(events.PriceStream, evt); err != nil {
			r.log.Warn("publish event failed", "event_type", events.PricesRefreshedEvent, "error", err)
		}
	}
	return res, errors.Join(errs...)
}

// Handler returns an event handler that runs a refresh for each
// prices.refresh_requested event
func (r *PriceRefresher) Handler() events.EventHandler {
	return &events.HandlerFunc{
		Types: []string{events.PricesRefreshRequestedEvent},
		Fn: func(e events.Event) error {
			req, ok := e.Data().(events.PricesRefreshRequested)
			if !ok {
				return fmt.Errorf("unexpected payload %T for %s", e.Data(), e.Type())
			}
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			_, err := r.Refresh(ctx, req.TypeIDs)
			return err
		},
	}
}

// Subscribe registers the refresher on the store
func (r *PriceRefresher) Subscribe(store events.EventStore) error {
	return store.Subscribe([]string{events.PricesRefreshRequestedEvent}, r.Handler())
}
