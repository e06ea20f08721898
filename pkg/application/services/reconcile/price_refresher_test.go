package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/infrastructure/events"
	"github.com/vsinha/subsidy/pkg/infrastructure/repositories/memory"
	fixtures "github.com/vsinha/subsidy/pkg/infrastructure/testing"
)

type failingFeed struct{ calls int }

func (f *failingFeed) GetPrices(context.Context, []entities.TypeID) (map[entities.TypeID]entities.Quote, error) {
	f.calls++
	return nil, errors.New("feed unavailable")
}

func seededPrices(t *testing.T) *memory.PriceRepository {
	t.Helper()
	repo := memory.NewPriceRepository()
	if err := repo.LoadPrices(context.Background(), fixtures.FrigatePrices()); err != nil {
		t.Fatalf("LoadPrices failed: %v", err)
	}
	return repo
}

func TestPriceRefresher_Refresh(t *testing.T) {
	repo := seededPrices(t)
	feed := memory.NewStaticPriceFeed(map[entities.TypeID]entities.Quote{
		fixtures.Rifter:  {Buy: decimal.NewFromInt(1), Sell: decimal.NewFromInt(2)},
		fixtures.Slasher: {Buy: decimal.NewFromInt(3), Sell: decimal.NewFromInt(4)},
	})
	bus := events.NewInMemoryEventStore(nil)
	r := NewPriceRefresher(repo, feed, bus, nil, 2)

	res, err := r.Refresh(context.Background(), nil)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if res.Requested != 5 || res.Updated != 5 {
		t.Errorf("Expected 5 requested and updated, got %d and %d", res.Requested, res.Updated)
	}
	if res.Missing != 3 {
		t.Errorf("Expected 3 missing quotes, got %d", res.Missing)
	}
	if res.Chunks != 3 || feed.Calls() != 3 {
		t.Errorf("Expected 3 chunks, got %d (feed calls %d)", res.Chunks, feed.Calls())
	}

	prices, _ := repo.ListPrices(context.Background())
	for _, p := range prices {
		if p.TypeID == fixtures.Slasher && !p.Sell.Equal(decimal.NewFromInt(4)) {
			t.Errorf("Expected Slasher sell 4, got %s", p.Sell)
		}
		if p.TypeID == fixtures.ArmorPlate && !p.Sell.IsZero() {
			t.Errorf("Expected unquoted plate zeroed, got %s", p.Sell)
		}
	}

	evts, _ := bus.ReadEvents(events.PriceStream, 0)
	if len(evts) != 1 || evts[0].Type() != events.PricesRefreshedEvent {
		t.Fatalf("Expected one prices refreshed event, got %d", len(evts))
	}
}

func TestPriceRefresher_FeedFailure(t *testing.T) {
	repo := seededPrices(t)
	feed := &failingFeed{}
	r := NewPriceRefresher(repo, feed, nil, nil, 2)

	res, err := r.Refresh(context.Background(), []entities.TypeID{fixtures.Rifter, fixtures.Slasher, fixtures.ArmorPlate})
	if err == nil {
		t.Fatalf("Expected error from failing feed")
	}
	if feed.calls != 2 {
		t.Errorf("Expected every chunk attempted, got %d calls", feed.calls)
	}
	if res.Updated != 0 {
		t.Errorf("Expected nothing updated, got %d", res.Updated)
	}

	prices, _ := repo.ListPrices(context.Background())
	for _, p := range prices {
		if p.TypeID == fixtures.Rifter && !p.Sell.Equal(decimal.NewFromInt(500_000)) {
			t.Errorf("Expected cached price kept on failure, got %s", p.Sell)
		}
	}
}

func TestPriceRefresher_Handler(t *testing.T) {
	repo := seededPrices(t)
	feed := memory.NewStaticPriceFeed(map[entities.TypeID]entities.Quote{
		fixtures.Rifter: {Buy: decimal.NewFromInt(7), Sell: decimal.NewFromInt(8)},
	})
	bus := events.NewInMemoryEventStore(nil)
	r := NewPriceRefresher(repo, feed, bus, nil, 0)
	if err := r.Subscribe(bus); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	evt := events.NewEvent(events.PricesRefreshRequestedEvent, events.PriceStream,
		events.PricesRefreshRequested{TypeIDs: []entities.TypeID{fixtures.Rifter}})
	if err := bus.AppendEvent(events.PriceStream, evt); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	bus.Wait()

	if feed.Calls() != 1 {
		t.Errorf("Expected one feed call, got %d", feed.Calls())
	}
	prices, _ := repo.ListPrices(context.Background())
	for _, p := range prices {
		if p.TypeID == fixtures.Rifter && !p.Sell.Equal(decimal.NewFromInt(8)) {
			t.Errorf("Expected Rifter sell 8, got %s", p.Sell)
		}
		if p.TypeID == fixtures.Slasher && !p.Sell.Equal(decimal.NewFromInt(400_000)) {
			t.Errorf("Expected Slasher untouched, got %s", p.Sell)
		}
	}
}
