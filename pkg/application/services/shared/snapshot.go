package shared

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/domain/services"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// Sources groups the repositories a snapshot reads from
type Sources struct {
	Catalog   repositories.CatalogRepository
	Prices    repositories.PriceRepository
	Contracts repositories.ContractRepository
	Subsidies repositories.SubsidyRepository
	Stock     repositories.StockRepository
	Config    repositories.ConfigRepository
}

// Snapshot is a point-in-time view of everything one reporting pass needs.
// It is never mutated after LoadSnapshot returns.
type Snapshot struct {
	Config    entities.ValuationConfig
	ItemTypes []*entities.ItemType
	Prices    []*entities.ItemPrice
	Fittings  []*entities.Fitting
	Doctrines []*entities.Doctrine
	Locations []*entities.DeploymentLocation
	Requests  RequestMap
	Claims    *ClaimBook
	Contracts []*entities.Contract
	Subsidies map[entities.ContractID]*entities.SubsidyRecord

	Valuator   *services.Valuator
	Valuations map[entities.FittingID]*services.Valuation
	Matcher    *services.Matcher
	TakenAt    time.Time

	fittingsByID map[entities.FittingID]*entities.Fitting
	typeNames    map[entities.TypeID]string
}

// LoadSnapshot reads all sources concurrently and builds the valuator and
// matcher once. A nil filter skips loading contracts and subsidies.
func LoadSnapshot(
	ctx context.Context,
	src Sources,
	filter *repositories.ContractFilter,
	log *logger.Logger,
) (*Snapshot, error) {
	snap := &Snapshot{TakenAt: time.Now().UTC()}
	var requests []*entities.StockRequest
	var claims []*entities.Claim
	var subsidies []*entities.SubsidyRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Config, err = src.Config.Active(gctx)
		return wrap("config", err)
	})
	g.Go(func() (err error) {
		snap.ItemTypes, err = src.Catalog.ListItemTypes(gctx)
		return wrap("item types", err)
	})
	g.Go(func() (err error) {
		snap.Prices, err = src.Prices.ListPrices(gctx)
		return wrap("prices", err)
	})
	g.Go(func() (err error) {
		snap.Fittings, err = src.Catalog.ListFittings(gctx)
		return wrap("fittings", err)
	})
	g.Go(func() (err error) {
		snap.Doctrines, err = src.Catalog.ListDoctrines(gctx)
		return wrap("doctrines", err)
	})
	if src.Stock != nil {
		g.Go(func() (err error) {
			snap.Locations, err = src.Stock.ListLocations(gctx)
			return wrap("locations", err)
		})
		g.Go(func() (err error) {
			requests, err = src.Stock.ListRequests(gctx)
			return wrap("stock requests", err)
		})
		g.Go(func() (err error) {
			claims, err = src.Stock.ListClaims(gctx)
			return wrap("claims", err)
		})
	}
	if filter != nil {
		g.Go(func() (err error) {
			snap.Contracts, err = src.Contracts.ListContracts(gctx, *filter)
			return wrap("contracts", err)
		})
		g.Go(func() (err error) {
			subsidies, err = src.Subsidies.ListSubsidies(gctx, repositories.SubsidyFilter{})
			return wrap("subsidies", err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.Requests = NewRequestMapFromRequests(requests)
	snap.Claims = NewClaimBook(claims)
	snap.Subsidies = make(map[entities.ContractID]*entities.SubsidyRecord, len(subsidies))
	for _, s := range subsidies {
		snap.Subsidies[s.ContractID] = s
	}
	snap.fittingsByID = make(map[entities.FittingID]*entities.Fitting, len(snap.Fittings))
	for _, f := range snap.Fittings {
		snap.fittingsByID[f.ID] = f
	}
	snap.typeNames = make(map[entities.TypeID]string, len(snap.ItemTypes))
	for _, t := range snap.ItemTypes {
		snap.typeNames[t.ID] = t.Name
	}

	snap.Valuator = services.NewValuator(snap.Config, snap.ItemTypes, snap.Prices)
	snap.Valuations = snap.Valuator.ValueAll(snap.Fittings)
	snap.Matcher = services.NewMatcher(snap.Fittings, snap.Valuations)

	if log != nil {
		for _, f := range snap.Fittings {
			v := snap.Valuations[f.ID]
			if v.Complete() {
				continue
			}
			log.Warn("incomplete valuation data, using zero",
				"fitting_id", f.ID,
				"fitting", f.Name,
				"missing_prices", v.MissingPrices,
				"missing_volumes", v.MissingVolumes,
			)
		}
	}
	return snap, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// Fitting returns a fitting by id
func (s *Snapshot) Fitting(id entities.FittingID) (*entities.Fitting, bool) {
	f, ok := s.fittingsByID[id]
	return f, ok
}

// TypeName returns an item type's name, or its id when unknown
func (s *Snapshot) TypeName(id entities.TypeID) string {
	if name, ok := s.typeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("type %d", id)
}

// Overrides returns the forced fittings recorded on subsidy records
func (s *Snapshot) Overrides() map[entities.ContractID]entities.FittingID {
	out := make(map[entities.ContractID]entities.FittingID)
	for id, rec := range s.Subsidies {
		if rec.ForcedFittingID != nil {
			out[id] = *rec.ForcedFittingID
		}
	}
	return out
}

// MatchAll matches the snapshot's contracts, honoring forced overrides
func (s *Snapshot) MatchAll() map[entities.ContractID]entities.FittingID {
	return s.Matcher.MatchAll(s.Contracts, s.Overrides())
}

// ActiveLocations returns active systems, optionally restricted to ids
func (s *Snapshot) ActiveLocations(ids []entities.SystemID) []*entities.DeploymentLocation {
	want := make(map[entities.SystemID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]*entities.DeploymentLocation, 0, len(s.Locations))
	for _, l := range s.Locations {
		if !l.Active {
			continue
		}
		if len(want) > 0 && !want[l.ID] {
			continue
		}
		out = append(out, l)
	}
	return out
}

// DoctrinesOf returns the doctrines that list the fitting
func (s *Snapshot) DoctrinesOf(id entities.FittingID) []*entities.Doctrine {
	var out []*entities.Doctrine
	for _, d := range s.Doctrines {
		if d.Contains(id) {
			out = append(out, d)
		}
	}
	return out
}
