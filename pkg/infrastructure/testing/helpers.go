package testing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/infrastructure/repositories/memory"
)

// Type ids used by the frigate scenario
const (
	Rifter        entities.TypeID = 587
	Slasher       entities.TypeID = 585
	WarpScrambler entities.TypeID = 447
	StasisWeb     entities.TypeID = 526
	ArmorPlate    entities.TypeID = 11293
)

// Fitting ids used by the frigate scenario
const (
	RifterTackle  entities.FittingID = 1
	RifterArmor   entities.FittingID = 2
	SlasherTackle entities.FittingID = 3
)

// Systems and stations used by the frigate scenario
const (
	Jita    entities.SystemID = 100
	Amarr   entities.SystemID = 200
	Dodixie entities.SystemID = 300
	Nowhere entities.SystemID = 400

	JitaStation    entities.LocationID = 6000
	AmarrStation   entities.LocationID = 7000
	DodixieStation entities.LocationID = 8000
)

// Identities used by the frigate scenario
const (
	MainPilot entities.IdentityID = 9001
	AltPilot  entities.IdentityID = 9002
	SoloPilot entities.IdentityID = 9100
)

// Corporation is the corporation whose contracts are in scope
const Corporation int64 = 1

func vol(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func isk(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// FrigateItemTypes returns the item types of the frigate scenario
func FrigateItemTypes() []*entities.ItemType {
	return []*entities.ItemType{
		{ID: Rifter, Name: "Rifter", Volume: vol("27289"), PackagedVolume: vol("2500")},
		{ID: Slasher, Name: "Slasher", Volume: vol("28100"), PackagedVolume: vol("2500")},
		{ID: WarpScrambler, Name: "Warp Scrambler I", Volume: vol("5")},
		{ID: StasisWeb, Name: "Stasis Webifier I", Volume: vol("5")},
		{ID: ArmorPlate, Name: "200mm Steel Plates I", Volume: vol("5")},
	}
}

// FrigatePrices returns sell-side prices for every scenario item type
func FrigatePrices() []*entities.ItemPrice {
	return []*entities.ItemPrice{
		{TypeID: Rifter, Buy: isk(450_000), Sell: isk(500_000)},
		{TypeID: Slasher, Buy: isk(350_000), Sell: isk(400_000)},
		{TypeID: WarpScrambler, Buy: isk(900_000), Sell: isk(1_000_000)},
		{TypeID: StasisWeb, Buy: isk(700_000), Sell: isk(800_000)},
		{TypeID: ArmorPlate, Buy: isk(250_000), Sell: isk(300_000)},
	}
}

// FrigateFittings returns the scenario fittings.
// Sell-basis valuations: Rifter Tackle basis 2,500,000 subsidy 1,000,000;
// Rifter Armor basis 1,250,000 subsidy 1,000,000; Slasher Tackle basis
// 1,500,000 subsidy 1,000,000.
func FrigateFittings() []*entities.Fitting {
	return []*entities.Fitting{
		{ID: RifterTackle, Name: "Rifter Tackle", HullTypeID: Rifter, Components: []entities.Component{
			{TypeID: WarpScrambler, Quantity: 1},
			{TypeID: StasisWeb, Quantity: 1},
		}},
		{ID: RifterArmor, Name: "Rifter Armor", HullTypeID: Rifter, Components: []entities.Component{
			{TypeID: ArmorPlate, Quantity: 2},
		}},
		{ID: SlasherTackle, Name: "Slasher Tackle", HullTypeID: Slasher, Components: []entities.Component{
			{TypeID: WarpScrambler, Quantity: 1},
		}},
	}
}

// FrigateDoctrines returns the scenario doctrines
func FrigateDoctrines() []*entities.Doctrine {
	return []*entities.Doctrine{
		{ID: 1, Name: "Frigate Tackle", FittingIDs: []entities.FittingID{RifterTackle, SlasherTackle}},
		{ID: 2, Name: "Armor Frigates", FittingIDs: []entities.FittingID{RifterArmor}},
		{ID: 3, Name: "Rifter Fleet", FittingIDs: []entities.FittingID{RifterTackle, RifterArmor}},
	}
}

// FrigateLocations returns the scenario systems. Dodixie is inactive and
// Nowhere has no stations.
func FrigateLocations() []*entities.DeploymentLocation {
	return []*entities.DeploymentLocation{
		{ID: Jita, Name: "Jita", Active: true, LocationIDs: []entities.LocationID{JitaStation}},
		{ID: Amarr, Name: "Amarr", Active: true, LocationIDs: []entities.LocationID{AmarrStation}},
		{ID: Dodixie, Name: "Dodixie", Active: false, LocationIDs: []entities.LocationID{DodixieStation}},
		{ID: Nowhere, Name: "Nowhere", Active: true},
	}
}

// FrigateRequests returns the requested stock targets
func FrigateRequests() []*entities.StockRequest {
	return []*entities.StockRequest{
		{FittingID: RifterTackle, SystemID: Jita, Requested: 3},
		{FittingID: RifterArmor, SystemID: Jita, Requested: 0},
		{FittingID: SlasherTackle, SystemID: Jita, Requested: 1},
		{FittingID: SlasherTackle, SystemID: Amarr, Requested: 2},
	}
}

// FrigateClaims returns the scenario claims
func FrigateClaims() []*entities.Claim {
	return []*entities.Claim{
		{FittingID: RifterTackle, IdentityID: MainPilot, Quantity: 1},
		{FittingID: RifterTackle, IdentityID: SoloPilot, Quantity: 1},
		{FittingID: SlasherTackle, IdentityID: AltPilot, Quantity: 5},
	}
}

// FrigateIdentities returns the scenario characters. SoloPilot has no main.
func FrigateIdentities() []entities.Identity {
	return []entities.Identity{
		{ID: MainPilot, Name: "Main Pilot", DisplayID: MainPilot},
		{ID: AltPilot, Name: "Alt Pilot", DisplayID: MainPilot},
		{ID: SoloPilot, Name: "Solo Pilot"},
	}
}

func line(id entities.TypeID, qty entities.Quantity) entities.ContractItem {
	return entities.ContractItem{TypeID: id, Quantity: qty, Included: true}
}

// FrigateContracts returns the scenario contracts relative to now:
//
//	1001 Main  Jita    outstanding  Rifter Tackle
//	1002 Alt   Jita    outstanding  matches both Rifter fits, Rifter Armor is cheaper
//	1003 Solo  Amarr   outstanding  Slasher Tackle
//	1004 Main  Jita    deleted      Rifter Armor, not yet expired
//	1005 Alt   Jita    outstanding  Rifter Tackle, already expired
//	1006 Solo  Dodixie outstanding  Slasher Tackle in an inactive system
//	1007 Main  Jita    outstanding  bare hull, no match
//	1008 Main  Jita    outstanding  Rifter Tackle, other corporation
func FrigateContracts(now time.Time) []*entities.Contract {
	issued := now.Add(-48 * time.Hour)
	live := now.Add(7 * 24 * time.Hour)
	gone := now.Add(-time.Hour)

	contract := func(id entities.ContractID, issuer entities.IdentityID, name string, loc entities.LocationID,
		status entities.ContractStatus, expiry time.Time, price int64, items ...entities.ContractItem) *entities.Contract {
		exp := expiry
		return &entities.Contract{
			ID:              id,
			IssuerID:        issuer,
			IssuerName:      name,
			CorporationID:   Corporation,
			StartLocationID: loc,
			Price:           isk(price),
			Status:          status,
			DateIssued:      issued.Add(time.Duration(id-1000) * time.Minute),
			DateExpired:     &exp,
			Items:           items,
		}
	}

	tackle := []entities.ContractItem{line(Rifter, 1), line(WarpScrambler, 1), line(StasisWeb, 1)}
	armor := []entities.ContractItem{line(Rifter, 1), line(ArmorPlate, 2)}
	slasher := []entities.ContractItem{line(Slasher, 1), line(WarpScrambler, 1)}

	other := contract(1008, MainPilot, "Main Pilot", JitaStation, entities.StatusOutstanding, live, 3_000_000, tackle...)
	other.CorporationID = Corporation + 1

	return []*entities.Contract{
		contract(1001, MainPilot, "Main Pilot", JitaStation, entities.StatusOutstanding, live, 3_000_000, tackle...),
		contract(1002, AltPilot, "Alt Pilot", JitaStation, entities.StatusOutstanding, live, 4_000_000,
			append(append([]entities.ContractItem{}, tackle...), line(ArmorPlate, 2))...),
		contract(1003, SoloPilot, "Solo Pilot", AmarrStation, entities.StatusOutstanding, live, 1_500_000, slasher...),
		contract(1004, MainPilot, "Main Pilot", JitaStation, entities.StatusDeleted, live, 1_250_000, armor...),
		contract(1005, AltPilot, "Alt Pilot", JitaStation, entities.StatusOutstanding, gone, 3_000_000, tackle...),
		contract(1006, SoloPilot, "Solo Pilot", DodixieStation, entities.StatusOutstanding, live, 1_500_000, slasher...),
		contract(1007, MainPilot, "Main Pilot", JitaStation, entities.StatusOutstanding, live, 500_000, line(Rifter, 1)),
		other,
	}
}

// BuildFrigateStore loads the complete frigate scenario into a fresh in-memory store
func BuildFrigateStore(now time.Time) *memory.Store {
	ctx := context.Background()
	store := memory.NewStore()

	_ = store.Catalog.LoadItemTypes(ctx, FrigateItemTypes())
	_ = store.Catalog.LoadFittings(ctx, FrigateFittings())
	_ = store.Catalog.LoadDoctrines(ctx, FrigateDoctrines())
	_ = store.Prices.LoadPrices(ctx, FrigatePrices())
	_ = store.Stock.LoadLocations(ctx, FrigateLocations())
	_, _ = store.Stock.EnsureRequests(ctx, FrigateRequests())
	for _, c := range FrigateClaims() {
		_ = store.Stock.SaveClaim(ctx, c)
	}
	_ = store.Contracts.LoadContracts(ctx, FrigateContracts(now))
	_ = store.Identities.LoadIdentities(ctx, FrigateIdentities())

	return store
}
