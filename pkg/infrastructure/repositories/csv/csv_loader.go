package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/domain/entities"
	"github.com/vsinha/subsidy/pkg/domain/repositories"
	"github.com/vsinha/subsidy/pkg/infrastructure/logger"
)

// Scenario file names inside a scenario directory
const (
	ItemTypesFile         = "item_types.csv"
	PricesFile            = "prices.csv"
	FittingsFile          = "fittings.csv"
	FittingComponentsFile = "fitting_components.csv"
	DoctrinesFile         = "doctrines.csv"
	LocationsFile         = "locations.csv"
	RequestsFile          = "requests.csv"
	ClaimsFile            = "claims.csv"
	ContractsFile         = "contracts.csv"
	ContractItemsFile     = "contract_items.csv"
	IdentitiesFile        = "identities.csv"
	SubsidiesFile         = "subsidies.csv"
)

// Dates in contracts.csv are RFC 3339; a bare date is accepted too
const dateLayout = "2006-01-02"

// Scenario is everything read from a scenario directory
type Scenario struct {
	ItemTypes  []*entities.ItemType
	Prices     []*entities.ItemPrice
	Fittings   []*entities.Fitting
	Doctrines  []*entities.Doctrine
	Locations  []*entities.DeploymentLocation
	Requests   []*entities.StockRequest
	Claims     []*entities.Claim
	Contracts  []*entities.Contract
	Identities []entities.Identity
	Subsidies  []*entities.SubsidyRecord
}

// Sink receives a scenario. Both the memory and the SQL store satisfy it
// field by field.
type Sink struct {
	Catalog    repositories.CatalogRepository
	Prices     interface{ LoadPrices(context.Context, []*entities.ItemPrice) error }
	Stock      repositories.StockRepository
	Contracts  repositories.ContractRepository
	Subsidies  interface{ LoadSubsidies(context.Context, []*entities.SubsidyRecord) error }
	Identities interface{ LoadIdentities(context.Context, []entities.Identity) error }
}

// Loader handles loading scenario data from CSV files
type Loader struct {
	log *logger.Logger
}

// NewLoader creates a new CSV loader
func NewLoader(log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{log: log.Named("csv")}
}

// LoadDir reads every scenario file present in dir. Missing files are
// skipped; item_types.csv is required.
func (l *Loader) LoadDir(dir string) (*Scenario, error) {
	s := &Scenario{}
	var err error

	if s.ItemTypes, err = l.LoadItemTypes(filepath.Join(dir, ItemTypesFile)); err != nil {
		return nil, err
	}
	if s.Prices, err = optional(l.LoadPrices, dir, PricesFile); err != nil {
		return nil, err
	}
	if s.Fittings, err = l.LoadFittings(filepath.Join(dir, FittingsFile), filepath.Join(dir, FittingComponentsFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if s.Doctrines, err = optional(l.LoadDoctrines, dir, DoctrinesFile); err != nil {
		return nil, err
	}
	if s.Locations, err = optional(l.LoadLocations, dir, LocationsFile); err != nil {
		return nil, err
	}
	if s.Requests, err = optional(l.LoadRequests, dir, RequestsFile); err != nil {
		return nil, err
	}
	if s.Claims, err = optional(l.LoadClaims, dir, ClaimsFile); err != nil {
		return nil, err
	}
	if s.Contracts, err = l.LoadContracts(filepath.Join(dir, ContractsFile), filepath.Join(dir, ContractItemsFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if s.Identities, err = optional(l.LoadIdentities, dir, IdentitiesFile); err != nil {
		return nil, err
	}
	if s.Subsidies, err = optional(l.LoadSubsidies, dir, SubsidiesFile); err != nil {
		return nil, err
	}

	l.log.Info("scenario loaded",
		"dir", dir,
		"item_types", len(s.ItemTypes),
		"fittings", len(s.Fittings),
		"contracts", len(s.Contracts),
		"identities", len(s.Identities))
	return s, nil
}

func optional[T any](load func(string) ([]T, error), dir, name string) ([]T, error) {
	out, err := load(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return out, err
}

// Apply writes the scenario into the sink
func (s *Scenario) Apply(ctx context.Context, sink Sink) error {
	if err := sink.Catalog.LoadItemTypes(ctx, s.ItemTypes); err != nil {
		return fmt.Errorf("load item types: %w", err)
	}
	if err := sink.Catalog.LoadFittings(ctx, s.Fittings); err != nil {
		return fmt.Errorf("load fittings: %w", err)
	}
	if err := sink.Catalog.LoadDoctrines(ctx, s.Doctrines); err != nil {
		return fmt.Errorf("load doctrines: %w", err)
	}
	if err := sink.Prices.LoadPrices(ctx, s.Prices); err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	if err := sink.Stock.LoadLocations(ctx, s.Locations); err != nil {
		return fmt.Errorf("load locations: %w", err)
	}
	for _, req := range s.Requests {
		if _, err := sink.Stock.SetRequested(ctx, req.FittingID, req.SystemID, req.Requested); err != nil {
			return fmt.Errorf("load requests: %w", err)
		}
	}
	for _, c := range s.Claims {
		if err := sink.Stock.SaveClaim(ctx, c); err != nil {
			return fmt.Errorf("load claims: %w", err)
		}
	}
	if err := sink.Contracts.LoadContracts(ctx, s.Contracts); err != nil {
		return fmt.Errorf("load contracts: %w", err)
	}
	if err := sink.Identities.LoadIdentities(ctx, s.Identities); err != nil {
		return fmt.Errorf("load identities: %w", err)
	}
	if err := sink.Subsidies.LoadSubsidies(ctx, s.Subsidies); err != nil {
		return fmt.Errorf("load subsidies: %w", err)
	}
	return nil
}

// readRecords opens a CSV file, checks its header and returns the data rows.
// A missing file is reported with fs.ErrNotExist in the chain.
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}
	return records[1:], nil
}

// LoadItemTypes loads item types from a CSV file
func (l *Loader) LoadItemTypes(filename string) ([]*entities.ItemType, error) {
	records, err := readRecords(filename, "item types", []string{"type_id", "name", "volume", "packaged_volume"})
	if err != nil {
		return nil, err
	}

	var types []*entities.ItemType
	for i, record := range records {
		id, err := parseID(record[0], "type_id")
		if err != nil {
			return nil, fmt.Errorf("item types CSV row %d: %w", i+2, err)
		}
		volume, err := parseOptionalDecimal(record[2], "volume")
		if err != nil {
			return nil, fmt.Errorf("item types CSV row %d: %w", i+2, err)
		}
		packaged, err := parseOptionalDecimal(record[3], "packaged_volume")
		if err != nil {
			return nil, fmt.Errorf("item types CSV row %d: %w", i+2, err)
		}
		t, err := entities.NewItemType(entities.TypeID(id), strings.TrimSpace(record[1]), volume, packaged)
		if err != nil {
			return nil, fmt.Errorf("item types CSV row %d: %w", i+2, err)
		}
		types = append(types, t)
	}
	return types, nil
}

// LoadPrices loads cached market prices from a CSV file
func (l *Loader) LoadPrices(filename string) ([]*entities.ItemPrice, error) {
	records, err := readRecords(filename, "prices", []string{"type_id", "buy", "sell"})
	if err != nil {
		return nil, err
	}

	var prices []*entities.ItemPrice
	for i, record := range records {
		id, err := parseID(record[0], "type_id")
		if err != nil {
			return nil, fmt.Errorf("prices CSV row %d: %w", i+2, err)
		}
		buy, err := parseDecimal(record[1], "buy")
		if err != nil {
			return nil, fmt.Errorf("prices CSV row %d: %w", i+2, err)
		}
		sell, err := parseDecimal(record[2], "sell")
		if err != nil {
			return nil, fmt.Errorf("prices CSV row %d: %w", i+2, err)
		}
		prices = append(prices, &entities.ItemPrice{TypeID: entities.TypeID(id), Buy: buy, Sell: sell})
	}
	return prices, nil
}

// LoadFittings loads fittings and their component lines. Components keep
// file order within a fitting.
func (l *Loader) LoadFittings(fittingsFile, componentsFile string) ([]*entities.Fitting, error) {
	records, err := readRecords(fittingsFile, "fittings", []string{"fitting_id", "name", "hull_type_id"})
	if err != nil {
		return nil, err
	}

	components := make(map[entities.FittingID][]entities.Component)
	lines, err := readRecords(componentsFile, "fitting components", []string{"fitting_id", "type_id", "quantity"})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for i, record := range lines {
		fid, err := parseID(record[0], "fitting_id")
		if err != nil {
			return nil, fmt.Errorf("fitting components CSV row %d: %w", i+2, err)
		}
		tid, err := parseID(record[1], "type_id")
		if err != nil {
			return nil, fmt.Errorf("fitting components CSV row %d: %w", i+2, err)
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fitting components CSV row %d: invalid quantity: %s", i+2, record[2])
		}
		components[entities.FittingID(fid)] = append(components[entities.FittingID(fid)],
			entities.Component{TypeID: entities.TypeID(tid), Quantity: entities.Quantity(qty)})
	}

	var fittings []*entities.Fitting
	for i, record := range records {
		id, err := parseID(record[0], "fitting_id")
		if err != nil {
			return nil, fmt.Errorf("fittings CSV row %d: %w", i+2, err)
		}
		hull, err := parseID(record[2], "hull_type_id")
		if err != nil {
			return nil, fmt.Errorf("fittings CSV row %d: %w", i+2, err)
		}
		f, err := entities.NewFitting(entities.FittingID(id), strings.TrimSpace(record[1]), entities.TypeID(hull), components[entities.FittingID(id)])
		if err != nil {
			return nil, fmt.Errorf("fittings CSV row %d: %w", i+2, err)
		}
		fittings = append(fittings, f)
	}
	return fittings, nil
}

// LoadDoctrines loads doctrines; fitting_ids is a ';' separated list
func (l *Loader) LoadDoctrines(filename string) ([]*entities.Doctrine, error) {
	records, err := readRecords(filename, "doctrines", []string{"doctrine_id", "name", "fitting_ids"})
	if err != nil {
		return nil, err
	}

	var doctrines []*entities.Doctrine
	for i, record := range records {
		id, err := parseID(record[0], "doctrine_id")
		if err != nil {
			return nil, fmt.Errorf("doctrines CSV row %d: %w", i+2, err)
		}
		ids, err := parseIDList(record[2], "fitting_ids")
		if err != nil {
			return nil, fmt.Errorf("doctrines CSV row %d: %w", i+2, err)
		}
		fittingIDs := make([]entities.FittingID, 0, len(ids))
		for _, v := range ids {
			fittingIDs = append(fittingIDs, entities.FittingID(v))
		}
		d, err := entities.NewDoctrine(entities.DoctrineID(id), strings.TrimSpace(record[1]), fittingIDs)
		if err != nil {
			return nil, fmt.Errorf("doctrines CSV row %d: %w", i+2, err)
		}
		doctrines = append(doctrines, d)
	}
	return doctrines, nil
}

// LoadLocations loads deployment systems; location_ids is a ';' separated list
func (l *Loader) LoadLocations(filename string) ([]*entities.DeploymentLocation, error) {
	records, err := readRecords(filename, "locations", []string{"system_id", "name", "active", "location_ids"})
	if err != nil {
		return nil, err
	}

	var locations []*entities.DeploymentLocation
	for i, record := range records {
		id, err := parseID(record[0], "system_id")
		if err != nil {
			return nil, fmt.Errorf("locations CSV row %d: %w", i+2, err)
		}
		active, err := parseBool(record[2], "active")
		if err != nil {
			return nil, fmt.Errorf("locations CSV row %d: %w", i+2, err)
		}
		ids, err := parseIDList(record[3], "location_ids")
		if err != nil {
			return nil, fmt.Errorf("locations CSV row %d: %w", i+2, err)
		}
		locIDs := make([]entities.LocationID, 0, len(ids))
		for _, v := range ids {
			locIDs = append(locIDs, entities.LocationID(v))
		}
		loc, err := entities.NewDeploymentLocation(entities.SystemID(id), strings.TrimSpace(record[1]), active, locIDs)
		if err != nil {
			return nil, fmt.Errorf("locations CSV row %d: %w", i+2, err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// LoadRequests loads requested stock targets
func (l *Loader) LoadRequests(filename string) ([]*entities.StockRequest, error) {
	records, err := readRecords(filename, "requests", []string{"fitting_id", "system_id", "requested"})
	if err != nil {
		return nil, err
	}

	var requests []*entities.StockRequest
	for i, record := range records {
		fid, sid, n, err := parseTriple(record, "fitting_id", "system_id", "requested")
		if err != nil {
			return nil, fmt.Errorf("requests CSV row %d: %w", i+2, err)
		}
		req, err := entities.NewStockRequest(entities.FittingID(fid), entities.SystemID(sid), n)
		if err != nil {
			return nil, fmt.Errorf("requests CSV row %d: %w", i+2, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// LoadClaims loads claims
func (l *Loader) LoadClaims(filename string) ([]*entities.Claim, error) {
	records, err := readRecords(filename, "claims", []string{"fitting_id", "identity_id", "quantity"})
	if err != nil {
		return nil, err
	}

	var claims []*entities.Claim
	for i, record := range records {
		fid, iid, n, err := parseTriple(record, "fitting_id", "identity_id", "quantity")
		if err != nil {
			return nil, fmt.Errorf("claims CSV row %d: %w", i+2, err)
		}
		c, err := entities.NewClaim(entities.FittingID(fid), entities.IdentityID(iid), n)
		if err != nil {
			return nil, fmt.Errorf("claims CSV row %d: %w", i+2, err)
		}
		claims = append(claims, c)
	}
	return claims, nil
}

// LoadContracts loads contracts and their line items
func (l *Loader) LoadContracts(contractsFile, itemsFile string) ([]*entities.Contract, error) {
	records, err := readRecords(contractsFile, "contracts", []string{
		"contract_id", "issuer_id", "issuer_name", "corporation_id", "start_location_id",
		"price", "status", "date_issued", "date_expired",
	})
	if err != nil {
		return nil, err
	}

	items := make(map[entities.ContractID][]entities.ContractItem)
	lines, err := readRecords(itemsFile, "contract items", []string{"contract_id", "type_id", "quantity", "included"})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for i, record := range lines {
		cid, tid, qty, err := parseTriple(record, "contract_id", "type_id", "quantity")
		if err != nil {
			return nil, fmt.Errorf("contract items CSV row %d: %w", i+2, err)
		}
		included, err := parseBool(record[3], "included")
		if err != nil {
			return nil, fmt.Errorf("contract items CSV row %d: %w", i+2, err)
		}
		items[entities.ContractID(cid)] = append(items[entities.ContractID(cid)],
			entities.ContractItem{TypeID: entities.TypeID(tid), Quantity: entities.Quantity(qty), Included: included})
	}

	var contracts []*entities.Contract
	for i, record := range records {
		c, err := parseContract(record, items)
		if err != nil {
			return nil, fmt.Errorf("contracts CSV row %d: %w", i+2, err)
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

// LoadIdentities loads characters; display_id may be empty for unmapped ones
func (l *Loader) LoadIdentities(filename string) ([]entities.Identity, error) {
	records, err := readRecords(filename, "identities", []string{"identity_id", "name", "display_id"})
	if err != nil {
		return nil, err
	}

	var identities []entities.Identity
	for i, record := range records {
		id, err := parseID(record[0], "identity_id")
		if err != nil {
			return nil, fmt.Errorf("identities CSV row %d: %w", i+2, err)
		}
		var display int64
		if strings.TrimSpace(record[2]) != "" {
			if display, err = parseID(record[2], "display_id"); err != nil {
				return nil, fmt.Errorf("identities CSV row %d: %w", i+2, err)
			}
		}
		identities = append(identities, entities.Identity{
			ID:        entities.IdentityID(id),
			Name:      strings.TrimSpace(record[1]),
			DisplayID: entities.IdentityID(display),
		})
	}
	return identities, nil
}

// LoadSubsidies loads previously reviewed subsidy records
func (l *Loader) LoadSubsidies(filename string) ([]*entities.SubsidyRecord, error) {
	records, err := readRecords(filename, "subsidies", []string{
		"contract_id", "review_status", "amount", "reason", "paid", "exempt", "forced_fitting_id",
	})
	if err != nil {
		return nil, err
	}

	var subsidies []*entities.SubsidyRecord
	for i, record := range records {
		rec, err := parseSubsidy(record)
		if err != nil {
			return nil, fmt.Errorf("subsidies CSV row %d: %w", i+2, err)
		}
		subsidies = append(subsidies, rec)
	}
	return subsidies, nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseID(s, field string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", field, s)
	}
	return v, nil
}

func parseIDList(s, field string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := parseID(part, field)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseTriple(record []string, a, b, c string) (int64, int64, int64, error) {
	first, err := parseID(record[0], a)
	if err != nil {
		return 0, 0, 0, err
	}
	second, err := parseID(record[1], b)
	if err != nil {
		return 0, 0, 0, err
	}
	third, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid %s: %s", c, record[2])
	}
	return first, second, third, nil
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}

func parseOptionalDecimal(s, field string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parseDecimal(s, field)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseBool(s, field string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s: %s (expected true or false)", field, s)
	}
}

func parseTime(s, field string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %s (expected RFC 3339 or YYYY-MM-DD)", field, s)
	}
	return t, nil
}

func parseContract(record []string, items map[entities.ContractID][]entities.ContractItem) (*entities.Contract, error) {
	id, err := parseID(record[0], "contract_id")
	if err != nil {
		return nil, err
	}
	issuer, err := parseID(record[1], "issuer_id")
	if err != nil {
		return nil, err
	}
	corp, err := parseID(record[3], "corporation_id")
	if err != nil {
		return nil, err
	}
	var start int64
	if strings.TrimSpace(record[4]) != "" {
		if start, err = parseID(record[4], "start_location_id"); err != nil {
			return nil, err
		}
	}
	price, err := parseDecimal(record[5], "price")
	if err != nil {
		return nil, err
	}
	issued, err := parseTime(record[7], "date_issued")
	if err != nil {
		return nil, err
	}
	var expired *time.Time
	if strings.TrimSpace(record[8]) != "" {
		t, err := parseTime(record[8], "date_expired")
		if err != nil {
			return nil, err
		}
		expired = &t
	}

	return entities.NewContract(
		entities.ContractID(id),
		entities.IdentityID(issuer),
		strings.TrimSpace(record[2]),
		corp,
		entities.LocationID(start),
		price,
		entities.ContractStatus(strings.ToLower(strings.TrimSpace(record[6]))),
		issued,
		expired,
		items[entities.ContractID(id)],
	)
}

func parseSubsidy(record []string) (*entities.SubsidyRecord, error) {
	id, err := parseID(record[0], "contract_id")
	if err != nil {
		return nil, err
	}
	status, err := parseReviewStatus(record[1])
	if err != nil {
		return nil, err
	}
	amount, err := parseDecimal(record[2], "amount")
	if err != nil {
		return nil, err
	}
	paid, err := parseBool(record[4], "paid")
	if err != nil {
		return nil, err
	}
	exempt, err := parseBool(record[5], "exempt")
	if err != nil {
		return nil, err
	}

	rec := entities.NewSubsidyRecord(entities.ContractID(id))
	rec.ReviewStatus = status
	rec.Amount = amount
	rec.Reason = strings.TrimSpace(record[3])
	rec.Paid = paid
	rec.Exempt = exempt
	if strings.TrimSpace(record[6]) != "" {
		fid, err := parseID(record[6], "forced_fitting_id")
		if err != nil {
			return nil, err
		}
		forced := entities.FittingID(fid)
		rec.ForcedFittingID = &forced
	}
	return rec, nil
}

func parseReviewStatus(s string) (entities.ReviewStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "0", "":
		return entities.ReviewPending, nil
	case "approved", "1":
		return entities.ReviewApproved, nil
	case "rejected", "-1":
		return entities.ReviewRejected, nil
	default:
		return entities.ReviewPending, fmt.Errorf("invalid review_status: %s (expected pending, approved or rejected)", s)
	}
}
