package commands

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/infrastructure/repositories/csv"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Contracts int    // Number of contracts to generate
	OutputDir string // Output directory for generated files
	Seed      int64  // Random seed for reproducible generation
	Now       string // Newest contract date, RFC 3339; empty means now
	Help      bool
	Verbose   bool
	Stdout    io.Writer
}

// GenerateCommand writes a random but internally consistent scenario
// directory that the CSV loader reads back
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
	out    io.Writer
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.Contracts <= 0 {
		config.Contracts = 100
	}
	out := config.Stdout
	if out == nil {
		out = os.Stdout
	}
	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
		out:    out,
	}
}

type genType struct {
	id       int64
	name     string
	volume   string
	packaged string
	buy      decimal.Decimal
	sell     decimal.Decimal
}

type genComponent struct {
	typeID int64
	qty    int64
}

type genFitting struct {
	id         int64
	name       string
	hull       int64
	components []genComponent
}

type genSystem struct {
	id        int64
	name      string
	active    bool
	locations []int64
}

type genIdentity struct {
	id      int64
	name    string
	display int64
}

type genContract struct {
	id       int64
	issuer   genIdentity
	corp     int64
	location int64
	price    decimal.Decimal
	status   string
	issued   time.Time
	items    []genComponent
}

// scenario is the generated data set before it is written out
type scenario struct {
	hulls      []genType
	modules    []genType
	fittings   []genFitting
	systems    []genSystem
	identities []genIdentity
	contracts  []genContract
}

var hullNames = []struct {
	name     string
	volume   int64
	packaged int64
}{
	{"Rifter", 27289, 2500},
	{"Slasher", 17400, 2500},
	{"Merlin", 16500, 2500},
	{"Tristan", 26500, 2500},
	{"Thrasher", 43000, 5000},
	{"Caracal", 92000, 10000},
	{"Vexor", 115000, 10000},
	{"Hurricane", 216000, 15000},
}

var moduleNames = []struct {
	name   string
	volume string
	ammo   bool
}{
	{"Warp Scrambler I", "5", false},
	{"Stasis Webifier I", "5", false},
	{"200mm Steel Plates I", "10", false},
	{"Damage Control I", "5", false},
	{"1MN Afterburner I", "5", false},
	{"Small Armor Repairer I", "5", false},
	{"Light Missile Launcher I", "5", false},
	{"Medium Shield Extender I", "10", false},
	{"Gyrostabilizer I", "5", false},
	{"Nanofiber Internal Structure I", "5", false},
	{"Hobgoblin I", "5", false},
	{"EMP S", "0.0025", true},
	{"Nova Light Missile", "0.015", true},
}

var roles = []string{"Tackle", "Brawler", "Kite"}

var systemNames = []struct {
	id   int64
	name string
}{
	{30000142, "Jita"},
	{30002187, "Amarr"},
	{30002659, "Dodixie"},
	{30002510, "Rens"},
}

var pilotNames = []string{
	"Aura Vex", "Brin Kael", "Cato Marr", "Dessa Lune", "Eron Valk", "Fenn Orru",
	"Gale Tamsin", "Hadra Voss", "Ilya Crane", "Juno Rask", "Kestrel Moor", "Lio Farn",
}

const (
	mainCorporation  = 98000001
	otherCorporation = 98000002
)

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}
	if cmd.config.OutputDir == "" {
		return fmt.Errorf("generate requires -output <dir>")
	}

	now := time.Now().UTC()
	if cmd.config.Now != "" {
		t, err := time.Parse(time.RFC3339, cmd.config.Now)
		if err != nil {
			return fmt.Errorf("invalid -now %q (expected RFC 3339): %w", cmd.config.Now, err)
		}
		now = t.UTC()
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "Generating scenario with %d contracts into %s (seed %d)\n",
			cmd.config.Contracts, cmd.config.OutputDir, cmd.config.Seed)
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &scenario{}
	cmd.generateTypes(s)
	cmd.generateFittings(s)
	cmd.generateSystems(s)
	cmd.generateIdentities(s)
	cmd.generateContracts(s, now)

	writers := []struct {
		file  string
		write func(io.Writer, *scenario)
	}{
		{csv.ItemTypesFile, cmd.writeItemTypes},
		{csv.PricesFile, cmd.writePrices},
		{csv.FittingsFile, cmd.writeFittings},
		{csv.FittingComponentsFile, cmd.writeComponents},
		{csv.DoctrinesFile, cmd.writeDoctrines},
		{csv.LocationsFile, cmd.writeLocations},
		{csv.RequestsFile, cmd.writeRequests},
		{csv.ClaimsFile, cmd.writeClaims},
		{csv.IdentitiesFile, cmd.writeIdentities},
		{csv.ContractsFile, cmd.writeContracts},
		{csv.ContractItemsFile, cmd.writeContractItems},
		{csv.SubsidiesFile, cmd.writeSubsidies},
	}
	for _, w := range writers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cmd.writeFile(w.file, s, w.write); err != nil {
			return fmt.Errorf("failed to generate %s: %w", w.file, err)
		}
		if cmd.config.Verbose {
			fmt.Fprintf(cmd.out, "  wrote %s\n", w.file)
		}
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "Scenario generated in %s: %d fittings, %d identities, %d contracts\n",
			cmd.config.OutputDir, len(s.fittings), len(s.identities), len(s.contracts))
	}
	return nil
}

func (cmd *GenerateCommand) writeFile(name string, s *scenario, write func(io.Writer, *scenario)) error {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, name))
	if err != nil {
		return err
	}
	write(file, s)
	return file.Close()
}

// price returns a sell price around base with buy a few percent below it
func (cmd *GenerateCommand) price(base int64) (decimal.Decimal, decimal.Decimal) {
	sell := decimal.NewFromInt(base).Mul(decimal.NewFromFloat(0.8 + cmd.rand.Float64()*0.4)).Round(2)
	buy := sell.Mul(decimal.NewFromFloat(0.90 + cmd.rand.Float64()*0.08)).Round(2)
	return buy, sell
}

func (cmd *GenerateCommand) generateTypes(s *scenario) {
	for i, h := range hullNames {
		buy, sell := cmd.price(h.packaged * 200)
		s.hulls = append(s.hulls, genType{
			id: int64(5000 + i), name: h.name,
			volume:   strconv.FormatInt(h.volume, 10),
			packaged: strconv.FormatInt(h.packaged, 10),
			buy:      buy, sell: sell,
		})
	}
	for i, m := range moduleNames {
		base := int64(20_000 + cmd.rand.Intn(400_000))
		if m.ammo {
			base = int64(5 + cmd.rand.Intn(200))
		}
		buy, sell := cmd.price(base)
		s.modules = append(s.modules, genType{
			id: int64(10000 + i), name: m.name, volume: m.volume, buy: buy, sell: sell,
		})
	}
}

// generateFittings gives every hull one to two fittings of distinct modules
func (cmd *GenerateCommand) generateFittings(s *scenario) {
	id := int64(1)
	for _, hull := range s.hulls {
		n := 1 + cmd.rand.Intn(2)
		for r := 0; r < n; r++ {
			f := genFitting{id: id, name: hull.name + " " + roles[(int(id)+r)%len(roles)], hull: hull.id}
			for _, idx := range cmd.rand.Perm(len(s.modules))[:3+cmd.rand.Intn(4)] {
				qty := int64(1 + cmd.rand.Intn(3))
				if moduleNames[idx].ammo {
					qty = int64(100 + cmd.rand.Intn(900))
				}
				f.components = append(f.components, genComponent{typeID: s.modules[idx].id, qty: qty})
			}
			s.fittings = append(s.fittings, f)
			id++
		}
	}
}

func (cmd *GenerateCommand) generateSystems(s *scenario) {
	for i, sys := range systemNames {
		g := genSystem{id: sys.id, name: sys.name, active: i < len(systemNames)-1}
		for j := 0; j < 1+cmd.rand.Intn(2); j++ {
			g.locations = append(g.locations, int64(60000000+i*1000+j))
		}
		s.systems = append(s.systems, g)
	}
}

// generateIdentities creates mains with up to two alts each, plus one
// character that maps to no main
func (cmd *GenerateCommand) generateIdentities(s *scenario) {
	mains := cmd.config.Contracts / 20
	if mains < 3 {
		mains = 3
	}
	id := int64(90000001)
	for m := 0; m < mains; m++ {
		name := pilotNames[m%len(pilotNames)]
		if m >= len(pilotNames) {
			name = fmt.Sprintf("%s %d", name, m/len(pilotNames)+1)
		}
		main := genIdentity{id: id, name: name, display: id}
		s.identities = append(s.identities, main)
		id++
		for a := 0; a < cmd.rand.Intn(3); a++ {
			s.identities = append(s.identities, genIdentity{
				id: id, name: fmt.Sprintf("%s Alt %d", name, a+1), display: main.id,
			})
			id++
		}
	}
	s.identities = append(s.identities, genIdentity{id: id, name: "Unlinked Pilot"})
}

func (cmd *GenerateCommand) pickStatus() string {
	switch r := cmd.rand.Intn(100); {
	case r < 60:
		return "outstanding"
	case r < 70:
		return "in_progress"
	case r < 85:
		return "finished"
	case r < 95:
		return "expired"
	default:
		return "deleted"
	}
}

func (s *scenario) typeByID(id int64) genType {
	if id < 10000 {
		return s.hulls[id-5000]
	}
	return s.modules[id-10000]
}

// generateContracts stocks most contracts with a fitting, sometimes one
// module short or over, and fills the rest with loose modules
func (cmd *GenerateCommand) generateContracts(s *scenario, now time.Time) {
	for i := 0; i < cmd.config.Contracts; i++ {
		c := genContract{
			id:     int64(200000000 + i),
			issuer: s.identities[cmd.rand.Intn(len(s.identities))],
			corp:   mainCorporation,
			status: cmd.pickStatus(),
			issued: now.Add(-time.Duration(cmd.rand.Intn(30*24*60)) * time.Minute),
		}
		if cmd.rand.Intn(10) == 0 {
			c.corp = otherCorporation
		}
		sys := s.systems[cmd.rand.Intn(len(s.systems))]
		c.location = sys.locations[cmd.rand.Intn(len(sys.locations))]

		if cmd.rand.Intn(5) > 0 {
			f := s.fittings[cmd.rand.Intn(len(s.fittings))]
			c.items = append(c.items, genComponent{typeID: f.hull, qty: 1})
			comps := f.components
			if cmd.rand.Intn(10) == 0 {
				comps = comps[:len(comps)-1]
			}
			c.items = append(c.items, comps...)
			if cmd.rand.Intn(10) == 0 {
				c.items = append(c.items, genComponent{typeID: s.modules[cmd.rand.Intn(len(s.modules))].id, qty: 1})
			}
		} else {
			for _, idx := range cmd.rand.Perm(len(s.modules))[:2+cmd.rand.Intn(3)] {
				c.items = append(c.items, genComponent{typeID: s.modules[idx].id, qty: int64(1 + cmd.rand.Intn(4))})
			}
		}

		value := decimal.Zero
		for _, it := range c.items {
			value = value.Add(s.typeByID(it.typeID).sell.Mul(decimal.NewFromInt(it.qty)))
		}
		c.price = value.Mul(decimal.NewFromFloat(0.9 + cmd.rand.Float64()*0.4)).Round(0)
		s.contracts = append(s.contracts, c)
	}
}

func (cmd *GenerateCommand) writeItemTypes(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "type_id,name,volume,packaged_volume")
	for _, t := range append(append([]genType{}, s.hulls...), s.modules...) {
		fmt.Fprintf(w, "%d,%s,%s,%s\n", t.id, t.name, t.volume, t.packaged)
	}
}

func (cmd *GenerateCommand) writePrices(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "type_id,buy,sell")
	for _, t := range append(append([]genType{}, s.hulls...), s.modules...) {
		fmt.Fprintf(w, "%d,%s,%s\n", t.id, t.buy.StringFixed(2), t.sell.StringFixed(2))
	}
}

func (cmd *GenerateCommand) writeFittings(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "fitting_id,name,hull_type_id")
	for _, f := range s.fittings {
		fmt.Fprintf(w, "%d,%s,%d\n", f.id, f.name, f.hull)
	}
}

func (cmd *GenerateCommand) writeComponents(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "fitting_id,type_id,quantity")
	for _, f := range s.fittings {
		for _, c := range f.components {
			fmt.Fprintf(w, "%d,%d,%d\n", f.id, c.typeID, c.qty)
		}
	}
}

// writeDoctrines groups fittings by role; every fitting lands in one doctrine
func (cmd *GenerateCommand) writeDoctrines(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "doctrine_id,name,fitting_ids")
	for i, role := range roles {
		var ids []string
		for _, f := range s.fittings {
			if strings.HasSuffix(f.name, " "+role) {
				ids = append(ids, strconv.FormatInt(f.id, 10))
			}
		}
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintf(w, "%d,%s Doctrine,%s\n", i+1, role, strings.Join(ids, ";"))
	}
}

func (cmd *GenerateCommand) writeLocations(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "system_id,name,active,location_ids")
	for _, sys := range s.systems {
		ids := make([]string, 0, len(sys.locations))
		for _, id := range sys.locations {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		fmt.Fprintf(w, "%d,%s,%t,%s\n", sys.id, sys.name, sys.active, strings.Join(ids, ";"))
	}
}

func (cmd *GenerateCommand) writeRequests(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "fitting_id,system_id,requested")
	for _, sys := range s.systems {
		if !sys.active {
			continue
		}
		for _, f := range s.fittings {
			fmt.Fprintf(w, "%d,%d,%d\n", f.id, sys.id, cmd.rand.Intn(11))
		}
	}
}

func (cmd *GenerateCommand) writeClaims(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "fitting_id,identity_id,quantity")
	for _, f := range s.fittings {
		if cmd.rand.Intn(3) != 0 {
			continue
		}
		who := s.identities[cmd.rand.Intn(len(s.identities))]
		fmt.Fprintf(w, "%d,%d,%d\n", f.id, who.id, 1+cmd.rand.Intn(3))
	}
}

func (cmd *GenerateCommand) writeIdentities(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "identity_id,name,display_id")
	for _, id := range s.identities {
		display := ""
		if id.display != 0 {
			display = strconv.FormatInt(id.display, 10)
		}
		fmt.Fprintf(w, "%d,%s,%s\n", id.id, id.name, display)
	}
}

func (cmd *GenerateCommand) writeContracts(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "contract_id,issuer_id,issuer_name,corporation_id,start_location_id,price,status,date_issued,date_expired")
	for _, c := range s.contracts {
		fmt.Fprintf(w, "%d,%d,%s,%d,%d,%s,%s,%s,%s\n",
			c.id, c.issuer.id, c.issuer.name, c.corp, c.location, c.price.String(), c.status,
			c.issued.Format(time.RFC3339), c.issued.AddDate(0, 0, 14).Format(time.RFC3339))
	}
}

func (cmd *GenerateCommand) writeContractItems(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "contract_id,type_id,quantity,included")
	for _, c := range s.contracts {
		for _, it := range c.items {
			fmt.Fprintf(w, "%d,%d,%d,true\n", c.id, it.typeID, it.qty)
		}
	}
}

// writeSubsidies reviews about a third of the contracts so the payment
// reports have something to show
func (cmd *GenerateCommand) writeSubsidies(w io.Writer, s *scenario) {
	fmt.Fprintln(w, "contract_id,review_status,amount,reason,paid,exempt,forced_fitting_id")
	for _, c := range s.contracts {
		if cmd.rand.Intn(3) != 0 {
			continue
		}
		amount := c.price.Mul(decimal.NewFromFloat(0.1)).Round(-5)
		switch r := cmd.rand.Intn(10); {
		case r < 6:
			fmt.Fprintf(w, "%d,approved,%s,,%t,false,\n", c.id, amount.String(), cmd.rand.Intn(2) == 0)
		case r < 8:
			fmt.Fprintf(w, "%d,rejected,0,Overpriced,false,false,\n", c.id)
		default:
			fmt.Fprintf(w, "%d,pending,0,,false,false,\n", c.id)
		}
	}
}

// printHelp shows usage information
func (cmd *GenerateCommand) printHelp() {
	fmt.Fprintln(cmd.out, `Subsidy Scenario Generator

USAGE:
    subsidy generate [OPTIONS]

OPTIONS:
    -output <DIR>       Output directory for generated files (required)
    -contracts <N>      Number of contracts to generate (default 100)
    -seed <N>           Random seed for reproducible generation (optional)
    -now <TIME>         Newest contract date, RFC 3339 (default: now)
    -verbose            Enable verbose output
    -help               Show this help message

EXAMPLES:
    # Generate a small scenario
    subsidy generate -output ./scenario -contracts 50

    # Generate a reproducible scenario
    subsidy generate -output ./repro -contracts 500 -seed 12345 -now 2024-06-01T00:00:00Z`)
}
