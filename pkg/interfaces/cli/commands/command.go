package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/vsinha/subsidy/pkg/interfaces/cli/output"
)

// Config holds the flags shared by every subcommand
type Config struct {
	ConfigFile  string
	ScenarioDir string
	OutputDir   string
	Format      string
	Verbose     bool
	Quiet       bool
	Help        bool
	// Import applies the scenario to a SQL store
	Import bool

	ContractID int64
	FittingID  int64
	IdentityID int64
	SystemID   int64
	DoctrineID int64
	Quantity   int64
	Days       int
	Amount     string
	Reason     string
	Clear      bool
	Set        bool
	Now        string

	// generate only
	Contracts int
	Seed      int64

	// Stdout receives report output; nil means os.Stdout
	Stdout io.Writer
}

func (c Config) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

func (c Config) output() output.Config {
	return output.Config{
		Format:    c.Format,
		OutputDir: c.OutputDir,
		Verbose:   c.Verbose,
		Writer:    c.stdout(),
	}
}

// now returns the -now override or the wall clock
func (c Config) now() (time.Time, error) {
	if c.Now == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, c.Now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -now %q (expected RFC 3339): %w", c.Now, err)
	}
	return t.UTC(), nil
}

// Command is one CLI subcommand
type Command interface {
	Execute(ctx context.Context) error
}

// appCommand runs fn against a freshly wired App
type appCommand struct {
	config Config
	run    func(ctx context.Context, app *App, cfg Config) (output.Report, error)
}

func (c *appCommand) Execute(ctx context.Context) error {
	app, err := NewApp(ctx, c.config)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := c.run(ctx, app, c.config)
	if err != nil {
		return err
	}
	return output.Generate(report, c.config.output())
}

type entry struct {
	summary string
	build   func(Config) Command
}

var registry = map[string]entry{
	"stock":     {"doctrine stock summary per system", runWith(runStock)},
	"claim":     {"save or clear a claim (-fitting -identity -qty | -clear)", runWith(runClaim)},
	"requested": {"show or set requested stock (-system [-fitting|-doctrine -qty -set])", runWith(runRequested)},
	"review":    {"reviewer queue for the reporting window", runWith(runReview)},
	"approve":   {"approve a contract's subsidy (-contract [-amount])", runWith(runApprove)},
	"reject":    {"reject a contract's subsidy (-contract -reason [-amount])", runWith(runReject)},
	"force-fit": {"force or clear the fitting of a contract (-contract [-fitting])", runWith(runForceFit)},
	"valuation": {"valuation of one fitting (-fitting)", runWith(runValuation)},
	"pay":       {"mark every approved unpaid subsidy of a main paid (-identity)", runWith(runPay)},
	"payments":  {"payment summary per main", runWith(runPayments)},
	"contracts": {"contracts of a main with per-character totals (-identity)", runWith(runContracts)},
	"reconcile": {"run the reconciliation pass", runWith(runReconcile)},
	"refresh":   {"refresh cached prices from the price feed", runWith(runRefresh)},
	"import":    {"load the scenario directory into the SQL store", runWith(runImport)},
	"generate":  {"write a random scenario directory (-output -contracts -seed)", func(c Config) Command {
		return NewGenerateCommand(GenerateConfig{
			Contracts: c.Contracts,
			OutputDir: c.OutputDir,
			Seed:      c.Seed,
			Now:       c.Now,
			Help:      c.Help,
			Verbose:   c.Verbose,
			Stdout:    c.stdout(),
		})
	}},
}

func runWith(fn func(ctx context.Context, app *App, cfg Config) (output.Report, error)) func(Config) Command {
	return func(c Config) Command { return &appCommand{config: c, run: fn} }
}

// New returns the named subcommand
func New(name string, config Config) (Command, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", name)
	}
	return e.build(config), nil
}

// Names lists the subcommands in alphabetical order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShowHelp writes the usage message
func ShowHelp(w io.Writer) {
	fmt.Fprintf(w, `subsidy - doctrine stock and subsidy ledger

USAGE:
    subsidy <command> [options]

COMMANDS:
`)
	for _, name := range Names() {
		fmt.Fprintf(w, "    %-10s %s\n", name, registry[name].summary)
	}
	fmt.Fprintf(w, `
OPTIONS:
    -config <file>      YAML settings (database, log, reconcile, scope)
    -scenario <dir>     Scenario directory with CSV files
    -format <fmt>       Output format: text, json, csv, xlsx, html (default: text)
    -output <dir>       Output directory for csv/xlsx/html/json files
    -contract <id>      Contract id
    -fitting <id>       Fitting id
    -identity <id>      Identity id (main for pay/contracts, viewer for stock)
    -system <id>        Deployment system id
    -doctrine <id>      Doctrine id
    -qty <n>            Quantity for claims and requested stock
    -amount <isk>       Reviewer amount override
    -reason <text>      Rejection reason
    -days <n>           Reporting window in days (overrides settings)
    -now <time>         Evaluation time, RFC 3339
    -clear              Clear instead of save (claim)
    -set                Write instead of show (requested)
    -contracts <n>      Contracts to generate (generate, default 100)
    -seed <n>           Random seed for reproducible generation (generate)
    -verbose            Verbose output
    -quiet              Only log warnings and errors
    -help               Show this help message

SCENARIO DIRECTORY STRUCTURE:
    item_types.csv          type_id,name,volume,packaged_volume
    prices.csv              type_id,buy,sell
    fittings.csv            fitting_id,name,hull_type_id
    fitting_components.csv  fitting_id,type_id,quantity
    doctrines.csv           doctrine_id,name,fitting_ids (';' separated)
    locations.csv           system_id,name,active,location_ids (';' separated)
    requests.csv            fitting_id,system_id,requested
    claims.csv              fitting_id,identity_id,quantity
    contracts.csv           contract_id,issuer_id,issuer_name,corporation_id,start_location_id,price,status,date_issued,date_expired
    contract_items.csv      contract_id,type_id,quantity,included
    identities.csv          identity_id,name,display_id
    subsidies.csv           contract_id,review_status,amount,reason,paid,exempt,forced_fitting_id

EXAMPLES:
    subsidy generate -output scenarios/random -contracts 200 -seed 7
    subsidy stock -scenario scenarios/random -system 30000142
    subsidy review -scenario scenarios/random -days 14 -format xlsx -output out/
    subsidy approve -config subsidy.yaml -contract 1001 -amount 1500000
    subsidy payments -config subsidy.yaml -format html -output out/
`)
}
