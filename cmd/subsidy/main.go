package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsinha/subsidy/pkg/interfaces/cli/commands"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-help" || os.Args[1] == "--help" || os.Args[1] == "help" {
		commands.ShowHelp(os.Stdout)
		return
	}
	name := os.Args[1]

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var (
		configFile  = fs.String("config", "", "Path to YAML settings file")
		scenarioDir = fs.String("scenario", "", "Path to scenario directory containing CSV files")
		outputDir   = fs.String("output", "", "Output directory for results (optional)")
		format      = fs.String("format", "text", "Output format: text, json, csv, xlsx, html")
		verbose     = fs.Bool("verbose", false, "Enable verbose output")
		quiet       = fs.Bool("quiet", false, "Only log warnings and errors")
		help        = fs.Bool("help", false, "Show help message")

		contractID = fs.Int64("contract", 0, "Contract id")
		fittingID  = fs.Int64("fitting", 0, "Fitting id")
		identityID = fs.Int64("identity", 0, "Identity id")
		systemID   = fs.Int64("system", 0, "Deployment system id")
		doctrineID = fs.Int64("doctrine", 0, "Doctrine id")
		quantity   = fs.Int64("qty", 0, "Quantity for claims and requested stock")
		days       = fs.Int("days", 0, "Reporting window in days")
		amount     = fs.String("amount", "", "Reviewer amount override")
		reason     = fs.String("reason", "", "Rejection reason")
		clearFlag  = fs.Bool("clear", false, "Clear instead of save")
		set        = fs.Bool("set", false, "Write instead of show")
		now        = fs.String("now", "", "Evaluation time, RFC 3339")

		contracts = fs.Int("contracts", 100, "Contracts to generate")
		seed      = fs.Int64("seed", 0, "Random seed for generation")
	)
	fs.Usage = func() { commands.ShowHelp(os.Stderr) }
	_ = fs.Parse(os.Args[2:])

	config := commands.Config{
		ConfigFile:  *configFile,
		ScenarioDir: *scenarioDir,
		OutputDir:   *outputDir,
		Format:      *format,
		Verbose:     *verbose,
		Quiet:       *quiet,
		Help:        *help,
		Import:      name == "import",
		ContractID:  *contractID,
		FittingID:   *fittingID,
		IdentityID:  *identityID,
		SystemID:    *systemID,
		DoctrineID:  *doctrineID,
		Quantity:    *quantity,
		Days:        *days,
		Amount:      *amount,
		Reason:      *reason,
		Clear:       *clearFlag,
		Set:         *set,
		Now:         *now,
		Contracts:   *contracts,
		Seed:        *seed,
	}

	if config.Help && name != "generate" {
		commands.ShowHelp(os.Stdout)
		return
	}

	cmd, err := commands.New(name, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		commands.ShowHelp(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
