// Command cohort builds the trade fact table once from the input files and exits.
//
//	cohort run -accounts accounts.csv -ledger ledger_entries.csv -trades trades.csv -rates rates.csv -out output
//	cohort version
//
// Flags override the COHORT_* environment and config.yaml settings.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"tradecohort/internal/app"
	"tradecohort/internal/config"
	"tradecohort/internal/infrastructure"
	"tradecohort/internal/services"
	"tradecohort/internal/validation"
	"tradecohort/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options are the command line overrides of the loaded configuration
type options struct {
	accounts, ledger, trades, rates string
	outDir, workbook                string
	firstMonthStatus                string
	publish                         bool
	quiet                           bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("cohort run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.accounts, "accounts", "", "accounts table (csv or xlsx)")
	fs.StringVar(&o.ledger, "ledger", "", "ledger entries table (csv or xlsx)")
	fs.StringVar(&o.trades, "trades", "", "trades table (csv or xlsx)")
	fs.StringVar(&o.rates, "rates", "", "rates table (csv or xlsx)")
	fs.StringVar(&o.outDir, "out", "", "output directory for the fact table and manifest")
	fs.StringVar(&o.workbook, "xlsx", "", "also write the fact table to this xlsx file name")
	fs.StringVar(&o.firstMonthStatus, "first-month-status", "", "status of customers active in the first month: Returning or New")
	fs.BoolVar(&o.publish, "publish", false, "require publishing to the configured Google Sheet")
	fs.BoolVar(&o.quiet, "q", false, "do not print the cohort summary")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func (o options) apply(cfg *config.Config) {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Inputs.Accounts, o.accounts)
	override(&cfg.Inputs.Ledger, o.ledger)
	override(&cfg.Inputs.Trades, o.trades)
	override(&cfg.Inputs.Rates, o.rates)
	override(&cfg.Output.Dir, o.outDir)
	override(&cfg.Output.Workbook, o.workbook)
	override(&cfg.Cohort.FirstMonthStatus, o.firstMonthStatus)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "run":
			args = args[1:]
		case "version":
			fmt.Fprintln(stdout, contracts.GetFullVersionString())
			return 0
		}
	}

	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "cohort: %v\n", err)
		return 1
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "cohort: %v\n", err)
		return 1
	}
	if opts.publish && !cfg.Sheets.Enabled() {
		fmt.Fprintln(stderr, "cohort: -publish needs COHORT_SHEETS_SPREADSHEET_ID and COHORT_SHEETS_CREDENTIALS_FILE")
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer func() { _ = infrastructure.CloseLogFile() }()

	if err := build(ctx, cfg, logger, stdout, opts.quiet); err != nil {
		logger.Error("Build failed", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "cohort: %v\n", err)
		return 1
	}
	return 0
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer, quiet bool) error {
	accounts, ledger, trades, rates := cfg.InputPaths()
	files := validation.NewFileValidator(logger)
	if err := files.ValidateInputs(map[string]string{
		"accounts": accounts,
		"ledger":   ledger,
		"trades":   trades,
		"rates":    rates,
	}); err != nil {
		return err
	}
	if err := files.ValidateOutputDirectory(cfg.Output.Dir); err != nil {
		return err
	}

	logger.Info("Starting fact table build",
		slog.String("accounts", accounts),
		slog.String("ledger", ledger),
		slog.String("trades", trades),
		slog.String("rates", rates),
		slog.String("output", cfg.FactsPath()))

	manager, err := app.NewPipeline(ctx, cfg, nil, nil, logger)
	if err != nil {
		return err
	}
	defer manager.Shutdown()

	facts := services.NewFactService(manager, logger)
	info, err := facts.Rebuild(ctx, map[string]any{"trigger": "cli"})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "wrote %d rows to %s\n", info.Rows, cfg.FactsPath())
	if path := cfg.WorkbookPath(); path != "" {
		fmt.Fprintf(stdout, "wrote workbook %s\n", path)
	}
	if quiet {
		return nil
	}

	summary, err := facts.CohortSummary()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "month\tactive\tnew\treturning\treactivated\tchurned\tchurn rate\t")
	for _, m := range summary {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.1f%%\t\n",
			m.Month, m.Active, m.New, m.Returning, m.Reactivated, m.Churned, m.ChurnRate*100)
	}
	return tw.Flush()
}
