package operations

import (
	"path/filepath"

	"tradecohort/internal/config"
	"tradecohort/internal/dataprocessing"
	"tradecohort/internal/enrichment"
	"tradecohort/pkg/contracts/domain"
)

// SettingsFromConfig resolves step settings from application configuration
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	window, err := cfg.WindowMonths()
	if err != nil {
		return Settings{}, err
	}
	accounts, ledger, trades, rates := cfg.InputPaths()
	return Settings{
		Inputs: dataprocessing.Inputs{
			Accounts: accounts,
			Ledger:   ledger,
			Trades:   trades,
			Rates:    rates,
		},
		Options: enrichment.Options{
			Window:           window,
			FirstMonthStatus: domain.Status(cfg.Cohort.FirstMonthStatus),
			HourBucket:       cfg.Cohort.HourBucket,
		},
		Facts:    cfg.FactsPath(),
		Workbook: cfg.WorkbookPath(),
		BOM:      cfg.Output.BOM,
	}, nil
}

// ExecutionConfig builds the step timeout table from application configuration
func ExecutionConfig(cfg *config.Config) *Config {
	c := NewConfig()
	if cfg.Pipeline.StageTimeout > 0 {
		c.DefaultTimeout = cfg.Pipeline.StageTimeout
	}
	return c
}

// ManifestPath returns where the run manifest is written, "" when disabled
func ManifestPath(cfg *config.Config) string {
	if !cfg.Output.Manifest {
		return ""
	}
	return filepath.Join(cfg.Output.Dir, ManifestFile)
}
