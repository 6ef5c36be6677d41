package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"tradecohort/pkg/contracts/domain"
)

// EnvPrefix namespaces every environment variable, e.g. COHORT_SERVER_PORT
const EnvPrefix = "COHORT"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" envconfig:"SERVER"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Inputs        InputsConfig        `yaml:"inputs" envconfig:"INPUTS"`
	Output        OutputConfig        `yaml:"output" envconfig:"OUTPUT"`
	Cohort        CohortConfig        `yaml:"cohort" envconfig:"COHORT"`
	Pipeline      PipelineConfig      `yaml:"pipeline" envconfig:"PIPELINE"`
	Observability ObservabilityConfig `yaml:"observability" envconfig:"OBSERVABILITY"`
	Sheets        SheetsConfig        `yaml:"sheets" envconfig:"SHEETS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	// AllowedOrigins lists browser origins for CORS and the websocket; empty allows same-origin only
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"` // console, file or both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// InputsConfig locates the four source tables. Relative file names resolve under Dir.
// Files ending in .xlsx are read from their first sheet.
type InputsConfig struct {
	Dir      string `yaml:"dir" envconfig:"DIR"`
	Accounts string `yaml:"accounts" envconfig:"ACCOUNTS"`
	Ledger   string `yaml:"ledger" envconfig:"LEDGER"`
	Trades   string `yaml:"trades" envconfig:"TRADES"`
	Rates    string `yaml:"rates" envconfig:"RATES"`
}

// OutputConfig controls where the fact table is written
type OutputConfig struct {
	Dir       string `yaml:"dir" envconfig:"DIR"`
	FactsFile string `yaml:"facts_file" envconfig:"FACTS_FILE"`
	Workbook  string `yaml:"workbook" envconfig:"WORKBOOK"` // empty disables the xlsx export
	BOM       bool   `yaml:"bom" envconfig:"BOM"`
	Manifest  bool   `yaml:"manifest" envconfig:"MANIFEST"`
}

// CohortConfig parameterizes the lifecycle classification
type CohortConfig struct {
	// Window lists consecutive months (2006-01). Empty derives the window from the data.
	Window []string `yaml:"window" envconfig:"WINDOW"`
	// FirstMonthStatus labels every customer active in the first window month: Returning or New.
	FirstMonthStatus string `yaml:"first_month_status" envconfig:"FIRST_MONTH_STATUS"`
	// HourBucket selects how entry timestamps map to rate hours: floor or round.
	HourBucket string `yaml:"hour_bucket" envconfig:"HOUR_BUCKET"`
}

// PipelineConfig contains batch execution settings
type PipelineConfig struct {
	StageTimeout time.Duration `yaml:"stage_timeout" envconfig:"STAGE_TIMEOUT"`
	BuildOnStart bool          `yaml:"build_on_start" envconfig:"BUILD_ON_START"`
}

// ObservabilityConfig toggles OpenTelemetry exporters
type ObservabilityConfig struct {
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"` // stdout or none
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
}

// SheetsConfig enables publishing the fact table to a Google Sheet
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	SheetName       string `yaml:"sheet_name" envconfig:"SHEET_NAME"`
}

// Enabled reports whether publishing is configured
func (s SheetsConfig) Enabled() bool {
	return s.SpreadsheetID != "" && s.CredentialsFile != ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    100,
			RateLimitBurst:  50,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/cohort.log",
		},
		Inputs: InputsConfig{
			Dir:      "files",
			Accounts: "accounts.csv",
			Ledger:   "ledger_entries.csv",
			Trades:   "trades.csv",
			Rates:    "rates.csv",
		},
		Output: OutputConfig{
			Dir:       "output",
			FactsFile: "final_clean_df.csv",
			Manifest:  true,
		},
		Cohort: CohortConfig{
			FirstMonthStatus: "Returning",
			HourBucket:       "floor",
		},
		Pipeline: PipelineConfig{
			StageTimeout: 5 * time.Minute,
			BuildOnStart: true,
		},
		Observability: ObservabilityConfig{
			Environment:   "development",
			EnableTracing: false,
			TraceExporter: "none",
			SampleRatio:   1.0,
			EnableMetrics: true,
		},
		Sheets: SheetsConfig{
			SheetName: "final_df",
		},
	}
}

// Load loads configuration: defaults, then the optional YAML file, then environment
// variables (a .env file in the working directory is honoured). Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}

	for name, file := range map[string]string{
		"accounts": c.Inputs.Accounts,
		"ledger":   c.Inputs.Ledger,
		"trades":   c.Inputs.Trades,
		"rates":    c.Inputs.Rates,
	} {
		if file == "" {
			return fmt.Errorf("input file for %s is not configured", name)
		}
	}

	switch c.Cohort.FirstMonthStatus {
	case "Returning", "New":
	default:
		return fmt.Errorf("invalid first month status %q: want Returning or New", c.Cohort.FirstMonthStatus)
	}

	if _, err := c.WindowMonths(); err != nil {
		return err
	}

	switch c.Cohort.HourBucket {
	case "floor", "round":
	default:
		return fmt.Errorf("invalid hour bucket %q: want floor or round", c.Cohort.HourBucket)
	}

	if c.Pipeline.StageTimeout <= 0 {
		return fmt.Errorf("pipeline stage timeout must be positive")
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("sample ratio must be within [0,1]")
	}

	return nil
}

// WindowMonths parses the configured window. A nil result means derive from data.
func (c *Config) WindowMonths() ([]domain.Month, error) {
	if len(c.Cohort.Window) == 0 {
		return nil, nil
	}
	months := make([]domain.Month, 0, len(c.Cohort.Window))
	for i, raw := range c.Cohort.Window {
		m, err := domain.ParseMonth(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid cohort window month %q: %w", raw, err)
		}
		if i > 0 && m != months[i-1].Next() {
			return nil, fmt.Errorf("cohort window months must be consecutive: %s follows %s", m, months[i-1])
		}
		months = append(months, m)
	}
	return months, nil
}

// InputPaths returns the resolved paths of the accounts, ledger, trades and rates tables
func (c *Config) InputPaths() (accounts, ledger, trades, rates string) {
	resolve := func(file string) string {
		if filepath.IsAbs(file) || c.Inputs.Dir == "" {
			return file
		}
		return filepath.Join(c.Inputs.Dir, file)
	}
	return resolve(c.Inputs.Accounts), resolve(c.Inputs.Ledger), resolve(c.Inputs.Trades), resolve(c.Inputs.Rates)
}

// FactsPath returns the resolved path of the exported fact table
func (c *Config) FactsPath() string {
	return c.outputPath(c.Output.FactsFile)
}

// WorkbookPath returns the resolved path of the xlsx export, "" when disabled
func (c *Config) WorkbookPath() string {
	if c.Output.Workbook == "" {
		return ""
	}
	return c.outputPath(c.Output.Workbook)
}

func (c *Config) outputPath(file string) string {
	if filepath.IsAbs(file) || c.Output.Dir == "" {
		return file
	}
	return filepath.Join(c.Output.Dir, file)
}
