// Package config provides centralized configuration management for the cohort
// pipeline and its HTTP views.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), optionally seeded from a .env file
//	2. A YAML file: $COHORT_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern COHORT_<SECTION>_<FIELD>:
//
//	COHORT_SERVER_PORT=8080
//	COHORT_INPUTS_DIR=./files
//	COHORT_COHORT_WINDOW=2020-01,2020-02,2020-03
//	COHORT_COHORT_FIRST_MONTH_STATUS=Returning
//	COHORT_LOGGING_LEVEL=debug
//
// # Cohort Window
//
// The window is an ordered list of consecutive months. Customers active in the first
// month cannot be classified against earlier data, so they all receive
// FirstMonthStatus. Leaving the window empty derives it from the earliest and latest
// months present in the ledger.
package config
