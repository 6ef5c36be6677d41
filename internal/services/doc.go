// Package services holds the application layer between the HTTP handlers and the
// pipeline. FactService owns the published fact table: it rebuilds it through the
// operations manager, swaps it in atomically, and serves the analytics views through
// a per-table memoization cache. HealthService reports readiness of the table and of
// its source files.
package services
