// Package app wires the fact table service together and manages its lifecycle.
//
// New builds every component from a *config.Config:
//
//  1. OpenTelemetry providers and business metrics
//  2. the websocket hub that streams pipeline progress
//  3. the operation manager with the cohort pipeline steps
//  4. the fact service and health service
//  5. the chi router with middleware and the HTTP server
//
// Start serves the last exported fact table right away and, when
// pipeline.build_on_start is set, rebuilds it from the inputs in the
// background. Run blocks until SIGINT or SIGTERM and then calls Stop.
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
package app
