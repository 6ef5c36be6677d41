// Package http implements the HTTP handlers of the fact table service.
// Handlers stay thin: they bind and validate query parameters, call the fact
// service and render JSON, CSV or xlsx. Errors are passed to the shared
// ErrorHandler, which answers with RFC 7807 problem documents.
//
// Routes are mounted by the app package:
//
//	GET  /api/v1/dimensions
//	GET  /api/v1/facts                      ?month=&pair=&status=&user=&format=
//	GET  /api/v1/facts/export.csv
//	GET  /api/v1/facts/export.xlsx
//	GET  /api/v1/views/...                  see ViewsHandler.Routes
//	POST /api/v1/pipeline/run
//	GET  /api/v1/pipeline/status
//	GET  /healthz
package http
