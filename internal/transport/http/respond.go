package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"tradecohort/internal/exporter"
	api "tradecohort/pkg/contracts/api/v1"
)

// respond renders v as JSON, or as a CSV download built by table when format is csv
func respond(w http.ResponseWriter, r *http.Request, format, name string, v any, table func() exporter.Table) error {
	if format != api.FormatCSV {
		render.JSON(w, r, v)
		return nil
	}
	return writeCSV(w, name, func(w http.ResponseWriter) error {
		return exporter.WriteTable(w, table())
	})
}

// writeCSV streams a CSV attachment named name.csv
func writeCSV(w http.ResponseWriter, name string, write func(http.ResponseWriter) error) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, name))
	return write(w)
}
