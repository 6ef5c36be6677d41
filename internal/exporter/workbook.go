package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tradecohort/internal/analytics"
	apperrors "tradecohort/internal/errors"
	"tradecohort/pkg/contracts/domain"
)

// Workbook sheet names
const (
	FactsSheet   = "Facts"
	CohortsSheet = "Cohorts"
)

// WorkbookWriter writes the fact table as an Excel workbook
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger.With("component", "workbook_writer")}
}

// WriteFile writes the workbook to path
func (w *WorkbookWriter) WriteFile(path string, rows []domain.FactRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := w.build(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return apperrors.NewExportError("failed to save workbook "+path, err)
	}
	w.logger.Info("Workbook written",
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return nil
}

// Write streams the workbook to out
func (w *WorkbookWriter) Write(out io.Writer, rows []domain.FactRow) error {
	f, err := w.build(rows)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(out)
}

func (w *WorkbookWriter) build(rows []domain.FactRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", FactsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name facts sheet: %w", err)
	}
	if _, err := f.NewSheet(CohortsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to add cohorts sheet: %w", err)
	}

	if err := writeFactsSheet(f, rows); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTableSheet(f, CohortsSheet, CohortTable(analytics.New(rows).CohortSummary())); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeFactsSheet(f *excelize.File, rows []domain.FactRow) error {
	sw, err := f.NewStreamWriter(FactsSheet)
	if err != nil {
		return fmt.Errorf("failed to open facts sheet: %w", err)
	}
	if err := sw.SetRow("A1", toCells(domain.FactColumns)); err != nil {
		return fmt.Errorf("failed to write facts header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := toCells(FactRecord(r))
		if r.USDVolume.Valid {
			values[5] = r.USDVolume.Decimal.InexactFloat64()
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write facts row %d: %w", i+2, err)
		}
	}
	return sw.Flush()
}

func writeTableSheet(f *excelize.File, sheet string, t Table) error {
	if err := f.SetSheetRow(sheet, "A1", &t.Headers); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i, rec := range t.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		rec := rec
		if err := f.SetSheetRow(sheet, cell, &rec); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
