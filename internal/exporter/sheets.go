package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tradecohort/internal/config"
	apperrors "tradecohort/internal/errors"
	"tradecohort/pkg/contracts/domain"
)

// SheetsPublisher replaces the contents of a Google Sheet with the fact table
type SheetsPublisher struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// NewSheetsPublisher authenticates with the configured service account credentials
func NewSheetsPublisher(ctx context.Context, cfg config.SheetsConfig, logger *slog.Logger) (*SheetsPublisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("sheets publishing is not configured")
	}
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}
	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewSheetsPublisherWithService(service, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewSheetsPublisherWithService uses an existing sheets client
func NewSheetsPublisherWithService(service *sheets.Service, spreadsheetID, sheetName string, logger *slog.Logger) *SheetsPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetsPublisher{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.With("component", "sheets_publisher"),
	}
}

// Publish clears the sheet and writes the header and every row
func (p *SheetsPublisher) Publish(ctx context.Context, rows []domain.FactRow) error {
	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toCells(domain.FactColumns))
	for _, r := range rows {
		values = append(values, toCells(FactRecord(r)))
	}

	if _, err := p.service.Spreadsheets.Values.Clear(p.spreadsheetID, p.sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return apperrors.NewExportError(fmt.Sprintf("failed to clear sheet %s", p.sheetName), err)
	}

	rangeStr := fmt.Sprintf("%s!A1", p.sheetName)
	if _, err := p.service.Spreadsheets.Values.Update(p.spreadsheetID, rangeStr, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return apperrors.NewExportError(fmt.Sprintf("failed to update sheet %s", p.sheetName), err)
	}

	p.logger.InfoContext(ctx, "Fact table published",
		slog.String("spreadsheet_id", p.spreadsheetID),
		slog.String("sheet", p.sheetName),
		slog.Int("rows", len(rows)))
	return nil
}
