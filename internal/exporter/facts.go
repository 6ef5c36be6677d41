package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "tradecohort/internal/errors"
	"tradecohort/pkg/contracts/domain"
)

// FactsTable names the fact table in errors
const FactsTable = "facts"

// FactRecord renders one row in FactColumns order
func FactRecord(r domain.FactRow) []string {
	return []string{
		formatTimestamp(r),
		r.Month.String(),
		r.UserID,
		string(r.Status),
		formatPair(r),
		formatVolume(r.USDVolume),
	}
}

// WriteFacts writes the header and every row
func WriteFacts(w io.Writer, rows []domain.FactRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.FactColumns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(FactRecord(r)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFacts parses a fact table written by WriteFacts. Rows whose timestamp is "-" are
// synthetic and read back stamped at the start of their month. Trade ids are not part of
// the file and stay empty.
func ReadFacts(r io.Reader) ([]domain.FactRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(domain.FactColumns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, apperrors.NewMissingColumnError(FactsTable, domain.FactColumns[0])
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read fact header", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, col := range domain.FactColumns {
		if header[i] != col {
			return nil, apperrors.NewMissingColumnError(FactsTable, col)
		}
	}

	rows := make([]domain.FactRow, 0)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read fact row %d", line), err)
		}
		row, err := parseFactRecord(rec, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFactRecord(rec []string, line int) (domain.FactRow, error) {
	var row domain.FactRow

	month, err := domain.ParseMonth(rec[1])
	if err != nil {
		return row, apperrors.NewMalformedValueError(FactsTable, "month", line, rec[1], err)
	}
	row.Month = month

	row.UserID = rec[2]
	if row.Status, err = domain.ParseStatus(rec[3]); err != nil {
		return row, apperrors.NewMalformedValueError(FactsTable, "status", line, rec[3], err)
	}
	row.MarketPair = rec[4]

	if rec[5] != "" {
		v, err := decimal.NewFromString(rec[5])
		if err != nil {
			return row, apperrors.NewMalformedValueError(FactsTable, "usd_volume", line, rec[5], err)
		}
		row.USDVolume = decimal.NewNullDecimal(v)
	}

	if rec[0] == domain.NotApplicable {
		row.Synthetic = true
		row.Timestamp = month.Start()
		return row, nil
	}
	if row.Timestamp, err = parseTimestamp(rec[0]); err != nil {
		return row, apperrors.NewMalformedValueError(FactsTable, "timestamp", line, rec[0], err)
	}
	return row, nil
}
