package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "tradecohort/internal/errors"
)

// utf8BOM is stripped from the first header cell of CSV inputs
const utf8BOM = "\ufeff"

// Table is a header-indexed tabular input
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable builds a table from a header and data rows. Short rows are padded.
func NewTable(name string, header []string, rows [][]string) *Table {
	t := &Table{
		Name:   name,
		Header: make([]string, len(header)),
		Rows:   rows,
		index:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	for i, row := range t.Rows {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			t.Rows[i] = padded
		}
	}
	return t
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table carries the column
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Require checks that every column is present
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return apperrors.NewMissingColumnError(t.Name, c)
		}
	}
	return nil
}

// Get returns the trimmed value of column in row i, "" for unknown columns
func (t *Table) Get(i int, column string) string {
	idx, ok := t.index[column]
	if !ok {
		return ""
	}
	return strings.TrimSpace(t.Rows[i][idx])
}

// Line returns the 1-based source line of data row i, counting the header line.
// Blank lines skipped while reading are not counted.
func (t *Table) Line(i int) int {
	return i + 2
}

// ReadTable decodes a table from raw file contents; the path extension selects the format
func ReadTable(name, path string, data []byte) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(name, data)
	default:
		return readCSV(name, bytes.NewReader(data))
	}
}

func readCSV(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.NewParsingError(fmt.Sprintf("table %q is empty", name), nil)
	}
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read header of table %q", name), err)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("read table %q", name), err)
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, record)
	}
	return NewTable(name, header, rows), nil
}

func readWorkbook(name string, data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("open workbook for table %q", name), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("workbook for table %q has no sheets", name), nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read sheet %q of table %q", sheets[0], name), err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("table %q is empty", name), nil)
	}

	dataRows := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		dataRows = append(dataRows, row)
	}
	return NewTable(name, rows[0], dataRows), nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
