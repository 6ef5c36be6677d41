package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tradecohort/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes csv files under an output directory. Files are written to a temporary
// sibling and renamed into place on Close, so readers never see a half-written table.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger.With("component", "csv_writer")}
}

type WriteOptions struct {
	Headers []string
	Records [][]string
	// BOMPrefix starts the file with a UTF-8 BOM so Excel detects the encoding
	BOMPrefix bool
}

// WriteCSV writes the whole table and returns the path it ended up at.
func (w *CSVWriter) WriteCSV(filePath string, opts WriteOptions) (string, error) {
	sw, err := w.CreateStreamWriter(filePath, opts.Headers, opts.BOMPrefix)
	if err != nil {
		return "", err
	}
	for i, rec := range opts.Records {
		if err := sw.WriteRecord(rec); err != nil {
			sw.Abort()
			return "", fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := sw.Close(); err != nil {
		return "", err
	}
	w.logger.Info("csv written", slog.String("path", sw.path), slog.Int("records", len(opts.Records)))
	return sw.path, nil
}

// WriteFactsFile writes rows in FactColumns order.
func (w *CSVWriter) WriteFactsFile(filePath string, rows []domain.FactRow, bom bool) (string, error) {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, FactRecord(r))
	}
	return w.WriteCSV(filePath, WriteOptions{Headers: domain.FactColumns, Records: records, BOMPrefix: bom})
}

// StreamWriter appends records one at a time. Close publishes the file, Abort discards it.
type StreamWriter struct {
	path string
	tmp  *os.File
	csv  *csv.Writer
}

func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string, bom bool) (*StreamWriter, error) {
	path := filePath
	if w.dir != "" && !filepath.IsAbs(filePath) {
		path = filepath.Join(w.dir, filePath)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	sw := &StreamWriter{path: path, tmp: tmp, csv: csv.NewWriter(tmp)}
	if bom {
		if _, err := tmp.Write(utf8BOM); err != nil {
			sw.Abort()
			return nil, fmt.Errorf("write bom: %w", err)
		}
	}
	if len(headers) > 0 {
		if err := sw.csv.Write(headers); err != nil {
			sw.Abort()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return sw, nil
}

func (s *StreamWriter) WriteRecord(record []string) error {
	return s.csv.Write(record)
}

// Close flushes and renames the temporary file onto the target path.
func (s *StreamWriter) Close() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		s.Abort()
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	_ = s.tmp.Chmod(0o644)
	if err := s.tmp.Close(); err != nil {
		os.Remove(s.tmp.Name())
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	if err := os.Rename(s.tmp.Name(), s.path); err != nil {
		os.Remove(s.tmp.Name())
		return fmt.Errorf("publish %s: %w", s.path, err)
	}
	return nil
}

// Abort drops everything written so far. The target path is left untouched.
func (s *StreamWriter) Abort() {
	s.tmp.Close()
	os.Remove(s.tmp.Name())
}
