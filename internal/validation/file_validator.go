package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// TableExtensions are the file types the loader can read
var TableExtensions = []string{".csv", ".xlsx"}

// FileValidator checks source tables and the output directory before a build.
type FileValidator struct {
	logger *slog.Logger
}

func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With("component", "file_validator")}
}

// ValidateInputs checks every named table and joins the failures, in table name order.
func (v *FileValidator) ValidateInputs(tables map[string]string) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(tables)) {
		if err := v.ValidateTableFile(tables[name]); err != nil {
			errs = append(errs, fmt.Errorf("%s table: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateTableFile accepts a readable, non-empty csv or xlsx file. Excel lock files
// (~$name.xlsx) are refused.
func (v *FileValidator) ValidateTableFile(path string) error {
	if path == "" {
		return errors.New("no path configured")
	}
	info, err := v.readable(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case !slices.Contains(TableExtensions, ext):
		v.logger.Warn("table rejected", slog.String("file", path), slog.String("reason", "extension"))
		return fmt.Errorf("%s: unsupported extension %q, want one of %v", path, ext, TableExtensions)
	case strings.HasPrefix(filepath.Base(path), "~$"):
		v.logger.Warn("table rejected", slog.String("file", path), slog.String("reason", "lock file"))
		return fmt.Errorf("%s: temporary Excel file", path)
	case info.Size() == 0:
		return fmt.Errorf("%s: file is empty", path)
	}
	return nil
}

// ValidateOutputDirectory creates dir when missing and probes that it accepts new files.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("output directory unusable", slog.String("dir", dir), slog.Any("error", err))
		return fmt.Errorf("cannot create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		v.logger.Error("output directory unusable", slog.String("dir", dir), slog.Any("error", err))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	return nil
}

func (v *FileValidator) readable(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s: file does not exist", path)
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	case info.IsDir():
		return nil, fmt.Errorf("%s: directory, not a file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: not readable: %w", path, err)
	}
	f.Close()
	v.logger.Debug("table file ok", slog.String("file", path), slog.Int64("size", info.Size()))
	return info, nil
}
