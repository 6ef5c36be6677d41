package dataprocessing

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	apperrors "tradecohort/internal/errors"
	"tradecohort/pkg/contracts/domain"
)

// Inputs locates the four source tables
type Inputs struct {
	Accounts string `json:"accounts"`
	Ledger   string `json:"ledger"`
	Trades   string `json:"trades"`
	Rates    string `json:"rates"`
}

// SourceInfo describes one loaded input file
type SourceInfo struct {
	Table  string `json:"table"`
	Path   string `json:"path"`
	Rows   int    `json:"rows"`
	Bytes  int    `json:"bytes"`
	Digest string `json:"blake2b_256"`
}

// Dataset holds the parsed inputs of one batch
type Dataset struct {
	Accounts []domain.Account
	Ledger   []domain.LedgerEntry
	Trades   []domain.Trade
	Rates    []domain.RateTick
	Sources  []SourceInfo
}

// Loader reads the source tables of a batch
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader; a nil logger falls back to slog.Default
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With("component", "loader")}
}

// Load reads and parses the four inputs concurrently. The first failure cancels the others.
func (l *Loader) Load(ctx context.Context, in Inputs) (*Dataset, error) {
	start := time.Now()
	ds := &Dataset{Sources: make([]SourceInfo, 4)}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, info, err := l.readSource(gctx, TableAccounts, in.Accounts)
		if err != nil {
			return err
		}
		ds.Sources[0] = info
		ds.Accounts, err = ParseAccounts(t)
		return err
	})
	g.Go(func() error {
		t, info, err := l.readSource(gctx, TableLedger, in.Ledger)
		if err != nil {
			return err
		}
		ds.Sources[1] = info
		ds.Ledger, err = ParseLedger(t)
		return err
	})
	g.Go(func() error {
		t, info, err := l.readSource(gctx, TableTrades, in.Trades)
		if err != nil {
			return err
		}
		ds.Sources[2] = info
		ds.Trades, err = ParseTrades(t)
		return err
	})
	g.Go(func() error {
		t, info, err := l.readSource(gctx, TableRates, in.Rates)
		if err != nil {
			return err
		}
		ds.Sources[3] = info
		ds.Rates, err = ParseRates(t)
		return err
	})

	if err := g.Wait(); err != nil {
		l.logger.ErrorContext(ctx, "input load failed", slog.String("error", err.Error()))
		return nil, err
	}

	l.logger.InfoContext(ctx, "inputs loaded",
		slog.Int("accounts", len(ds.Accounts)),
		slog.Int("ledger_entries", len(ds.Ledger)),
		slog.Int("trades", len(ds.Trades)),
		slog.Int("rate_ticks", len(ds.Rates)),
		slog.Duration("duration", time.Since(start)))

	return ds, nil
}

func (l *Loader) readSource(ctx context.Context, table, path string) (*Table, SourceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, SourceInfo{}, err
	}
	if path == "" {
		return nil, SourceInfo{}, apperrors.NewConfigError(fmt.Sprintf("no path configured for table %q", table), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, SourceInfo{}, apperrors.NewStorageError(fmt.Sprintf("read %s table", table), err).
			WithContext("path", path)
	}

	t, err := ReadTable(table, path, data)
	if err != nil {
		return nil, SourceInfo{}, err
	}

	info := SourceInfo{
		Table:  table,
		Path:   path,
		Rows:   t.Len(),
		Bytes:  len(data),
		Digest: Digest(data),
	}
	l.logger.DebugContext(ctx, "table read",
		slog.String("table", table),
		slog.String("path", path),
		slog.Int("rows", info.Rows))
	return t, info, nil
}

// Digest returns the hex blake2b-256 digest of data
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
