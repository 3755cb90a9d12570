// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	apperrors "pricebook/internal/errors"
	"pricebook/internal/models"
	"pricebook/pkg/utils"
)

// PriceColumns are the price fields rescaled by a corporate-action adjustment.
var PriceColumns = []string{"open", "high", "low", "close", "last", "prev_close"}

// SQLiteStore implements PriceStore using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry utils.RetryConfig
}

// NewSQLiteStore creates a new SQLite-based price store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w: %w", apperrors.ErrDatabaseError, err)
	}

	// Single writer: every operation shares one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, retry: busyRetryConfig()}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w: %w", apperrors.ErrDatabaseError, err)
	}

	return store, nil
}

// busyRetryConfig retries write transactions that lost a lock to another process.
func busyRetryConfig() utils.RetryConfig {
	cfg := utils.DefaultRetryConfig()
	cfg.MaxAttempts = 5
	cfg.InitialDelay = 200 * time.Millisecond
	cfg.MaxDelay = 2 * time.Second
	cfg.Retryable = isBusy
	return cfg
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if !apperrors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	var windowCols strings.Builder
	for _, w := range models.Windows {
		c := windowColumnsFor(w)
		fmt.Fprintf(&windowCols, "\t\t%s REAL,\n\t\t%s TEXT,\n\t\t%s REAL,\n\t\t%s TEXT,\n",
			c.high, c.highDate, c.low, c.lowDate)
	}

	schema := `
	-- Daily prices, one row per symbol and trade date
	CREATE TABLE IF NOT EXISTS prices (
		symbol TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		series TEXT,
		open REAL,
		high REAL,
		low REAL,
		close REAL,
		last REAL,
		prev_close REAL,
		total_traded_qty INTEGER,
		total_traded_val REAL,
		total_trades INTEGER,
		isin TEXT,
` + windowCols.String() + `		PRIMARY KEY (symbol, trade_date)
	);

	-- Applied corporate actions; (symbol, exec_date, action_type) uniqueness is
	-- enforced by the applier
	CREATE TABLE IF NOT EXISTS applied_actions_log (
		log_id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		exec_date TEXT NOT NULL,
		action_type TEXT NOT NULL,
		action_details TEXT,
		adjustment_factor REAL NOT NULL,
		applied_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_applied_actions_key ON applied_actions_log(symbol, exec_date, action_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Price Methods
// ============================================================================

// UpsertPrices inserts price rows, replacing the base fields of existing
// (symbol, trade_date) rows. Rolling-window fields are left untouched.
func (s *SQLiteStore) UpsertPrices(ctx context.Context, records []models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (symbol, trade_date, series, open, high, low, close, last, prev_close,
			total_traded_qty, total_traded_val, total_trades, isin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			series = excluded.series,
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			last = excluded.last,
			prev_close = excluded.prev_close,
			total_traded_qty = excluded.total_traded_qty,
			total_traded_val = excluded.total_traded_val,
			total_trades = excluded.total_trades,
			isin = excluded.isin
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, r.Symbol, models.FormatDate(r.TradeDate), r.Series,
			r.Open, r.High, r.Low, r.Close, r.Last, r.PrevClose,
			r.TotalQty, r.TotalValue, r.TotalTrades, r.ISIN)
		if err != nil {
			return fmt.Errorf("failed to upsert price %s %s: %w", r.Symbol, models.FormatDate(r.TradeDate), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetPrices retrieves price rows for a symbol within [from, to], oldest first.
// A zero bound is open.
func (s *SQLiteStore) GetPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceRecord, error) {
	query := `SELECT symbol, trade_date, series, open, high, low, close, last, prev_close,
		total_traded_qty, total_traded_val, total_trades, isin`
	for _, w := range models.Windows {
		c := windowColumnsFor(w)
		query += fmt.Sprintf(", %s, %s, %s, %s", c.high, c.highDate, c.low, c.lowDate)
	}
	query += " FROM prices WHERE symbol = ?"
	args := []interface{}{symbol}

	if !from.IsZero() {
		query += " AND trade_date >= ?"
		args = append(args, models.FormatDate(from))
	}
	if !to.IsZero() {
		query += " AND trade_date <= ?"
		args = append(args, models.FormatDate(to))
	}
	query += " ORDER BY trade_date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var records []models.PriceRecord
	for rows.Next() {
		var (
			r                   models.PriceRecord
			tradeDate           string
			series, isin        sql.NullString
			open, high, low     sql.NullFloat64
			closePx, last, prev sql.NullFloat64
			qty, trades         sql.NullInt64
			value               sql.NullFloat64
		)
		windows := make([]windowScan, len(models.Windows))
		dest := []interface{}{&r.Symbol, &tradeDate, &series, &open, &high, &low, &closePx, &last, &prev,
			&qty, &value, &trades, &isin}
		for i := range windows {
			dest = append(dest, windows[i].targets()...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}

		if r.TradeDate, err = models.ParseDate(tradeDate); err != nil {
			return nil, fmt.Errorf("invalid trade date %q for %s: %w", tradeDate, r.Symbol, err)
		}
		r.Series, r.ISIN = series.String, isin.String
		r.Open, r.High, r.Low, r.Close = open.Float64, high.Float64, low.Float64, closePx.Float64
		r.Last, r.PrevClose = last.Float64, prev.Float64
		r.TotalQty, r.TotalValue, r.TotalTrades = qty.Int64, value.Float64, trades.Int64

		r.Extrema = make(map[models.Window]models.WindowExtremum, len(models.Windows))
		for i, w := range models.Windows {
			ext, err := windows[i].extremum()
			if err != nil {
				return nil, err
			}
			r.Extrema[w] = ext
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return records, nil
}

// LastCloseBefore returns the most recent non-null close strictly before date.
func (s *SQLiteStore) LastCloseBefore(ctx context.Context, symbol string, date time.Time) (float64, bool, error) {
	var closePx float64
	err := s.db.QueryRowContext(ctx, `
		SELECT close FROM prices
		WHERE symbol = ? AND trade_date < ? AND close IS NOT NULL
		ORDER BY trade_date DESC LIMIT 1
	`, symbol, models.FormatDate(date)).Scan(&closePx)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query last close: %w", err)
	}
	return closePx, true, nil
}

// HasPricesBefore reports whether any row exists for symbol strictly before date.
func (s *SQLiteStore) HasPricesBefore(ctx context.Context, symbol string, date time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM prices WHERE symbol = ? AND trade_date < ? LIMIT 1
	`, symbol, models.FormatDate(date)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check prior prices: %w", err)
	}
	return true, nil
}

// Symbols returns every symbol present in the price relation.
func (s *SQLiteStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}
