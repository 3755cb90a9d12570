package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pricebook/internal/models"
	"pricebook/pkg/utils"
)

type windowColumns struct {
	high, highDate, low, lowDate string
}

// windowColumnsFor returns the column names holding the extrema of w.
// Callers must pass a valid window; the names are interpolated into SQL.
func windowColumnsFor(w models.Window) windowColumns {
	n := int(w)
	return windowColumns{
		high:     fmt.Sprintf("week_high_%d", n),
		highDate: fmt.Sprintf("week_high_%d_date", n),
		low:      fmt.Sprintf("week_low_%d", n),
		lowDate:  fmt.Sprintf("week_low_%d_date", n),
	}
}

// windowScan holds the nullable scan targets of one window's columns.
type windowScan struct {
	high, low         sql.NullFloat64
	highDate, lowDate sql.NullString
}

func (ws *windowScan) targets() []interface{} {
	return []interface{}{&ws.high, &ws.highDate, &ws.low, &ws.lowDate}
}

func (ws *windowScan) extremum() (models.WindowExtremum, error) {
	var ext models.WindowExtremum
	if ws.high.Valid {
		v := ws.high.Float64
		ext.High = &v
	}
	if ws.low.Valid {
		v := ws.low.Float64
		ext.Low = &v
	}
	if ws.highDate.Valid {
		d, err := models.ParseDate(ws.highDate.String)
		if err != nil {
			return ext, fmt.Errorf("invalid window high date %q: %w", ws.highDate.String, err)
		}
		ext.HighDate = &d
	}
	if ws.lowDate.Valid {
		d, err := models.ParseDate(ws.lowDate.String)
		if err != nil {
			return ext, fmt.Errorf("invalid window low date %q: %w", ws.lowDate.String, err)
		}
		ext.LowDate = &d
	}
	return ext, nil
}

// GetHighSeries returns the high series of a symbol, oldest first, together with
// the currently stored extrema of window.
func (s *SQLiteStore) GetHighSeries(ctx context.Context, symbol string, window models.Window) ([]models.HighPoint, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("unsupported window %d", int(window))
	}
	c := windowColumnsFor(window)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT trade_date, high, %s, %s, %s, %s
		FROM prices
		WHERE symbol = ?
		ORDER BY trade_date ASC
	`, c.high, c.highDate, c.low, c.lowDate), symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query high series: %w", err)
	}
	defer rows.Close()

	var series []models.HighPoint
	for rows.Next() {
		var (
			tradeDate string
			high      sql.NullFloat64
			ws        windowScan
		)
		if err := rows.Scan(append([]interface{}{&tradeDate, &high}, ws.targets()...)...); err != nil {
			return nil, fmt.Errorf("failed to scan high series: %w", err)
		}

		p := models.HighPoint{}
		if p.TradeDate, err = models.ParseDate(tradeDate); err != nil {
			return nil, fmt.Errorf("invalid trade date %q for %s: %w", tradeDate, symbol, err)
		}
		if high.Valid {
			v := high.Float64
			p.High = &v
		}
		if p.Current, err = ws.extremum(); err != nil {
			return nil, err
		}
		series = append(series, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating high series: %w", err)
	}

	return series, nil
}

// SaveWindowValues writes computed extrema for window in a single transaction and
// returns the number of rows updated.
func (s *SQLiteStore) SaveWindowValues(ctx context.Context, window models.Window, values []models.WindowValue) (int64, error) {
	if !window.Valid() {
		return 0, fmt.Errorf("unsupported window %d", int(window))
	}
	if len(values) == 0 {
		return 0, nil
	}
	return utils.RetryWithResult(ctx, s.retry, func() (int64, error) {
		return s.saveWindowValues(ctx, window, values)
	})
}

func (s *SQLiteStore) saveWindowValues(ctx context.Context, window models.Window, values []models.WindowValue) (int64, error) {
	c := windowColumnsFor(window)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		UPDATE prices SET %s = ?, %s = ?, %s = ?, %s = ?
		WHERE symbol = ? AND trade_date = ?
	`, c.high, c.highDate, c.low, c.lowDate))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var updated int64
	for _, v := range values {
		res, err := stmt.ExecContext(ctx,
			nullFloat(v.Extremum.High), nullDate(v.Extremum.HighDate),
			nullFloat(v.Extremum.Low), nullDate(v.Extremum.LowDate),
			v.Symbol, models.FormatDate(v.TradeDate))
		if err != nil {
			return 0, fmt.Errorf("failed to update %s for %s %s: %w", window, v.Symbol, models.FormatDate(v.TradeDate), err)
		}
		n, _ := res.RowsAffected()
		updated += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: models.FormatDate(*t), Valid: true}
}
