// Package rolling maintains trailing-window highs and lows on the price history.
//
// Both the window high and the window low are taken over the daily "high" series,
// matching the values historically stored in the screening tables. When several
// days share the extreme value, the earliest of them is reported.
package rolling

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "pricebook/internal/errors"
	"pricebook/internal/logging"
	"pricebook/internal/models"
)

// SeriesStore reads high series and writes window extrema.
type SeriesStore interface {
	Symbols(ctx context.Context) ([]string, error)
	GetHighSeries(ctx context.Context, symbol string, window models.Window) ([]models.HighPoint, error)
	SaveWindowValues(ctx context.Context, window models.Window, values []models.WindowValue) (int64, error)
}

// UpdateStats summarizes one window refresh.
type UpdateStats struct {
	Window    models.Window
	Overwrite bool
	Symbols   int
	Computed  int
	Written   int64
	Duration  time.Duration
}

// Maintainer recomputes rolling-window extrema.
type Maintainer struct {
	store  SeriesStore
	logger zerolog.Logger
}

// NewMaintainer creates a new rolling-window maintainer.
func NewMaintainer(store SeriesStore, logger zerolog.Logger) *Maintainer {
	return &Maintainer{
		store:  store,
		logger: logger.With().Str("component", "rolling").Logger(),
	}
}

// Compute returns the extremum of every point of one symbol's series, which must
// be sorted by trade date. It runs in linear time using monotonic deques.
func Compute(series []models.HighPoint, window models.Window) []models.WindowExtremum {
	out := make([]models.WindowExtremum, len(series))
	span := window.Days()

	// Indices into series; values along maxQ are non-increasing, along minQ
	// non-decreasing, and equal values keep their date order.
	var maxQ, minQ []int

	for i, p := range series {
		if p.High != nil {
			v := *p.High
			for len(maxQ) > 0 && *series[maxQ[len(maxQ)-1]].High < v {
				maxQ = maxQ[:len(maxQ)-1]
			}
			maxQ = append(maxQ, i)
			for len(minQ) > 0 && *series[minQ[len(minQ)-1]].High > v {
				minQ = minQ[:len(minQ)-1]
			}
			minQ = append(minQ, i)
		}

		lower := p.TradeDate.AddDate(0, 0, -span)
		for len(maxQ) > 0 && series[maxQ[0]].TradeDate.Before(lower) {
			maxQ = maxQ[1:]
		}
		for len(minQ) > 0 && series[minQ[0]].TradeDate.Before(lower) {
			minQ = minQ[1:]
		}

		if len(maxQ) == 0 {
			continue
		}
		hi, lo := series[maxQ[0]], series[minQ[0]]
		hv, lv := *hi.High, *lo.High
		hd, ld := hi.TradeDate, lo.TradeDate
		out[i] = models.WindowExtremum{High: &hv, HighDate: &hd, Low: &lv, LowDate: &ld}
	}

	return out
}

// Update recomputes window for every symbol. With overwrite every row is
// rewritten; without it only rows missing any of the four fields are filled.
func (m *Maintainer) Update(ctx context.Context, window models.Window, overwrite bool) (*UpdateStats, error) {
	if !window.Valid() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidWindow, "%d weeks (must be 4, 12 or 52)", int(window))
	}

	start := time.Now()
	log := logging.WithOperation(m.logger, "update_"+window.String())

	symbols, err := m.store.Symbols(ctx)
	if err != nil {
		return nil, err
	}

	stats := &UpdateStats{Window: window, Overwrite: overwrite, Symbols: len(symbols)}
	var values []models.WindowValue

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		series, err := m.store.GetHighSeries(ctx, symbol, window)
		if err != nil {
			return nil, fmt.Errorf("loading %s series: %w", symbol, err)
		}

		extrema := Compute(series, window)
		stats.Computed += len(extrema)

		for i, p := range series {
			if !overwrite && p.Current.Complete() {
				continue
			}
			values = append(values, models.WindowValue{
				Symbol:    symbol,
				TradeDate: p.TradeDate,
				Extremum:  extrema[i],
			})
		}
		log.Debug().Str("symbol", symbol).Int("rows", len(series)).Msg("Computed window extrema")
	}

	written, err := m.store.SaveWindowValues(ctx, window, values)
	if err != nil {
		return nil, err
	}
	stats.Written = written
	stats.Duration = time.Since(start)

	logging.LogWindowUpdate(log, window.String(), overwrite, stats.Symbols, written, stats.Duration)
	return stats, nil
}

// UpdateAll refreshes the 4, 12 and 52 week windows in turn.
func (m *Maintainer) UpdateAll(ctx context.Context, overwrite bool) ([]UpdateStats, error) {
	return m.UpdateWindows(ctx, models.Windows, overwrite)
}

// UpdateWindows refreshes the given windows in order.
func (m *Maintainer) UpdateWindows(ctx context.Context, windows []models.Window, overwrite bool) ([]UpdateStats, error) {
	all := make([]UpdateStats, 0, len(windows))
	for _, w := range windows {
		stats, err := m.Update(ctx, w, overwrite)
		if err != nil {
			return all, err
		}
		all = append(all, *stats)
	}
	return all, nil
}
