package rolling

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pricebook/internal/errors"
	"pricebook/internal/models"
	"pricebook/internal/store"
)

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func point(date string, high float64) models.HighPoint {
	return models.HighPoint{TradeDate: day(date), High: &high}
}

func assertExtremum(t *testing.T, got models.WindowExtremum, high float64, highDate string, low float64, lowDate string) {
	t.Helper()
	require.True(t, got.Complete(), "extremum should be complete")
	assert.Equal(t, high, *got.High)
	assert.Equal(t, day(highDate), *got.HighDate)
	assert.Equal(t, low, *got.Low)
	assert.Equal(t, day(lowDate), *got.LowDate)
}

func TestComputeFourWeekWindow(t *testing.T) {
	series := []models.HighPoint{
		point("2024-01-01", 10),
		point("2024-01-10", 30),
		point("2024-01-20", 20),
		point("2024-01-29", 12),
		point("2024-01-30", 15),
	}

	got := Compute(series, models.Window4)
	require.Len(t, got, 5)

	assertExtremum(t, got[0], 10, "2024-01-01", 10, "2024-01-01")
	assertExtremum(t, got[1], 30, "2024-01-10", 10, "2024-01-01")
	assertExtremum(t, got[2], 30, "2024-01-10", 10, "2024-01-01")
	// 28 days back is still inside the window.
	assertExtremum(t, got[3], 30, "2024-01-10", 10, "2024-01-01")
	assertExtremum(t, got[4], 30, "2024-01-10", 12, "2024-01-29")
}

func TestComputeTiesResolveToEarliestDate(t *testing.T) {
	series := []models.HighPoint{
		point("2024-01-01", 50),
		point("2024-01-02", 50),
		point("2024-01-03", 40),
		point("2024-01-04", 40),
	}

	got := Compute(series, models.Window4)
	assertExtremum(t, got[1], 50, "2024-01-01", 50, "2024-01-01")
	assertExtremum(t, got[3], 50, "2024-01-01", 40, "2024-01-03")
}

func TestComputeSkipsNullHighs(t *testing.T) {
	series := []models.HighPoint{
		{TradeDate: day("2024-01-01")},
		point("2024-01-02", 20),
		{TradeDate: day("2024-01-03")},
		point("2024-01-04", 10),
	}

	got := Compute(series, models.Window4)
	assert.False(t, got[0].Complete())
	assert.Nil(t, got[0].High)
	assertExtremum(t, got[2], 20, "2024-01-02", 20, "2024-01-02")
	assertExtremum(t, got[3], 20, "2024-01-02", 10, "2024-01-04")
}

func TestComputeExpiresWholeWindow(t *testing.T) {
	series := []models.HighPoint{
		point("2023-01-01", 999),
		point("2024-01-01", 5),
	}
	got := Compute(series, models.Window52)
	assertExtremum(t, got[1], 5, "2024-01-01", 5, "2024-01-01")
}

// naiveExtremum scans the whole window of series[i].
func naiveExtremum(series []models.HighPoint, i int, window models.Window) (hi, lo float64, hiDate, loDate time.Time, ok bool) {
	lower := series[i].TradeDate.AddDate(0, 0, -window.Days())
	for j := 0; j <= i; j++ {
		p := series[j]
		if p.High == nil || p.TradeDate.Before(lower) {
			continue
		}
		if !ok || *p.High > hi {
			hi, hiDate = *p.High, p.TradeDate
		}
		if !ok || *p.High < lo {
			lo, loDate = *p.High, p.TradeDate
		}
		ok = true
	}
	return
}

func TestProperty_ComputeMatchesNaiveScan(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Deque extrema equal a full window scan", prop.ForAll(
		func(highs []int, gaps []int, windowIdx int) bool {
			window := models.Windows[windowIdx]
			series := make([]models.HighPoint, len(highs))
			date := day("2020-01-01")
			for i, h := range highs {
				if i < len(gaps) {
					date = date.AddDate(0, 0, 1+gaps[i])
				} else {
					date = date.AddDate(0, 0, 1)
				}
				series[i] = models.HighPoint{TradeDate: date}
				// Small ranges produce plenty of ties; zero stands for a missing high.
				if h > 0 {
					v := float64(h)
					series[i].High = &v
				}
			}

			got := Compute(series, window)
			for i := range series {
				hi, lo, hiDate, loDate, ok := naiveExtremum(series, i, window)
				if !ok {
					if got[i].High != nil {
						return false
					}
					continue
				}
				if !got[i].Complete() ||
					*got[i].High != hi || !got[i].HighDate.Equal(hiDate) ||
					*got[i].Low != lo || !got[i].LowDate.Equal(loDate) {
					t.Logf("mismatch at %d: got %+v want %v@%s %v@%s", i, got[i], hi, hiDate, lo, loDate)
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 8)),
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.IntRange(0, len(models.Windows)-1),
	))

	properties.TestingRun(t)
}

func newRollingStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "rolling.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var rows []models.PriceRecord
	for i, h := range []float64{10, 30, 20, 12, 15, 14} {
		for _, symbol := range []string{"ACME", "BETA"} {
			rows = append(rows, models.PriceRecord{
				Symbol:    symbol,
				TradeDate: day("2024-01-01").AddDate(0, 0, i*7),
				High:      h,
				Close:     h,
			})
		}
	}
	require.NoError(t, s.UpsertPrices(context.Background(), rows))
	return s
}

func TestUpdateFillsMissingOnly(t *testing.T) {
	ctx := context.Background()
	s := newRollingStore(t)

	stale := 999.0
	staleDate := day("1999-01-01")
	_, err := s.SaveWindowValues(ctx, models.Window4, []models.WindowValue{{
		Symbol:    "ACME",
		TradeDate: day("2024-01-01"),
		Extremum:  models.WindowExtremum{High: &stale, HighDate: &staleDate, Low: &stale, LowDate: &staleDate},
	}})
	require.NoError(t, err)

	m := NewMaintainer(s, zerolog.Nop())
	stats, err := m.Update(ctx, models.Window4, false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Symbols)
	assert.Equal(t, 12, stats.Computed)
	assert.Equal(t, int64(11), stats.Written)

	series, err := s.GetHighSeries(ctx, "ACME", models.Window4)
	require.NoError(t, err)
	assert.Equal(t, 999.0, *series[0].Current.High, "populated rows are kept")
	// Weekly samples: the 4-week window at 2024-01-29 still reaches 2024-01-01.
	assertExtremum(t, series[4].Current, 30, "2024-01-08", 10, "2024-01-01")

	stats, err = m.Update(ctx, models.Window4, true)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.Written)

	series, err = s.GetHighSeries(ctx, "ACME", models.Window4)
	require.NoError(t, err)
	assertExtremum(t, series[0].Current, 10, "2024-01-01", 10, "2024-01-01")

	stats, err = m.Update(ctx, models.Window4, false)
	require.NoError(t, err)
	assert.Zero(t, stats.Written, "nothing left to fill")
}

func TestUpdateAll(t *testing.T) {
	ctx := context.Background()
	s := newRollingStore(t)

	all, err := NewMaintainer(s, zerolog.Nop()).UpdateAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, w := range models.Windows {
		assert.Equal(t, w, all[i].Window)
		assert.Equal(t, int64(12), all[i].Written)
	}

	rows, err := s.GetPrices(ctx, "BETA", time.Time{}, time.Time{})
	require.NoError(t, err)
	last := rows[len(rows)-1]
	for _, w := range models.Windows {
		require.True(t, last.Extrema[w].Complete(), "window %s", w)
	}
	// At 2024-02-05 the 4-week window starts at 2024-01-08; the 52-week window
	// still reaches back to 2024-01-01.
	assertExtremum(t, last.Extrema[models.Window4], 30, "2024-01-08", 12, "2024-01-22")
	assertExtremum(t, last.Extrema[models.Window52], 30, "2024-01-08", 10, "2024-01-01")
}

func TestUpdateInvalidWindow(t *testing.T) {
	_, err := NewMaintainer(newRollingStore(t), zerolog.Nop()).Update(context.Background(), models.Window(26), false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidWindow)

	stats, err := NewMaintainer(newRollingStore(t), zerolog.Nop()).UpdateWindows(context.Background(),
		[]models.Window{models.Window4, models.Window(3)}, false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidWindow)
	assert.Len(t, stats, 1)
}
