package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"pricebook/internal/models"
)

// Property: for any valid price rows, upserting and reading them back yields
// equivalent rows.
func TestProperty_PriceRoundTripConsistency(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "prices_property.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK", "SBIN", "BHARTIARTL", "ITC", "KOTAKBANK", "LT"}

	run := 0
	properties.Property("Price round-trip: upsert then retrieve produces equivalent rows", prop.ForAll(
		func(symbolIdx int, count int, basePrice float64, baseQty int64) bool {
			ctx := context.Background()
			run++
			symbol := fmt.Sprintf("%s_%d", symbols[symbolIdx%len(symbols)], run)

			records := generateTestPrices(symbol, count, basePrice, baseQty)
			if err := store.UpsertPrices(ctx, records); err != nil {
				t.Logf("Failed to upsert prices: %v", err)
				return false
			}

			retrieved, err := store.GetPrices(ctx, symbol, time.Time{}, time.Time{})
			if err != nil {
				t.Logf("Failed to get prices: %v", err)
				return false
			}
			if len(retrieved) != len(records) {
				t.Logf("Count mismatch: expected %d, got %d", len(records), len(retrieved))
				return false
			}

			for i, orig := range records {
				if !pricesEqual(orig, retrieved[i]) {
					t.Logf("Price mismatch at index %d: original=%+v, retrieved=%+v", i, orig, retrieved[i])
					return false
				}
			}
			return true
		},
		gen.IntRange(0, len(symbols)-1),
		gen.IntRange(1, 20),
		gen.Float64Range(10.0, 5000.0),
		gen.Int64Range(1000, 1000000),
	))

	// Property: an adjustment scales exactly the rows before the execution date.
	properties.Property("Adjustment scales only rows before the execution date", prop.ForAll(
		func(count int, cut int, factor float64) bool {
			ctx := context.Background()
			run++
			symbol := fmt.Sprintf("ADJ_%d", run)

			records := generateTestPrices(symbol, count, 1000, 5000)
			if err := store.UpsertPrices(ctx, records); err != nil {
				return false
			}

			cut = cut % count
			execDate := records[cut].TradeDate
			rows, err := store.ApplyAdjustment(ctx, models.AppliedAction{
				LogID:     fmt.Sprintf("log-%d", run),
				Symbol:    symbol,
				ExecDate:  execDate,
				Type:      "Bonus",
				Factor:    factor,
				AppliedAt: time.Now(),
			})
			if err != nil || rows != int64(cut) {
				t.Logf("Unexpected adjustment result: rows=%d err=%v", rows, err)
				return false
			}

			retrieved, err := store.GetPrices(ctx, symbol, time.Time{}, time.Time{})
			if err != nil {
				return false
			}
			for i, orig := range records {
				want := orig.Close
				if i < cut {
					want *= factor
				}
				if !floatEqual(retrieved[i].Close, want, 1e-6) {
					t.Logf("Close mismatch at index %d: want %f, got %f", i, want, retrieved[i].Close)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(0, 100),
		gen.Float64Range(0.01, 2.0),
	))

	properties.Property("Empty batches: upserting no rows succeeds", prop.ForAll(
		func(symbolIdx int) bool {
			return store.UpsertPrices(context.Background(), []models.PriceRecord{}) == nil
		},
		gen.IntRange(0, len(symbols)-1),
	))

	properties.TestingRun(t)
}

// generateTestPrices creates consecutive daily rows with valid OHLC relationships.
func generateTestPrices(symbol string, count int, basePrice float64, baseQty int64) []models.PriceRecord {
	records := make([]models.PriceRecord, count)
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		variation := float64(i%10) * 0.01 * basePrice
		open := basePrice + variation
		closePx := basePrice + variation*0.5

		records[i] = models.PriceRecord{
			Symbol:    symbol,
			TradeDate: baseDate.AddDate(0, 0, i),
			Series:    "EQ",
			Open:      roundToDecimal(open, 2),
			High:      roundToDecimal(math.Max(open, closePx)*1.01, 2),
			Low:       roundToDecimal(math.Min(open, closePx)*0.99, 2),
			Close:     roundToDecimal(closePx, 2),
			Last:      roundToDecimal(closePx, 2),
			PrevClose: roundToDecimal(open, 2),
			TotalQty:  baseQty + int64(i*1000),
		}
	}

	return records
}

// roundToDecimal rounds a float to specified decimal places
func roundToDecimal(val float64, places int) float64 {
	multiplier := math.Pow(10, float64(places))
	return math.Round(val*multiplier) / multiplier
}

// pricesEqual compares two rows with floating point tolerance.
func pricesEqual(a, b models.PriceRecord) bool {
	const tolerance = 0.01

	if !a.TradeDate.Equal(b.TradeDate) || a.Symbol != b.Symbol || a.Series != b.Series {
		return false
	}
	for _, pair := range [][2]float64{
		{a.Open, b.Open}, {a.High, b.High}, {a.Low, b.Low},
		{a.Close, b.Close}, {a.Last, b.Last}, {a.PrevClose, b.PrevClose},
	} {
		if !floatEqual(pair[0], pair[1], tolerance) {
			return false
		}
	}
	return a.TotalQty == b.TotalQty
}

// floatEqual compares two floats with a tolerance.
func floatEqual(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
