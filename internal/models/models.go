// Package models provides domain models for the price history store.
package models

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used for trade and execution dates.
const DateLayout = "2006-01-02"

// Window is a trailing window length in weeks.
type Window int

const (
	Window4  Window = 4
	Window12 Window = 12
	Window52 Window = 52
)

// Windows lists the supported rolling windows in update order.
var Windows = []Window{Window4, Window12, Window52}

// Valid reports whether w is one of the supported window lengths.
func (w Window) Valid() bool {
	switch w {
	case Window4, Window12, Window52:
		return true
	}
	return false
}

// Days returns the window length in calendar days.
func (w Window) Days() int {
	return int(w) * 7
}

func (w Window) String() string {
	return fmt.Sprintf("%dw", int(w))
}

// PriceRecord represents one trading day of a symbol.
type PriceRecord struct {
	Symbol      string
	TradeDate   time.Time
	Series      string
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Last        float64
	PrevClose   float64
	TotalQty    int64
	TotalValue  float64
	TotalTrades int64
	ISIN        string

	// Rolling extrema keyed by window; missing entries are unset.
	Extrema map[Window]WindowExtremum
}

// WindowExtremum holds the trailing high/low of one window and the dates they occurred.
// Nil fields are not yet computed.
type WindowExtremum struct {
	High     *float64
	HighDate *time.Time
	Low      *float64
	LowDate  *time.Time
}

// Complete reports whether all four fields are set.
func (e WindowExtremum) Complete() bool {
	return e.High != nil && e.HighDate != nil && e.Low != nil && e.LowDate != nil
}

// HighPoint is one (trade_date, high) sample of a symbol's series.
type HighPoint struct {
	TradeDate time.Time
	High      *float64
	// Current holds the stored extremum for the window being maintained.
	Current WindowExtremum
}

// WindowValue is a computed extremum ready to be written back.
type WindowValue struct {
	Symbol    string
	TradeDate time.Time
	Extremum  WindowExtremum
}

// FormatDate formats a date using DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a DateLayout date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
