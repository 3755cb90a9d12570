// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"pricebook/internal/models"
)

// PriceStore defines the interface for the daily price relation and its audit log.
type PriceStore interface {
	// Prices
	UpsertPrices(ctx context.Context, records []models.PriceRecord) error
	GetPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceRecord, error)
	LastCloseBefore(ctx context.Context, symbol string, date time.Time) (float64, bool, error)
	HasPricesBefore(ctx context.Context, symbol string, date time.Time) (bool, error)
	Symbols(ctx context.Context) ([]string, error)

	// Adjustments & audit log
	IsActionApplied(ctx context.Context, symbol string, execDate time.Time, actionType string) (bool, error)
	ApplyAdjustment(ctx context.Context, entry models.AppliedAction) (int64, error)
	GetAppliedActions(ctx context.Context, filter ActionFilter) ([]models.AppliedAction, error)

	// Rolling windows
	GetHighSeries(ctx context.Context, symbol string, window models.Window) ([]models.HighPoint, error)
	SaveWindowValues(ctx context.Context, window models.Window, values []models.WindowValue) (int64, error)

	// Lifecycle
	Close() error
}

// ActionFilter represents filters for querying the audit log.
type ActionFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
