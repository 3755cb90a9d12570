package corporate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "pricebook/internal/errors"
	"pricebook/internal/models"
)

// NoOpTolerance is the distance from 1 below which a combined factor is a no-op.
const NoOpTolerance = 1e-9

// CumPriceLookup finds the last close recorded strictly before a date.
type CumPriceLookup interface {
	LastCloseBefore(ctx context.Context, symbol string, date time.Time) (float64, bool, error)
}

// SplitFactor returns new/old face value.
func SplitFactor(s FaceSplit) (decimal.Decimal, error) {
	if s.OldFaceValue.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: zero old face value", apperrors.ErrParseFailure)
	}
	return s.NewFaceValue.Div(s.OldFaceValue), nil
}

// BonusFactor returns old/(old+new).
func BonusFactor(b Bonus) (decimal.Decimal, error) {
	total := decimal.NewFromInt(b.OldShares).Add(decimal.NewFromInt(b.NewShares))
	if total.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: empty bonus ratio", apperrors.ErrParseFailure)
	}
	return decimal.NewFromInt(b.OldShares).Div(total), nil
}

// RightsFactor returns the theoretical ex-rights price divided by cum.
//
//	ex = (cum*old + issue*new) / (old + new)
func RightsFactor(r Rights, cum decimal.Decimal) (decimal.Decimal, error) {
	if cum.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: zero cum price", apperrors.ErrLookupFailure)
	}
	total := decimal.NewFromInt(r.OldShares).Add(decimal.NewFromInt(r.NewShares))
	if total.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: empty rights ratio", apperrors.ErrParseFailure)
	}
	oldValue := cum.Mul(decimal.NewFromInt(r.OldShares))
	newValue := r.IssuePrice.Mul(decimal.NewFromInt(r.NewShares))
	ex := oldValue.Add(newValue).Div(total)
	return ex.Div(cum), nil
}

// BlendedRightsFactor brings every tranche to the LCM of their old-share bases and
// returns the weighted ex-rights price divided by cum.
func BlendedRightsFactor(b BlendedRights, cum decimal.Decimal) (decimal.Decimal, error) {
	if len(b.Tranches) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no rights tranches", apperrors.ErrParseFailure)
	}
	if cum.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: zero cum price", apperrors.ErrLookupFailure)
	}

	basis := int64(1)
	for i, t := range b.Tranches {
		if t.OldShares <= 0 {
			return decimal.Zero, fmt.Errorf("%w: tranche %d has no share basis", apperrors.ErrParseFailure, i+1)
		}
		if i == 0 {
			basis = t.OldShares
			continue
		}
		next, ok := lcm(basis, t.OldShares)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: tranche share bases %d and %d have no int64 common multiple",
				apperrors.ErrParseFailure, basis, t.OldShares)
		}
		basis = next
	}

	totalNew := decimal.Zero
	totalCost := decimal.Zero
	for _, t := range b.Tranches {
		scaled := decimal.NewFromInt(t.NewShares).Mul(decimal.NewFromInt(basis / t.OldShares))
		totalNew = totalNew.Add(scaled)
		totalCost = totalCost.Add(scaled.Mul(t.Price))
	}

	base := decimal.NewFromInt(basis)
	ex := base.Mul(cum).Add(totalCost).Div(base.Add(totalNew))
	return ex.Div(cum), nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// lcm returns the least common multiple of positive a and b, or false if it
// does not fit in an int64.
func lcm(a, b int64) (int64, bool) {
	q := a / gcd(a, b)
	if q > math.MaxInt64/b {
		return 0, false
	}
	return q * b, true
}

// Calculator combines the signals of a notice into one adjustment.
type Calculator struct {
	prices CumPriceLookup
	logger zerolog.Logger
}

// NewCalculator creates a new factor calculator.
func NewCalculator(prices CumPriceLookup, logger zerolog.Logger) *Calculator {
	return &Calculator{
		prices: prices,
		logger: logger.With().Str("component", "calculator").Logger(),
	}
}

// Compute returns the adjustment for n, or nil when n has no effect. Only a failing
// price lookup is returned as an error; unusable signals are logged and dropped.
func (c *Calculator) Compute(ctx context.Context, n *ParsedNotice) (*models.AdjustmentAction, error) {
	if n == nil || !n.Recognized() {
		return nil, nil
	}

	log := c.logger.With().
		Str("symbol", n.Symbol).
		Str("exec_date", models.FormatDate(n.ExecDate)).
		Logger()

	var (
		cum       decimal.Decimal
		cumLoaded bool
		cumErr    error
	)
	cumPrice := func() (decimal.Decimal, error) {
		if cumLoaded {
			return cum, cumErr
		}
		cumLoaded = true
		px, found, err := c.prices.LastCloseBefore(ctx, n.Symbol, n.ExecDate)
		switch {
		case err != nil:
			cumErr = err
		case !found:
			cumErr = fmt.Errorf("%w: no close before %s", apperrors.ErrLookupFailure, models.FormatDate(n.ExecDate))
		default:
			cum = decimal.NewFromFloat(px)
		}
		return cum, cumErr
	}

	combined := decimal.NewFromInt(1)
	var signals []models.SignalFactor

	for _, sig := range n.Signals {
		var (
			factor  decimal.Decimal
			details string
			err     error
		)

		switch s := sig.(type) {
		case FaceSplit:
			factor, err = SplitFactor(s)
			details = fmt.Sprintf("Face Split: %s:%s", s.OldFaceValue, s.NewFaceValue)
		case Bonus:
			factor, err = BonusFactor(s)
			details = fmt.Sprintf("Bonus: %d:%d", s.NewShares, s.OldShares)
		case Rights:
			var px decimal.Decimal
			if px, err = cumPrice(); err == nil {
				factor, err = RightsFactor(s, px)
			}
			details = fmt.Sprintf("Rights: %d:%d (based on close price %s)", s.NewShares, s.OldShares, px)
		case BlendedRights:
			var px decimal.Decimal
			if px, err = cumPrice(); err == nil {
				factor, err = BlendedRightsFactor(s, px)
			}
			details = fmt.Sprintf("Blended Rights: %s (based on close price %s)", describeTranches(s.Tranches), px)
		default:
			err = fmt.Errorf("%w: unsupported signal %T", apperrors.ErrParseFailure, sig)
		}

		if err != nil {
			if !apperrors.Is(err, apperrors.ErrLookupFailure) && !apperrors.Is(err, apperrors.ErrParseFailure) {
				return nil, apperrors.NewDataError("cum_price", n.Symbol, "price lookup failed", err)
			}
			log.Warn().Err(err).Str("action_type", string(sig.Kind())).Msg("Abandoning corporate action signal")
			continue
		}

		combined = combined.Mul(factor)
		signals = append(signals, models.SignalFactor{
			Kind:    sig.Kind(),
			Factor:  factor.InexactFloat64(),
			Details: details,
		})
	}

	if len(signals) == 0 {
		return nil, nil
	}

	factor := combined.InexactFloat64()
	if math.Abs(factor-1.0) < NoOpTolerance {
		log.Debug().Float64("factor", factor).Msg("Combined factor is a no-op")
		return nil, nil
	}

	types := make([]string, len(signals))
	details := make([]string, len(signals))
	for i, s := range signals {
		types[i] = string(s.Kind)
		details[i] = s.Details
	}

	return &models.AdjustmentAction{
		Symbol:   n.Symbol,
		ExecDate: n.ExecDate,
		Type:     strings.Join(types, " & "),
		Details:  strings.Join(details, ", "),
		Factor:   factor,
		Signals:  signals,
	}, nil
}

func describeTranches(tranches []Tranche) string {
	parts := make([]string, len(tranches))
	for i, t := range tranches {
		parts[i] = fmt.Sprintf("%d:%d at %s", t.NewShares, t.OldShares, t.Price)
	}
	return strings.Join(parts, ", ")
}
