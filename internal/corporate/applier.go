package corporate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "pricebook/internal/errors"
	"pricebook/internal/logging"
	"pricebook/internal/models"
)

// ActionStore is the part of the price store the applier writes through.
type ActionStore interface {
	IsActionApplied(ctx context.Context, symbol string, execDate time.Time, actionType string) (bool, error)
	HasPricesBefore(ctx context.Context, symbol string, date time.Time) (bool, error)
	ApplyAdjustment(ctx context.Context, entry models.AppliedAction) (int64, error)
}

// Outcome is what happened to one adjustment.
type Outcome string

const (
	OutcomeApplied        Outcome = "APPLIED"
	OutcomeAlreadyApplied Outcome = "ALREADY_APPLIED"
	OutcomeNoPriorData    Outcome = "NO_PRIOR_DATA"
	OutcomeDeclined       Outcome = "DECLINED"
)

// Result records the outcome of one adjustment.
type Result struct {
	Action  models.AdjustmentAction
	Outcome Outcome
	Rows    int64
	Entry   *models.AppliedAction
}

// Report summarizes a batch.
type Report struct {
	Results []Result

	// Notice-level drops, filled by Engine.Run.
	InvalidDate  int
	Unrecognized int
	NoOp         int
}

// Count returns the number of results with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Applier applies adjustments to the price store, one confirmed action at a time.
type Applier struct {
	store   ActionStore
	confirm Confirmer
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string
}

// NewApplier creates a new applier. Every mutation is gated by confirm.
func NewApplier(store ActionStore, confirm Confirmer, logger zerolog.Logger) *Applier {
	return &Applier{
		store:   store,
		confirm: confirm,
		logger:  logger.With().Str("component", "applier").Logger(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Apply runs the idempotency, existence and confirmation gates for action and,
// when all pass, rescales the prior prices and records the audit entry atomically.
func (a *Applier) Apply(ctx context.Context, action models.AdjustmentAction) (Result, error) {
	res := Result{Action: action}
	execDate := models.FormatDate(action.ExecDate)
	log := logging.WithSymbol(a.logger, action.Symbol)

	applied, err := a.store.IsActionApplied(ctx, action.Symbol, action.ExecDate, action.Type)
	if err != nil {
		return res, apperrors.Wrapf(err, "checking audit log for %s %s", action.Symbol, execDate)
	}
	if applied {
		log.Info().
			Str("exec_date", execDate).
			Str("action_type", action.Type).
			Msg("Action already applied, skipping")
		res.Outcome = OutcomeAlreadyApplied
		return res, nil
	}

	exists, err := a.store.HasPricesBefore(ctx, action.Symbol, action.ExecDate)
	if err != nil {
		return res, apperrors.Wrapf(err, "checking prior prices for %s %s", action.Symbol, execDate)
	}
	if !exists {
		logging.LogSkip(log, action.Symbol, execDate, action.Type, apperrors.ErrNoPriorData)
		res.Outcome = OutcomeNoPriorData
		return res, nil
	}

	ok, err := a.confirm.Confirm(ctx, action)
	if err != nil {
		return res, apperrors.Wrapf(err, "confirming %s %s", action.Symbol, execDate)
	}
	if !ok {
		logging.LogSkip(log, action.Symbol, execDate, action.Type, apperrors.ErrDeclined)
		res.Outcome = OutcomeDeclined
		return res, nil
	}

	entry := models.AppliedAction{
		LogID:     a.newID(),
		Symbol:    action.Symbol,
		ExecDate:  action.ExecDate,
		Type:      action.Type,
		Details:   action.Details,
		Factor:    action.Factor,
		AppliedAt: a.now(),
	}

	rows, err := a.store.ApplyAdjustment(ctx, entry)
	if apperrors.Is(err, apperrors.ErrAlreadyApplied) {
		log.Info().
			Str("exec_date", execDate).
			Str("action_type", action.Type).
			Msg("Action applied concurrently, skipping")
		res.Outcome = OutcomeAlreadyApplied
		return res, nil
	}
	if err != nil {
		return res, apperrors.Wrapf(err, "applying %s to %s before %s", action.Type, action.Symbol, execDate)
	}

	logging.LogAdjustment(log, action.Symbol, execDate, action.Type, action.Factor, rows)
	res.Outcome = OutcomeApplied
	res.Rows = rows
	res.Entry = &entry
	return res, nil
}
