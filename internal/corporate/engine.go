package corporate

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"pricebook/internal/models"
)

// PriceStore is what the engine needs from the price store.
type PriceStore interface {
	ActionStore
	CumPriceLookup
}

// Engine parses a batch of notices and applies them chronologically.
type Engine struct {
	parser     *Parser
	calculator *Calculator
	applier    *Applier
	logger     zerolog.Logger
}

// NewEngine wires a parser, calculator and applier over store.
func NewEngine(store PriceStore, confirm Confirmer, logger zerolog.Logger) *Engine {
	return &Engine{
		parser:     NewParser(logger),
		calculator: NewCalculator(store, logger),
		applier:    NewApplier(store, confirm, logger),
		logger:     logger.With().Str("component", "engine").Logger(),
	}
}

// Run processes notices in ascending execution-date order. Factors are computed
// just before each application, so rights lookups observe adjustments made earlier
// in the same batch. A store failure halts the batch.
func (e *Engine) Run(ctx context.Context, notices []models.Notice) (*Report, error) {
	report := &Report{}

	parsed := make([]*ParsedNotice, 0, len(notices))
	for _, n := range notices {
		p, err := e.parser.Parse(n)
		if err != nil {
			report.InvalidDate++
			continue
		}
		if !p.Recognized() {
			report.Unrecognized++
			continue
		}
		parsed = append(parsed, p)
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].ExecDate.Before(parsed[j].ExecDate)
	})

	for _, p := range parsed {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		action, err := e.calculator.Compute(ctx, p)
		if err != nil {
			return report, err
		}
		if action == nil {
			report.NoOp++
			continue
		}

		res, err := e.applier.Apply(ctx, *action)
		if err != nil {
			return report, err
		}
		report.Results = append(report.Results, res)
	}

	e.logger.Info().
		Int("notices", len(notices)).
		Int("applied", report.Count(OutcomeApplied)).
		Int("already_applied", report.Count(OutcomeAlreadyApplied)).
		Int("no_prior_data", report.Count(OutcomeNoPriorData)).
		Int("declined", report.Count(OutcomeDeclined)).
		Int("invalid_date", report.InvalidDate).
		Int("unrecognized", report.Unrecognized).
		Int("no_op", report.NoOp).
		Msg("Corporate action batch complete")

	return report, nil
}
