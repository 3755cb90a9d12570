// Package corporate parses exchange corporate-action notices and applies the
// resulting price adjustments retroactively to the price history.
package corporate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "pricebook/internal/errors"
	"pricebook/internal/models"
)

// ExecDateLayout is the layout of execution dates in exchange notices, e.g. 01-APR-2016.
const ExecDateLayout = "2-Jan-2006"

var (
	splitFromRe = regexp.MustCompile(`(?i)(?:FROM\s+)?R(?:S|E)\.?\s*(\d+(?:\.\d+)?)`)
	splitToRe   = regexp.MustCompile(`(?i)TO\s+R(?:S|E)\.?\s*(\d+(?:\.\d+)?)`)
	bonusRe     = regexp.MustCompile(`BONUS(\s+DEBENTURES)?\s+(\d+)\s*:\s*(\d+)`)
	rightsRe    = regexp.MustCompile(`RIGHTS(?:-EQ)?\s*(\d+)\s*:\s*(\d+)`)
	rightsPxRe  = regexp.MustCompile(`(?i)(?:@PREM|@PREMIUM|@ PREMIUM)?\s*R(?:S|E)\.?\s*(\d+(?:\.\d+)?)`)
	trancheRe   = regexp.MustCompile(`(\d+):(\d+).*?@.*?RS\s*(\d+(?:\.\d+)?)`)
)

// Signal is one corporate action recognized in a notice.
type Signal interface {
	Kind() models.ActionKind
}

// FaceSplit is a face-value split from OldFaceValue to NewFaceValue.
type FaceSplit struct {
	OldFaceValue decimal.Decimal
	NewFaceValue decimal.Decimal
}

func (FaceSplit) Kind() models.ActionKind { return models.KindFaceSplit }

// Bonus issues NewShares for every OldShares held.
type Bonus struct {
	NewShares  int64
	OldShares  int64
	Debentures bool
}

func (Bonus) Kind() models.ActionKind { return models.KindBonus }

// Rights offers NewShares for every OldShares held at IssuePrice.
type Rights struct {
	NewShares  int64
	OldShares  int64
	IssuePrice decimal.Decimal
}

func (Rights) Kind() models.ActionKind { return models.KindRights }

// Tranche is one offer of a multi-tranche rights issue.
type Tranche struct {
	NewShares int64
	OldShares int64
	Price     decimal.Decimal
}

// BlendedRights is a rights issue announced as several simultaneous tranches.
type BlendedRights struct {
	Tranches []Tranche
}

func (BlendedRights) Kind() models.ActionKind { return models.KindBlendedRights }

// ParsedNotice is a notice reduced to its execution date and recognized signals.
// An empty Signals slice means nothing was recognized.
type ParsedNotice struct {
	Symbol   string
	ExecDate time.Time
	Purpose  string
	Signals  []Signal

	// Failures holds the signals that were detected but could not be parsed.
	Failures []error
}

// Recognized reports whether at least one signal was extracted.
func (p *ParsedNotice) Recognized() bool {
	return len(p.Signals) > 0
}

// Parser turns raw notices into typed signals.
type Parser struct {
	logger zerolog.Logger
}

// NewParser creates a new notice parser.
func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{logger: logger.With().Str("component", "parser").Logger()}
}

// ParseExecDate converts a notice execution date such as "01-APR-2016" to a date.
func ParseExecDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	t, err := time.Parse(ExecDateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrDateParse, "%q", raw)
	}
	return t, nil
}

// Parse extracts every recognized signal from n. Only an unparsable execution date
// fails the whole notice; signal-level failures are logged and recorded in Failures.
func (p *Parser) Parse(n models.Notice) (*ParsedNotice, error) {
	symbol := strings.ToUpper(strings.TrimSpace(strings.Trim(strings.TrimSpace(n.Symbol), `"`)))
	purpose := strings.ToUpper(strings.TrimSpace(n.Purpose))

	execDate, err := ParseExecDate(n.ExecDate)
	if err != nil {
		p.logger.Info().
			Str("symbol", symbol).
			Str("exec_date", n.ExecDate).
			Str("source", n.Source).
			Int("line", n.Line).
			Msg("Unable to parse execution date, skipping notice")
		return nil, err
	}

	parsed := &ParsedNotice{
		Symbol:   symbol,
		ExecDate: execDate,
		Purpose:  purpose,
	}

	extractors := []struct {
		rule    string
		trigger string
		extract func(string) (Signal, bool)
	}{
		{"face_split", "FACE VALUE SPLIT", extractFaceSplit},
		{"bonus", "BONUS", extractBonus},
		{"rights", "RIGHTS", extractRights},
	}

	for _, ex := range extractors {
		if !strings.Contains(purpose, ex.trigger) {
			continue
		}
		sig, ok := ex.extract(purpose)
		if !ok {
			perr := apperrors.NewParseError(symbol, ex.rule, purpose, apperrors.ErrParseFailure)
			parsed.Failures = append(parsed.Failures, perr)
			p.logger.Warn().
				Str("symbol", symbol).
				Str("rule", ex.rule).
				Str("purpose", purpose).
				Msg("Unable to parse corporate action")
			continue
		}
		parsed.Signals = append(parsed.Signals, sig)
	}

	return parsed, nil
}

func extractFaceSplit(purpose string) (Signal, bool) {
	from := splitFromRe.FindStringSubmatch(purpose)
	to := splitToRe.FindStringSubmatch(purpose)
	if from == nil || to == nil {
		return nil, false
	}
	oldFV, err1 := decimal.NewFromString(from[1])
	newFV, err2 := decimal.NewFromString(to[1])
	if err1 != nil || err2 != nil || oldFV.IsZero() {
		return nil, false
	}
	return FaceSplit{OldFaceValue: oldFV, NewFaceValue: newFV}, true
}

func extractBonus(purpose string) (Signal, bool) {
	m := bonusRe.FindStringSubmatch(purpose)
	if m == nil {
		return nil, false
	}
	newShares, err1 := strconv.ParseInt(m[2], 10, 64)
	oldShares, err2 := strconv.ParseInt(m[3], 10, 64)
	if err1 != nil || err2 != nil || oldShares+newShares == 0 {
		return nil, false
	}
	return Bonus{NewShares: newShares, OldShares: oldShares, Debentures: m[1] != ""}, true
}

// extractRights recognizes a single-tranche offer and falls back to the
// multi-tranche form when the single ratio and price are not both present.
func extractRights(purpose string) (Signal, bool) {
	ratio := rightsRe.FindStringSubmatch(purpose)
	price := rightsPxRe.FindStringSubmatch(purpose)
	if ratio != nil && price != nil {
		newShares, err1 := strconv.ParseInt(ratio[1], 10, 64)
		oldShares, err2 := strconv.ParseInt(ratio[2], 10, 64)
		issue, err3 := decimal.NewFromString(price[1])
		if err1 != nil || err2 != nil || err3 != nil || oldShares+newShares == 0 {
			return nil, false
		}
		return Rights{NewShares: newShares, OldShares: oldShares, IssuePrice: issue}, true
	}

	matches := trancheRe.FindAllStringSubmatch(purpose, -1)
	if len(matches) == 0 {
		return nil, false
	}
	blended := BlendedRights{Tranches: make([]Tranche, 0, len(matches))}
	for _, m := range matches {
		newShares, err1 := strconv.ParseInt(m[1], 10, 64)
		oldShares, err2 := strconv.ParseInt(m[2], 10, 64)
		px, err3 := decimal.NewFromString(m[3])
		if err1 != nil || err2 != nil || err3 != nil || oldShares == 0 {
			return nil, false
		}
		blended.Tranches = append(blended.Tranches, Tranche{NewShares: newShares, OldShares: oldShares, Price: px})
	}
	return blended, true
}
