package models

import "time"

// Notice is one raw corporate-action row as published by the exchange.
type Notice struct {
	Symbol   string
	Purpose  string
	ExecDate string

	// Source identifies where the notice came from, for diagnostics.
	Source string
	Line   int
}

// ActionKind identifies a recognized corporate action.
type ActionKind string

const (
	KindFaceSplit     ActionKind = "Face Split"
	KindBonus         ActionKind = "Bonus"
	KindRights        ActionKind = "Rights"
	KindBlendedRights ActionKind = "Blended Rights"
)

// SignalFactor is the factor computed for one recognized signal.
type SignalFactor struct {
	Kind    ActionKind
	Factor  float64
	Details string
}

// AdjustmentAction is a fully computed adjustment awaiting application.
type AdjustmentAction struct {
	Symbol   string
	ExecDate time.Time
	Type     string // e.g. "Face Split & Bonus"
	Details  string
	Factor   float64
	Signals  []SignalFactor
}

// AppliedAction is an audit entry for an adjustment that was applied.
type AppliedAction struct {
	LogID     string
	Symbol    string
	ExecDate  time.Time
	Type      string
	Details   string
	Factor    float64
	AppliedAt time.Time
}
