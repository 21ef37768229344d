package models

import (
	"errors"
	"fmt"
	"time"
)

// Action is the trading intent of a cycle.
type Action string

const (
	ActionBuyUp   Action = "BUY_UP"
	ActionBuyDown Action = "BUY_DOWN"
	ActionNoTrade Action = "NO_TRADE"
)

// Reason codes attached to decisions and rounds.
const (
	ReasonEdgeMet          = "edge_threshold_met"
	ReasonInverseEdgeMet   = "inverse_edge_threshold_met"
	ReasonEdgeBelow        = "edge_below_threshold"
	ReasonReferenceUnavail = "reference_price_unavailable"
	ReasonPaperFill        = "paper_fill"
	ReasonDiscoveryUnavail = "market_discovery_unavailable"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuyUp, ActionBuyDown, ActionNoTrade:
		return true
	}
	return false
}

// Decision is the computed trading intent for one cycle.
type Decision struct {
	Action      Action  `json:"action"`
	Probability float64 `json:"probability"`
	Reason      string  `json:"reason"`
	Size        float64 `json:"size"`
}

// NoTrade rewrites d in place as a NO_TRADE with the given reason.
// Probability is kept for observability.
func (d *Decision) NoTrade(reason string) {
	d.Action = ActionNoTrade
	d.Reason = reason
	d.Size = 0
}

// Validate checks that all decision fields are valid
func (d *Decision) Validate() error {
	if !d.Action.Valid() {
		return fmt.Errorf("unknown action %q", d.Action)
	}
	if d.Probability < 0.0 || d.Probability > 1.0 {
		return errors.New("probability must be between 0.0 and 1.0")
	}
	if d.Reason == "" {
		return errors.New("decision reason must not be empty")
	}
	if d.Size < 0 {
		return errors.New("size must not be negative")
	}
	if d.Action == ActionNoTrade && d.Size != 0 {
		return errors.New("NO_TRADE decision must have zero size")
	}
	return nil
}

// DecisionRecord is a decision as stored in the ledger.
type DecisionRecord struct {
	Timestamp  string
	MarketSlug string
	Decision
}

// Round is the outcome record of one full cycle.
type Round struct {
	Timestamp  time.Time
	MarketSlug string
	Status     Action
	Reason     string
}

// Validate checks that all round fields are valid
func (r *Round) Validate() error {
	if r.MarketSlug == "" {
		return errors.New("round market slug must not be empty")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("unknown round status %q", r.Status)
	}
	if r.Reason == "" {
		return errors.New("round reason must not be empty")
	}
	return nil
}
