// Package safelimit turns a proposed tuning value and a strategy into a risk
// score and a hard ceiling the user interface must not let the user exceed.
package safelimit

import (
	"math"

	"go.uber.org/zap"

	"github.com/tosih/ecu-tuner/pkg/strategy"
)

// Calibration constants. Their physical derivation is unconfirmed; see
// DESIGN.md before relying on them for real tuning.
const (
	ReferenceValue = 100.0
	BaseRiskFactor = 50.0
	BaseHardLimit  = 150.0

	MaxRisk = 100.0
)

// Result is the slider contract. Only the three tagged fields are
// serialised.
type Result struct {
	RiskScore float64 `json:"risk_score"`
	HardLimit float64 `json:"hard_limit"`
	IsSafe    bool    `json:"is_safe"`

	// Profile is the strategy actually applied
	Profile strategy.Profile `json:"-"`
	// Fallback is set when the requested strategy was unknown
	Fallback bool `json:"-"`
}

// Engine evaluates values against a strategy table. It has no mutable
// state and needs no locking.
type Engine struct {
	table  *strategy.Table
	logger *zap.Logger
}

// New returns an engine over table, strategy.Default() when nil.
func New(table *strategy.Table, logger *zap.Logger) *Engine {
	if table == nil {
		table = strategy.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{table: table, logger: logger}
}

// Table returns the strategy table in use.
func (e *Engine) Table() *strategy.Table {
	return e.table
}

// Evaluate always answers. An unknown strategy resolves to the most
// conservative profile and is logged, never returned as an error.
func (e *Engine) Evaluate(value float64, name string) Result {
	p, ok := e.table.Lookup(name)
	if !ok {
		p = e.table.MostConservative()
		e.logger.Warn("unknown strategy, using most conservative profile",
			zap.String("requested", name),
			zap.String("applied", p.Name))
	}

	res := Compute(value, p)
	res.Fallback = !ok
	return res
}

// Compute applies one profile. Pure.
func Compute(value float64, p strategy.Profile) Result {
	hard := BaseHardLimit / p.Multiplier
	return Result{
		RiskScore: Risk(value, p.Multiplier),
		HardLimit: hard,
		IsSafe:    value <= hard,
		Profile:   p,
	}
}

// Risk is clamp(0, 100, value/ReferenceValue * BaseRiskFactor * multiplier).
// A NaN value is treated as maximal risk.
func Risk(value, multiplier float64) float64 {
	if math.IsNaN(value) {
		return MaxRisk
	}
	r := value / ReferenceValue * BaseRiskFactor * multiplier
	return math.Min(MaxRisk, math.Max(0, r))
}
