package longitudinal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// AccelProfile selects a cruise acceleration tune.
type AccelProfile int

const (
	ProfileDefault AccelProfile = iota
	ProfileEco
	ProfileStandard
	ProfileSport
)

func (p AccelProfile) String() string {
	switch p {
	case ProfileDefault:
		return "default"
	case ProfileEco:
		return "eco"
	case ProfileStandard:
		return "standard"
	case ProfileSport:
		return "sport"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

// Envelope is the [Min, Max] longitudinal acceleration bound handed to the
// solver, m/s^2.
type Envelope struct {
	Min float64
	Max float64
}

// normalized restores Min <= Max after a clipping step. The lower bound is
// pulled down rather than the bounds crossing, so the solver never sees an
// infeasible envelope.
func (e Envelope) normalized() Envelope {
	if e.Min > e.Max {
		e.Min = e.Max
	}
	return e
}

// table is a clamped piecewise-linear breakpoint table. Evaluation outside
// the breakpoint domain returns the nearest endpoint value, never an
// extrapolation.
type table struct {
	pl interp.PiecewiseLinear
}

func mustTable(xs, ys []float64) table {
	var t table
	if err := t.pl.Fit(xs, ys); err != nil {
		panic(fmt.Sprintf("bad breakpoint table: %v", err))
	}
	return t
}

func (t table) eval(x float64) float64 { return t.pl.Predict(x) }

type profileTables struct {
	min table
	max table
}

var profiles = map[AccelProfile]profileTables{
	ProfileDefault: {
		min: mustTable([]float64{0, 1}, []float64{ACruiseMinStock, ACruiseMinStock}),
		max: mustTable(aCruiseMaxBPStock, aCruiseMaxVStock),
	},
	ProfileEco: {
		min: mustTable(aCruiseMinBPTuned, aCruiseMinVEco),
		max: mustTable(aCruiseMaxBPTuned, aCruiseMaxVEco),
	},
	ProfileStandard: {
		min: mustTable([]float64{0, 1}, []float64{ACruiseMinStock, ACruiseMinStock}),
		max: mustTable(aCruiseMaxBPStock, aCruiseMaxVStock),
	},
	ProfileSport: {
		min: mustTable(aCruiseMinBPTuned, aCruiseMinVSport),
		max: mustTable(aCruiseMaxBPTuned, aCruiseMaxVSport),
	},
}

// ValidateProfile reports whether a profile id read from configuration is
// one of the defined tunes. An undefined id changes safety-relevant bounds,
// so callers must treat this as a startup fault rather than substituting.
func ValidateProfile(p AccelProfile) error {
	if _, ok := profiles[p]; !ok {
		return fmt.Errorf("undefined acceleration profile %d", int(p))
	}
	return nil
}

// AccelLimiter maps ego speed to a cruise acceleration envelope and
// tightens it for turns.
type AccelLimiter struct {
	steerRatio float64
	wheelbase  float64
	turnBudget table
}

func NewAccelLimiter(steerRatio, wheelbase float64) (*AccelLimiter, error) {
	if steerRatio <= 0 || wheelbase <= 0 {
		return nil, fmt.Errorf("invalid steering geometry: ratio=%v wheelbase=%v", steerRatio, wheelbase)
	}
	return &AccelLimiter{
		steerRatio: steerRatio,
		wheelbase:  wheelbase,
		turnBudget: mustTable(aTotalMaxBP, aTotalMaxV),
	}, nil
}

// CruiseEnvelope evaluates the profile's breakpoint tables at vEgo.
func (l *AccelLimiter) CruiseEnvelope(profile AccelProfile, vEgo float64) Envelope {
	t, ok := profiles[profile]
	if !ok {
		// Validated at startup; mid-run this means a corrupted refresh.
		// Fall back to the stock tune rather than guessing wider bounds.
		t = profiles[ProfileStandard]
	}
	return Envelope{Min: t.min.eval(vEgo), Max: t.max.eval(vEgo)}.normalized()
}

// LimitInTurns tightens the upper bound so combined longitudinal and
// lateral acceleration stays inside the speed-dependent total budget.
//
// The lateral estimate v^2 * steer / (ratio * wheelbase) is a known
// approximation of the full vehicle model; the budget table was tuned
// against it, so swap both together if an exact model is substituted.
func (l *AccelLimiter) LimitInTurns(env Envelope, vEgo, steerAngleDeg float64) Envelope {
	aTotalMax := l.turnBudget.eval(vEgo)
	aY := vEgo * vEgo * steerAngleDeg * DegToRad / (l.steerRatio * l.wheelbase)
	aXAllowed := math.Sqrt(math.Max(aTotalMax*aTotalMax-aY*aY, 0))
	env.Max = math.Min(env.Max, aXAllowed)
	return env.normalized()
}

// WideEnvelope is the physical-limit envelope used when the blended mode
// bypasses profile and turn limiting.
func WideEnvelope() Envelope {
	return Envelope{Min: AccelMin, Max: AccelMax}
}
