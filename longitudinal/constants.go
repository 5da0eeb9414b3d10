package longitudinal

import "math"

// Cycle and horizon geometry. The road model reports ModelN samples on a
// quadratic time grid out to 10s; the solver runs on a coarser quadratic
// grid over the same span; the published plan is the first ControlN model
// samples.
const (
	DTModel  = 0.05 // control cycle period, s
	ModelN   = 33   // road-model horizon samples
	SolverN  = 13   // solver grid samples
	ControlN = 17   // published horizon samples
)

// Unit conversions.
const (
	KphToMs  = 1.0 / 3.6
	DegToRad = math.Pi / 180.0
	FtToM    = 0.3048
)

// System-level physical acceleration limits, used as the wide envelope in
// blended mode. m/s^2.
const (
	AccelMin = -3.5
	AccelMax = 2.0
)

const (
	ACruiseMinStock = -1.2  // stock constant lower bound, m/s^2
	VCruiseMaxKph   = 145.0 // cruise setpoint ceiling, km/h
	MaxVelErr       = 5.0   // model speed error clamp, m/s
)

// Curvature speed targeting.
const (
	TargetLatA = 1.9 // target lateral acceleration, m/s^2
	MinTargetV = 5.0 // target speed floor, m/s
)

// Lead-following geometry used by the reference solver and the published
// diagnostics.
const (
	ComfortBrake = 2.5 // m/s^2
	StopDistance = 6.0 // m
)

// FCW latches when the solver reports this many consecutive predicted
// near-crash cycles.
const FCWCrashThreshold = 2

// Stock cruise upper-bound table.
var (
	aCruiseMaxBPStock = []float64{0.0, 10.0, 25.0, 40.0}
	aCruiseMaxVStock  = []float64{1.6, 1.2, 0.8, 0.6}
)

// Tuned profiles share one pair of speed breakpoints.
var (
	aCruiseMinBPTuned = []float64{0.0, 2.0, 2.01, 11.0, 11.01, 18.0, 18.01, 28.0, 28.01, 33.0, 55.0}
	aCruiseMaxBPTuned = []float64{0.0, 3.0, 6.0, 8.0, 11.0, 15.0, 20.0, 25.0, 30.0, 55.0}

	aCruiseMinVEco = []float64{-0.480, -0.480, -0.40, -0.40, -0.40, -0.36, -0.32, -0.28, -0.28, -0.25, -0.25}
	aCruiseMaxVEco = []float64{3.5, 3.3, 1.7, 1.1, 0.76, 0.62, 0.47, 0.36, 0.28, 0.09}

	aCruiseMinVSport = []float64{-0.500, -0.500, -0.42, -0.42, -0.42, -0.42, -0.40, -0.35, -0.35, -0.30, -0.30}
	aCruiseMaxVSport = []float64{3.5, 3.5, 3.0, 2.6, 1.4, 1.0, 0.7, 0.6, 0.38, 0.2}
)

// Total-acceleration budget for turn limiting.
var (
	aTotalMaxBP = []float64{20.0, 40.0}
	aTotalMaxV  = []float64{1.7, 3.2}
)

// TIdxs is the road-model time grid: 10*(i/32)^2 seconds.
var TIdxs = quadraticGrid(ModelN, 10.0)

// TIdxsSolver is the solver time grid: 10*(j/12)^2 seconds.
var TIdxsSolver = quadraticGrid(SolverN, 10.0)

func quadraticGrid(n int, maxT float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		frac := float64(i) / float64(n-1)
		out[i] = maxT * frac * frac
	}
	return out
}
