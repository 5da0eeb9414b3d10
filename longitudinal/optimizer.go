package longitudinal

import (
	"fmt"
	"math"
	"time"
)

// Mode selects the solver operating mode for a cycle.
type Mode int

const (
	ModeACC Mode = iota
	ModeBlended
)

// Source tags which solver mode produced the published trajectory.
type Source int

const (
	SourceCruise Source = iota
	SourceLead
	SourceBlended
)

func (s Source) String() string {
	switch s {
	case SourceCruise:
		return "cruise"
	case SourceLead:
		return "lead"
	case SourceBlended:
		return "blended"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// SolveRequest carries the per-cycle model inputs into the solver.
type SolveRequest struct {
	Mode    Mode
	VCruise float64
	Lead    Lead

	// Road-model trajectories on the solver grid, bias-corrected.
	ModelX []float64
	ModelV []float64
	ModelA []float64

	// Personality follow gap, seconds.
	FollowT float64

	StoppingDistanceBias   float64
	AggressiveAcceleration bool
	SmootherBraking        bool
}

// Solution is the sampled solver output on its native time grid. J is one
// sample shorter than the grid: it is the derivative between consecutive
// acceleration samples.
type Solution struct {
	X []float64
	V []float64
	A []float64
	J []float64

	CrashCount int
	Source     Source
	SolveTime  float64

	SafeObstacleDistance     float64
	StoppedEquivalenceFactor float64
}

// Optimizer is the narrow capability interface the planner drives each
// cycle: weights, limits, and current state are staged, then Solve
// produces a sampled trajectory. Implementations own their internal
// algorithm entirely; the planner only depends on this contract.
type Optimizer interface {
	SetWeights(prevAccelConstraint bool, jerkFactor float64)
	SetAccelLimits(minAccel, maxAccel float64)
	SetCurrentState(v, a float64)
	Solve(req SolveRequest) (Solution, error)
}

// FollowerSolver is the reference Optimizer: a jerk-limited forward
// rollout toward the cruise target, bounded by an IDM-style
// lead-following acceleration. It is deliberately simple; a QP-based
// solver can replace it behind the same interface.
type FollowerSolver struct {
	prevAccelConstraint bool
	jerkFactor          float64
	minAccel            float64
	maxAccel            float64
	v0                  float64
	a0                  float64

	// crashCnt counts consecutive solves whose prediction penetrates the
	// lead obstacle; it resets to zero on the first clean solve.
	crashCnt int
}

func NewFollowerSolver() *FollowerSolver {
	return &FollowerSolver{jerkFactor: 1.0, minAccel: AccelMin, maxAccel: AccelMax}
}

func (s *FollowerSolver) SetWeights(prevAccelConstraint bool, jerkFactor float64) {
	s.prevAccelConstraint = prevAccelConstraint
	if jerkFactor <= 0 {
		jerkFactor = 1.0
	}
	s.jerkFactor = jerkFactor
}

func (s *FollowerSolver) SetAccelLimits(minAccel, maxAccel float64) {
	s.minAccel = minAccel
	s.maxAccel = maxAccel
}

func (s *FollowerSolver) SetCurrentState(v, a float64) {
	s.v0 = v
	s.a0 = a
}

// cruiseGain converts speed error to a commanded acceleration.
const cruiseGain = 0.5

func (s *FollowerSolver) Solve(req SolveRequest) (Solution, error) {
	start := time.Now()

	sol := Solution{
		X: make([]float64, SolverN),
		V: make([]float64, SolverN),
		A: make([]float64, SolverN),
		J: make([]float64, SolverN-1),
	}

	// A larger personality jerk value weights comfort harder, so it maps
	// to a lower jerk budget for the rollout.
	jerkLimit := 2.0 / s.jerkFactor

	leadConstrained := false
	crashed := false

	x, v, a := 0.0, s.v0, s.a0
	for j := 0; j < SolverN; j++ {
		sol.X[j], sol.V[j], sol.A[j] = x, v, a
		if j == SolverN-1 {
			break
		}
		t := TIdxsSolver[j]
		dt := TIdxsSolver[j+1] - t

		aDes := clampF(cruiseGain*(req.VCruise-v), s.minAccel, s.maxAccel)

		if req.Lead.Status {
			aLead, gap := s.followAccel(req, x, v, t)
			if gap < 0 && t <= 2.0 {
				crashed = true
			}
			if aLead < aDes {
				aDes = aLead
				leadConstrained = true
			}
		}
		aDes = clampF(aDes, s.minAccel, s.maxAccel)

		// No change cost on the first step when the previous acceleration
		// is not being held (reset or standstill).
		if j == 0 && !s.prevAccelConstraint {
			a = aDes
		} else {
			a += clampF(aDes-a, -jerkLimit*dt, jerkLimit*dt)
		}

		x += v*dt + 0.5*a*dt*dt
		v = math.Max(0, v+a*dt)
	}

	for j := 0; j < SolverN-1; j++ {
		dt := TIdxsSolver[j+1] - TIdxsSolver[j]
		sol.J[j] = (sol.A[j+1] - sol.A[j]) / dt
	}

	if crashed {
		s.crashCnt++
	} else {
		s.crashCnt = 0
	}
	sol.CrashCount = s.crashCnt

	sol.StoppedEquivalenceFactor = req.Lead.VLead * req.Lead.VLead / (2 * ComfortBrake)
	sol.SafeObstacleDistance = s.safeDistance(req, s.v0)

	switch {
	case req.Mode == ModeBlended:
		sol.Source = SourceBlended
	case leadConstrained:
		sol.Source = SourceLead
	default:
		sol.Source = SourceCruise
	}
	sol.SolveTime = time.Since(start).Seconds()
	return sol, nil
}

// safeDistance is the desired gap to a stopped obstacle at speed v.
func (s *FollowerSolver) safeDistance(req SolveRequest, v float64) float64 {
	return v*v/(2*ComfortBrake) + req.FollowT*v + StopDistance + req.StoppingDistanceBias
}

// followAccel returns the IDM-style acceleration bound imposed by the
// lead at rollout time t, plus the raw gap for crash detection. The lead
// is propagated at constant speed.
func (s *FollowerSolver) followAccel(req SolveRequest, x, v, t float64) (accel, gap float64) {
	gap = req.Lead.DRel + req.Lead.VLead*t - x
	if gap <= 0 {
		return s.minAccel, gap
	}

	approach := v * (v - req.Lead.VLead) / (2 * math.Sqrt(ComfortBrake*math.Max(s.maxAccel, 0.1)))
	if req.SmootherBraking {
		approach *= 0.5
	}
	if req.AggressiveAcceleration && req.Lead.VLead > v {
		approach = 0
	}
	sStar := StopDistance + req.StoppingDistanceBias + req.FollowT*v + math.Max(0, approach)

	vFree := math.Max(req.VCruise, 0.1)
	accel = s.maxAccel * (1 - math.Pow(v/vFree, 4) - (sStar/gap)*(sStar/gap))
	return clampF(accel, s.minAccel, s.maxAccel), gap
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
