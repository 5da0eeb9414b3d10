package longitudinal

import "time"

type trajectory struct {
	Distances []float64
	Speeds    []float64
	Accels    []float64
	Jerks     []float64
}

// Plan is the per-cycle published record. All four trajectory arrays
// have length ControlN.
type Plan struct {
	Distances []float64
	Speeds    []float64
	Accels    []float64
	Jerks     []float64

	HasLead bool
	Source  Source
	FCW     bool

	SolverExecutionTime float64
	Personality         Personality

	ConditionalExperimental bool
	GreenLight              bool

	SLCOverridden       bool
	SLCSpeedLimit       float64
	SLCSpeedLimitOffset float64
	VTSCOffset          float64

	// Lead-following diagnostics, zeroed when no lead is detected.
	SafeObstacleDistance     float64
	StoppedEquivalenceFactor float64
	DesiredFollowDistance    float64

	// Valid reflects required-input freshness; an invalid plan is still
	// published every cycle rather than suppressed.
	Valid           bool
	ProcessingDelay float64
}

func assemblePlan(st State, in CycleInput, cfg PolicyConfig, pers Personality, sol Solution, traj trajectory, slcLimit float64) Plan {
	plan := Plan{
		Distances: traj.Distances,
		Speeds:    traj.Speeds,
		Accels:    traj.Accels,
		Jerks:     traj.Jerks,

		HasLead: in.Lead.Status,
		Source:  sol.Source,
		FCW:     st.FCW,

		SolverExecutionTime: sol.SolveTime,
		Personality:         pers,

		ConditionalExperimental: cfg.ConditionalExperimentalMode && in.ConditionalExperimentalActive,
		GreenLight:              st.GreenLight,

		SLCOverridden:       st.SLCOverridden,
		SLCSpeedLimit:       slcLimit,
		SLCSpeedLimitOffset: cfg.SpeedLimitOffset,
		VTSCOffset:          st.VisionTurn.Offset,

		Valid:           in.CarStateValid && in.ControlsStateValid,
		ProcessingDelay: time.Since(in.Model.Timestamp).Seconds(),
	}

	if in.LeadDetected {
		plan.SafeObstacleDistance = sol.SafeObstacleDistance
		plan.StoppedEquivalenceFactor = sol.StoppedEquivalenceFactor
		plan.DesiredFollowDistance = sol.SafeObstacleDistance - sol.StoppedEquivalenceFactor
	}
	return plan
}

// invalidPlan is the degraded record published when the solver faults:
// zero trajectories, marked invalid, latches and diagnostics preserved.
func invalidPlan(st State, in CycleInput, cfg PolicyConfig, pers Personality, slcLimit float64) Plan {
	plan := assemblePlan(st, in, cfg, pers, Solution{}, trajectory{
		Distances: make([]float64, ControlN),
		Speeds:    make([]float64, ControlN),
		Accels:    make([]float64, ControlN),
		Jerks:     make([]float64, ControlN),
	}, slcLimit)
	plan.Valid = false
	return plan
}
