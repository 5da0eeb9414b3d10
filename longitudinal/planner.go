package longitudinal

import (
	"math"

	"longplan-core/utils"
)

// State is every value the planner carries across cycles. It is owned
// exclusively by the caller and threaded through Step, so the planner
// itself stays stateless and deterministic for testing.
type State struct {
	VDesiredFilter FirstOrderFilter
	ADesired       float64
	VModelError    float64

	// Latches. These survive resets; they clear only on process restart
	// or their own transition rules.
	FCW                 bool
	SLCOverridden       bool
	GreenLight          bool
	PreviouslyDriving   bool
	StoppedForLightPrev bool

	VisionTurn VisionTurnTarget
}

// NewState seeds the kinematic state from the measured ego motion.
func NewState(vEgo, aEgo float64) State {
	return State{
		VDesiredFilter: NewFirstOrderFilter(vEgo, 2.0, DTModel),
		ADesired:       aEgo,
		VisionTurn:     VisionTurnTarget{Target: MinTargetV},
	}
}

// PlannerParams is the fixed (per-vehicle) planner configuration.
type PlannerParams struct {
	SteerRatio      float64
	Wheelbase       float64
	OwnsLongControl bool
}

// Planner fuses one CycleInput with the policy snapshot into solver
// constraints, runs the optimizer, and produces the published plan.
type Planner struct {
	limiter         *AccelLimiter
	opt             Optimizer
	log             *utils.Logger
	ownsLongControl bool
}

// New builds a planner. The initial acceleration profile is validated
// here: an undefined profile is a configuration fault and refuses to
// start rather than guessing bounds.
func New(p PlannerParams, initialProfile AccelProfile, opt Optimizer, log *utils.Logger) (*Planner, error) {
	if err := ValidateProfile(initialProfile); err != nil {
		return nil, err
	}
	limiter, err := NewAccelLimiter(p.SteerRatio, p.Wheelbase)
	if err != nil {
		return nil, err
	}
	return &Planner{
		limiter:         limiter,
		opt:             opt,
		log:             log,
		ownsLongControl: p.OwnsLongControl,
	}, nil
}

// Step runs one control cycle: constraint fusion, solve, horizon
// resampling, latch updates, plan assembly. It never fails the cycle; a
// solver fault degrades to an invalid-marked plan with zero trajectories.
func (p *Planner) Step(st State, in CycleInput, cfg PolicyConfig, pers Personality) (State, Plan) {
	mode := ModeACC
	if in.ExperimentalMode {
		mode = ModeBlended
	}

	vCruise := math.Min(in.VCruiseKph, VCruiseMaxKph) * KphToMs

	// Reset current state when not engaged, or when the driver is
	// controlling the speed.
	var reset bool
	if p.ownsLongControl {
		reset = in.LongControlOff
	} else {
		reset = !in.Enabled
	}
	prevAccelConstraint := !(reset || in.Standstill)

	var cruiseEnv, env Envelope
	if mode == ModeACC {
		cruiseEnv = p.limiter.CruiseEnvelope(cfg.AccelerationProfile, in.VEgo)
		env = p.limiter.LimitInTurns(cruiseEnv, in.VEgo, in.SteeringAngleDeg)
	} else {
		cruiseEnv = WideEnvelope()
		env = cruiseEnv
	}

	if reset {
		st.VDesiredFilter.X = in.VEgo
		// Clamp measured accel into the cruise envelope so re-engaging
		// never seeds an out-of-bounds command.
		st.ADesired = clampF(in.AEgo, cruiseEnv.Min, cruiseEnv.Max)
	}

	// Smooth in the measured speed and keep the filter out of negative
	// territory, where it would otherwise diverge at a stop.
	st.VDesiredFilter.Update(in.VEgo)
	if st.VDesiredFilter.X < 0 {
		st.VDesiredFilter.X = 0
	}
	st.VModelError = modelSpeedError(in.Model, in.VEgo)

	if in.ForceDecel {
		vCruise = 0
	}

	var slcLimit float64
	if cfg.SpeedLimitController {
		slcLimit = in.DesiredSpeedLimit
		vCruise, st.SLCOverridden = speedLimitCap(vCruise, in, st.SLCOverridden)
	}

	if cfg.VisionTurnController && prevAccelConstraint && in.VEgo > 1 {
		st.VisionTurn = visionTurnSpeed(in.Model, in.VEgo, vCruise, cfg.CurveSensitivity, cfg.TurnAggressiveness)
		vCruise = math.Min(vCruise, st.VisionTurn.Target)
	} else {
		st.VisionTurn.Offset = 0
	}

	// Nudge the bounds so the current desired acceleration stays
	// feasible; the solver cannot be initialized outside its limits.
	env.Min = math.Min(env.Min, st.ADesired+0.05)
	env.Max = math.Max(env.Max, st.ADesired-0.05)

	modelX, modelV, modelA := parseModel(in.Model, st.VModelError)

	p.opt.SetWeights(prevAccelConstraint, cfg.JerkFor(pers))
	p.opt.SetAccelLimits(env.Min, env.Max)
	p.opt.SetCurrentState(st.VDesiredFilter.X, st.ADesired)

	sol, err := p.opt.Solve(SolveRequest{
		Mode:                   mode,
		VCruise:                vCruise,
		Lead:                   in.Lead,
		ModelX:                 modelX,
		ModelV:                 modelV,
		ModelA:                 modelA,
		FollowT:                cfg.FollowFor(pers),
		StoppingDistanceBias:   cfg.StoppingDistanceBias,
		AggressiveAcceleration: cfg.AggressiveAcceleration,
		SmootherBraking:        cfg.SmootherBraking,
	})
	if err != nil {
		p.log.Error("solve failed: %v", err)
		return st, invalidPlan(st, in, cfg, pers, slcLimit)
	}

	distances, speeds, accels, jerks := resampleSolution(sol)

	st.FCW = sol.CrashCount > FCWCrashThreshold && !in.Standstill
	if st.FCW {
		p.log.Info("FCW triggered")
	}

	// Interpolate one cycle ahead and save as the next iteration's seed;
	// the trapezoidal velocity advance keeps the commanded acceleration
	// C1-continuous across cycles.
	aPrev := st.ADesired
	st.ADesired = interpAt(DTModel, TIdxs[:ControlN], accels)
	st.VDesiredFilter.X += DTModel * (st.ADesired + aPrev) / 2.0

	if cfg.GreenLightAlert {
		st.updateGreenLight(in)
	}

	return st, assemblePlan(st, in, cfg, pers, sol, trajectory{
		Distances: distances,
		Speeds:    speeds,
		Accels:    accels,
		Jerks:     jerks,
	}, slcLimit)
}
