package main

import (
	"context"
	"fmt"
	"time"

	"longplan-core/canbus"
	"longplan-core/longitudinal"
	"longplan-core/utils"
)

type RunnerConfig struct {
	Interface       string
	MapPath         string
	ScenarioPath    string
	ParamsDir       string
	PlanFrameName   string
	OwnsLongControl bool
}

// staleAfter is how long a bus channel may go silent before the plan is
// marked invalid.
const staleAfter = 200 * time.Millisecond

// busState is the latest decoded view of the inbound frames, plus when
// each channel was last heard.
type busState struct {
	vEgo             float64
	aEgo             float64
	standstill       bool
	steeringAngleDeg float64
	gasPressed       bool
	brakePressed     bool
	drivingGear      bool
	carStateAt       time.Time

	vCruiseKph       float64
	enabled          bool
	longControlOff   bool
	forceDecel       bool
	experimentalMode bool
	controlsStateAt  time.Time

	lead longitudinal.Lead
}

// rxUpdate carries one decoded frame from the receive goroutine.
type rxUpdate struct {
	frame  string
	values map[string]float64
	at     time.Time
}

type Runner struct {
	cfg    RunnerConfig
	log    *utils.Logger
	cmap   *canbus.Map
	scen   DriveScenario
	writer canbus.Writer
	reader canbus.Reader
	planFD *canbus.FrameDef

	cache   *longitudinal.ParameterCache
	toggles <-chan struct{}

	planner *longitudinal.Planner
	state   longitudinal.State
}

func NewRunner(ctx context.Context, cfg RunnerConfig, log *utils.Logger) (*Runner, error) {
	cmap, err := canbus.LoadMap(cfg.MapPath)
	if err != nil {
		return nil, fmt.Errorf("load bus map: %w", err)
	}

	scen, err := LoadScenario(cfg.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	planFD, err := cmap.FrameByName(cfg.PlanFrameName)
	if err != nil {
		return nil, fmt.Errorf("plan frame: %w", err)
	}
	if planFD.CycleMS <= 0 {
		return nil, fmt.Errorf("frame %s has invalid cycle_ms %d", planFD.Name, planFD.CycleMS)
	}

	writer, err := canbus.NewWriter(ctx, cfg.Interface)
	if err != nil {
		return nil, err
	}
	reader, err := canbus.NewReader(ctx, cfg.Interface)
	if err != nil {
		writer.Close()
		return nil, err
	}

	store := longitudinal.NewStore(cfg.ParamsDir)
	cache, err := longitudinal.NewParameterCache(store, log)
	if err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("policy: %w", err)
	}
	toggles, err := store.Watch(ctx, log)
	if err != nil {
		log.Warn("params watch unavailable, falling back to periodic refresh only: %v", err)
		toggles = make(chan struct{})
	}

	planner, err := longitudinal.New(longitudinal.PlannerParams{
		SteerRatio:      15.0,
		Wheelbase:       2.7,
		OwnsLongControl: cfg.OwnsLongControl,
	}, longitudinal.ProfileStandard, longitudinal.NewFollowerSolver(), log)
	if err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("planner: %w", err)
	}

	return &Runner{
		cfg:     cfg,
		log:     log,
		cmap:    cmap,
		scen:    scen,
		writer:  writer,
		reader:  reader,
		planFD:  planFD,
		cache:   cache,
		toggles: toggles,
		planner: planner,
		state:   longitudinal.NewState(0, 0),
	}, nil
}

func (r *Runner) Close() {
	if r.reader != nil {
		_ = r.reader.Close()
	}
	if r.writer != nil {
		_ = r.writer.Close()
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Starting planner: frame=%s id=0x%X dlc=%d cycle_ms=%d iface=%s scenario=%s duration=%.2fs",
		r.planFD.Name, r.planFD.ID, r.planFD.DLC, r.planFD.CycleMS, r.cfg.Interface,
		r.scen.Meta.Name, r.scen.Timing.DurationS)

	start := time.Now()
	ticker := time.NewTicker(time.Duration(r.planFD.CycleMS) * time.Millisecond)
	defer ticker.Stop()

	endAfter := time.Duration(r.scen.Timing.DurationS * float64(time.Second))
	var published uint64

	var bus busState
	rxChan := make(chan rxUpdate, 100)
	go r.receiveLoop(ctx, rxChan)

	for {
		select {
		case <-ctx.Done():
			r.log.Warn("Context canceled; stopping")
			r.log.Info("Completed. plans_published=%d", published)
			return ctx.Err()

		case up := <-rxChan:
			applyUpdate(&bus, up)

		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed > endAfter {
				r.log.Info("Completed. plans_published=%d", published)
				return nil
			}

			var togglesChanged bool
			select {
			case <-r.toggles:
				togglesChanged = true
			default:
			}
			cfg, pers := r.cache.Begin(togglesChanged)

			env := EvalEnv(&r.scen, elapsed.Seconds())
			in := r.buildInput(bus, env, now)

			var plan longitudinal.Plan
			r.state, plan = r.planner.Step(r.state, in, cfg, pers)

			if err := r.publish(ctx, plan); err != nil {
				r.log.Critical("Transmit failed at t=%.3f: %v", elapsed.Seconds(), err)
				return err
			}
			published++

			if published%20 == 0 {
				r.log.Debug("plan t=%.2f v=%.2f a=%.2f src=%s lead=%v fcw=%v valid=%v",
					elapsed.Seconds(), plan.Speeds[0], plan.Accels[0],
					plan.Source, plan.HasLead, plan.FCW, plan.Valid)
			}
		}
	}
}

// buildInput fuses the latest bus view with the scripted environment
// into one cycle snapshot.
func (r *Runner) buildInput(bus busState, env ModelEnv, now time.Time) longitudinal.CycleInput {
	return longitudinal.CycleInput{
		VEgo:             bus.vEgo,
		AEgo:             bus.aEgo,
		Standstill:       bus.standstill,
		SteeringAngleDeg: bus.steeringAngleDeg,
		GasPressed:       bus.gasPressed,
		BrakePressed:     bus.brakePressed,
		DrivingGear:      bus.drivingGear,

		Lead: bus.lead,

		VCruiseKph:       bus.vCruiseKph,
		Enabled:          bus.enabled,
		LongControlOff:   bus.longControlOff,
		ForceDecel:       bus.forceDecel,
		ExperimentalMode: bus.experimentalMode,

		Model: SynthesizeModel(env, bus.vEgo, now),

		LeadDetected:      bus.lead.Status,
		StopLightDetected: env.StopLight,
		DesiredSpeedLimit: env.SpeedLimitKph * longitudinal.KphToMs,

		CarStateValid:      !bus.carStateAt.IsZero() && now.Sub(bus.carStateAt) < staleAfter,
		ControlsStateValid: !bus.controlsStateAt.IsZero() && now.Sub(bus.controlsStateAt) < staleAfter,
	}
}

// publish encodes the head of the plan into the outbound frame.
func (r *Runner) publish(ctx context.Context, plan longitudinal.Plan) error {
	values := map[string]float64{
		"v_target_mps":   plan.Speeds[0],
		"a_target_mps2":  plan.Accels[0],
		"j_target_mps3":  plan.Jerks[0],
		"has_lead":       boolToFloat(plan.HasLead),
		"fcw":            boolToFloat(plan.FCW),
		"source":         float64(plan.Source),
		"personality":    float64(plan.Personality),
		"green_light":    boolToFloat(plan.GreenLight),
		"slc_overridden": boolToFloat(plan.SLCOverridden),
		"plan_valid":     boolToFloat(plan.Valid),
	}
	frame, err := r.cmap.EncodeFrame(r.planFD.Name, values)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return r.writer.WriteFrame(ctx, frame)
}

// receiveLoop decodes inbound frames off the bus and forwards the ones
// the planner consumes.
func (r *Runner) receiveLoop(ctx context.Context, out chan<- rxUpdate) {
	r.log.Debug("RX loop started")
	defer r.log.Debug("RX loop stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		frame, err := r.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("RX error: %v", err)
			continue
		}

		fd, values, err := r.cmap.DecodeFrame(frame)
		if err != nil {
			// Unknown ids are normal on a shared bus.
			r.log.Trace("RX skip id=0x%X: %v", uint32(frame.ID), err)
			continue
		}

		switch fd.Name {
		case "CAR_STATE", "CONTROLS_STATE", "RADAR_STATE":
			select {
			case out <- rxUpdate{frame: fd.Name, values: values, at: time.Now()}:
			default:
				// Channel full; the next frame supersedes this one anyway.
			}
		}
	}
}

func applyUpdate(bus *busState, up rxUpdate) {
	switch up.frame {
	case "CAR_STATE":
		bus.vEgo = up.values["v_ego_mps"]
		bus.aEgo = up.values["a_ego_mps2"]
		bus.standstill = up.values["standstill"] != 0
		bus.steeringAngleDeg = up.values["steering_angle_deg"]
		bus.gasPressed = up.values["gas_pressed"] != 0
		bus.brakePressed = up.values["brake_pressed"] != 0
		bus.drivingGear = up.values["driving_gear"] != 0
		bus.carStateAt = up.at
	case "CONTROLS_STATE":
		bus.vCruiseKph = up.values["v_cruise_kph"]
		bus.enabled = up.values["enabled"] != 0
		bus.longControlOff = up.values["long_control_off"] != 0
		bus.forceDecel = up.values["force_decel"] != 0
		bus.experimentalMode = up.values["experimental_mode"] != 0
		bus.controlsStateAt = up.at
	case "RADAR_STATE":
		bus.lead = longitudinal.Lead{
			DRel:   up.values["lead_d_rel_m"],
			VLead:  up.values["lead_v_mps"],
			Status: up.values["lead_status"] != 0,
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
