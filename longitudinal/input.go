package longitudinal

import "time"

// ModelData is the road-model horizon for one cycle. All slices are
// expected to hold ModelN samples on the TIdxs grid; any other length is
// treated as an absent model (see parseModel).
type ModelData struct {
	Position         []float64 // m
	Velocity         []float64 // m/s
	Acceleration     []float64 // m/s^2
	OrientationRateZ []float64 // rad/s
	Timestamp        time.Time
}

// Lead is the tracked lead vehicle state from the radar pipeline.
type Lead struct {
	DRel   float64 // relative distance, m
	VLead  float64 // absolute lead speed, m/s
	Status bool    // track confirmed
}

// CycleInput is the immutable per-cycle snapshot fused by Step. It is
// assembled by the runner from the transport feeds and never mutated by
// the core.
type CycleInput struct {
	// Ego state.
	VEgo             float64
	AEgo             float64
	Standstill       bool
	SteeringAngleDeg float64
	GasPressed       bool
	BrakePressed     bool
	DrivingGear      bool

	Lead Lead

	// Driver/system state.
	VCruiseKph       float64
	Enabled          bool
	LongControlOff   bool
	ForceDecel       bool
	ExperimentalMode bool

	Model ModelData

	// Externally computed heuristics (conditional-experimental layer).
	LeadDetected      bool
	StopLightDetected bool

	// Externally maintained desired speed limit, m/s. Zero means none.
	DesiredSpeedLimit float64

	// Conditional-experimental decision made by the external layer.
	ConditionalExperimentalActive bool

	// Freshness of the required input channels this cycle.
	CarStateValid      bool
	ControlsStateValid bool
}
