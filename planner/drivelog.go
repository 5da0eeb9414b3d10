package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"longplan-core/longitudinal"
)

// DriveScenario scripts the vision-model quantities the planner consumes
// when no model feed is attached: road curvature ahead, stop-light
// detections, and the posted speed limit. Vehicle motion still comes
// from the bus; the scenario only stands in for the camera stack.
type DriveScenario struct {
	Meta     ScenarioMeta      `json:"meta"`
	Timing   ScenarioTiming    `json:"timing"`
	Defaults ModelEnv          `json:"defaults"`
	Segments []ScenarioSegment `json:"segments"`
}

type ScenarioMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
}

type ScenarioTiming struct {
	DurationS float64 `json:"duration_s"`
}

// ModelEnv is the synthesized environment at one instant.
type ModelEnv struct {
	Curvature     float64 `json:"curvature"`       // 1/m, signed
	StopLight     bool    `json:"stop_light"`      // red/yellow light ahead
	SpeedLimitKph float64 `json:"speed_limit_kph"` // 0 = none posted
}

type ScenarioSegment struct {
	T0      float64 `json:"t0"`
	T1      float64 `json:"t1"` // negative = until end
	ModelEnv
	Comment string `json:"comment,omitempty"`
}

// LoadScenario loads and validates a drive scenario.
func LoadScenario(path string) (DriveScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DriveScenario{}, fmt.Errorf("read file: %w", err)
	}

	var scen DriveScenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return DriveScenario{}, fmt.Errorf("unmarshal: %w", err)
	}
	if scen.Timing.DurationS <= 0 {
		return DriveScenario{}, fmt.Errorf("invalid duration_s: %f", scen.Timing.DurationS)
	}
	for i, seg := range scen.Segments {
		if seg.SpeedLimitKph < 0 {
			return DriveScenario{}, fmt.Errorf("segment %d: negative speed_limit_kph %f", i, seg.SpeedLimitKph)
		}
	}
	return scen, nil
}

// EvalEnv returns the active environment at time t; segments override
// the defaults while active.
func EvalEnv(scen *DriveScenario, t float64) ModelEnv {
	env := scen.Defaults
	for _, seg := range scen.Segments {
		t1 := seg.T1
		if t1 < 0 {
			t1 = scen.Timing.DurationS
		}
		if t >= seg.T0 && t < t1 {
			env = seg.ModelEnv
			break
		}
	}
	return env
}

// SynthesizeModel builds a constant-speed model rollout from the ego
// speed and the scripted environment. The yaw-rate channel carries the
// scripted curvature scaled by speed, which is what a real model would
// report on a steady arc.
func SynthesizeModel(env ModelEnv, vEgo float64, now time.Time) longitudinal.ModelData {
	n := longitudinal.ModelN
	m := longitudinal.ModelData{
		Position:         make([]float64, n),
		Velocity:         make([]float64, n),
		Acceleration:     make([]float64, n),
		OrientationRateZ: make([]float64, n),
		Timestamp:        now,
	}
	for i := 0; i < n; i++ {
		t := longitudinal.TIdxs[i]
		m.Position[i] = vEgo * t
		m.Velocity[i] = vEgo
		m.OrientationRateZ[i] = env.Curvature * vEgo
	}
	return m
}
