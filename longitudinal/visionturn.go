package longitudinal

import "math"

// VisionTurnTarget is the curvature-based speed cap for the upcoming
// horizon. Target is always finite and >= MinTargetV; Offset is the
// display-only amount by which the cap undercuts the cruise setpoint.
type VisionTurnTarget struct {
	Target float64
	Offset float64
}

// visionTurnSpeed derives a cruise speed cap that keeps predicted lateral
// acceleration under the personality-scaled target. The peak predicted
// lateral acceleration is the elementwise |orientation rate| x velocity
// maximum over the model horizon; curvature follows from the current
// speed. A straight horizon (no measurable curvature) yields a cap at the
// cruise setpoint, never an infinity; non-finite intermediates clamp to
// the floor.
func visionTurnSpeed(model ModelData, vEgo, vCruise, sensitivity, aggressiveness float64) VisionTurnTarget {
	maxPredLatAcc := 0.0
	n := min(len(model.OrientationRateZ), len(model.Velocity))
	for i := 0; i < n; i++ {
		latAcc := math.Abs(model.OrientationRateZ[i]) * sensitivity * model.Velocity[i]
		if latAcc > maxPredLatAcc {
			maxPredLatAcc = latAcc
		}
	}

	maxCurve := maxPredLatAcc / (vEgo * vEgo)
	var target float64
	if maxCurve <= 0 || math.IsNaN(maxCurve) || math.IsInf(maxCurve, 0) {
		target = math.Max(vCruise, MinTargetV)
	} else {
		target = math.Sqrt(TargetLatA * aggressiveness / maxCurve)
		if math.IsNaN(target) || math.IsInf(target, 0) || target < MinTargetV {
			target = MinTargetV
		}
	}

	return VisionTurnTarget{
		Target: target,
		Offset: math.Max(0, vCruise-target),
	}
}
