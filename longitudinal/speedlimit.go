package longitudinal

import "math"

// speedLimitCap arbitrates the externally supplied speed limit against
// the driver's cruise setpoint. The override latch tracks intentional
// driver excess: set while gas is pressed, cleared by brake or by ego
// speed dropping to the limit. Returns the (possibly replaced) cruise
// speed and the new latch state.
func speedLimitCap(vCruise float64, in CycleInput, overridden bool) (float64, bool) {
	limit := in.DesiredSpeedLimit

	overridden = overridden || in.GasPressed
	overridden = overridden && !in.BrakePressed
	overridden = overridden && in.VEgo > limit

	if limit > 0 && limit < vCruise && !overridden {
		vCruise = math.Round(limit)
	}
	return vCruise, overridden
}
