package longitudinal

// updateGreenLight recomputes the green-light pulse and its supporting
// latches. The flag is edge-triggered: it asserts for exactly the cycle
// in which "stopped for light" falls while "previously driving" holds and
// no lead is present, and must be recomputed every cycle, never read
// back as sticky state.
func (st *State) updateGreenLight(in CycleInput) {
	st.PreviouslyDriving = st.PreviouslyDriving || !in.Standstill
	st.PreviouslyDriving = st.PreviouslyDriving && in.DrivingGear

	stoppedForLight := in.StopLightDetected && in.Standstill && st.PreviouslyDriving
	st.GreenLight = !stoppedForLight && st.StoppedForLightPrev && !in.LeadDetected
	st.StoppedForLightPrev = stoppedForLight
}
