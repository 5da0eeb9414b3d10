package longitudinal

// FirstOrderFilter is a discrete first-order low-pass with time constant
// rc sampled at period dt. X is exported so resets can snap the state.
type FirstOrderFilter struct {
	X float64
	k float64
}

func NewFirstOrderFilter(x0, rc, dt float64) FirstOrderFilter {
	return FirstOrderFilter{X: x0, k: dt / (rc + dt)}
}

// Update advances the filter toward x and returns the new state.
func (f *FirstOrderFilter) Update(x float64) float64 {
	f.X = (1-f.k)*f.X + f.k*x
	return f.X
}
