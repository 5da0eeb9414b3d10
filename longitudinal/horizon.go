package longitudinal

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

// interpVec resamples (xs, ys) onto xNew with clamped piecewise-linear
// interpolation. Outside [xs[0], xs[n-1]] the nearest endpoint value is
// held, matching the breakpoint-table semantics used everywhere else.
func interpVec(xNew, xs, ys []float64) []float64 {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return make([]float64, len(xNew))
	}
	out := make([]float64, len(xNew))
	for i, x := range xNew {
		out[i] = pl.Predict(x)
	}
	return out
}

// interpAt evaluates a clamped linear interpolation of (xs, ys) at x.
func interpAt(x float64, xs, ys []float64) float64 {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return 0
	}
	return pl.Predict(x)
}

// parseModel resamples the road-model arrays onto the solver grid,
// bias-correcting position and velocity with the measured model speed
// error. Arrays of unexpected length degrade to all-zero trajectories
// rather than failing the cycle.
func parseModel(model ModelData, modelError float64) (x, v, a []float64) {
	if len(model.Position) == ModelN && len(model.Velocity) == ModelN && len(model.Acceleration) == ModelN {
		x = interpVec(TIdxsSolver, TIdxs, model.Position)
		v = interpVec(TIdxsSolver, TIdxs, model.Velocity)
		a = interpVec(TIdxsSolver, TIdxs, model.Acceleration)
		for i := range TIdxsSolver {
			x[i] -= modelError * TIdxsSolver[i]
			v[i] -= modelError
		}
		return x, v, a
	}
	return make([]float64, SolverN), make([]float64, SolverN), make([]float64, SolverN)
}

// modelSpeedError is the difference between the road-model speed at the
// nearest horizon sample and the measured ego speed, clamped so a model
// glitch cannot drag the whole horizon.
func modelSpeedError(model ModelData, vEgo float64) float64 {
	if len(model.Velocity) != ModelN {
		return 0
	}
	err := model.Velocity[0] - vEgo
	return math.Max(-MaxVelErr, math.Min(MaxVelErr, err))
}

// resampleSolution maps the solver's native grid onto the fixed output
// horizon. Distances, speeds, and accelerations are interpolated then
// truncated to ControlN; jerk is interpolated from the solver's
// acceleration-derivative grid, which is one sample shorter.
func resampleSolution(sol Solution) (distances, speeds, accels, jerks []float64) {
	distances = interpVec(TIdxs[:ControlN], TIdxsSolver, sol.X)
	speeds = interpVec(TIdxs[:ControlN], TIdxsSolver, sol.V)
	accels = interpVec(TIdxs[:ControlN], TIdxsSolver, sol.A)
	jerks = interpVec(TIdxs[:ControlN], TIdxsSolver[:SolverN-1], sol.J)
	return distances, speeds, accels, jerks
}
