package longitudinal

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func rampModel(vEgo, accel float64) ModelData {
	m := ModelData{
		Position:         make([]float64, ModelN),
		Velocity:         make([]float64, ModelN),
		Acceleration:     make([]float64, ModelN),
		OrientationRateZ: make([]float64, ModelN),
		Timestamp:        time.Now(),
	}
	for i := 0; i < ModelN; i++ {
		t := TIdxs[i]
		m.Position[i] = vEgo*t + 0.5*accel*t*t
		m.Velocity[i] = vEgo + accel*t
		m.Acceleration[i] = accel
	}
	return m
}

func TestInterpVecExactOnLinearData(t *testing.T) {
	ys := make([]float64, ModelN)
	for i := range ys {
		ys[i] = 2.0 * TIdxs[i]
	}
	got := interpVec(TIdxsSolver, TIdxs, ys)
	want := make([]float64, SolverN)
	for j := range want {
		want[j] = 2.0 * TIdxsSolver[j]
	}
	assert.Empty(t, cmp.Diff(want, got, approx))
}

func TestInterpAtClampsOutsideDomain(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{10, 20, 30}
	assert.InDelta(t, 10.0, interpAt(-5, xs, ys), 1e-12)
	assert.InDelta(t, 30.0, interpAt(99, xs, ys), 1e-12)
	assert.InDelta(t, 15.0, interpAt(0.5, xs, ys), 1e-12)
}

func TestParseModelResamplesAndBiasCorrects(t *testing.T) {
	m := rampModel(20, 0)
	x, v, a := parseModel(m, 1.5)

	assert.Len(t, x, SolverN)
	assert.Len(t, v, SolverN)
	assert.Len(t, a, SolverN)

	for j := range TIdxsSolver {
		tj := TIdxsSolver[j]
		assert.InDelta(t, 20*tj-1.5*tj, x[j], 1e-9)
		assert.InDelta(t, 20-1.5, v[j], 1e-9)
		assert.InDelta(t, 0.0, a[j], 1e-9)
	}
}

func TestParseModelWrongLengthDegradesToZeros(t *testing.T) {
	m := ModelData{
		Position:     make([]float64, 5),
		Velocity:     make([]float64, 5),
		Acceleration: make([]float64, 5),
	}
	x, v, a := parseModel(m, 0)
	for j := 0; j < SolverN; j++ {
		assert.Zero(t, x[j])
		assert.Zero(t, v[j])
		assert.Zero(t, a[j])
	}
}

func TestModelSpeedError(t *testing.T) {
	m := rampModel(22, 0)
	assert.InDelta(t, 2.0, modelSpeedError(m, 20), 1e-12)

	// Clamped on both sides.
	assert.InDelta(t, MaxVelErr, modelSpeedError(rampModel(40, 0), 20), 1e-12)
	assert.InDelta(t, -MaxVelErr, modelSpeedError(rampModel(5, 0), 20), 1e-12)

	// Absent model reports no error.
	assert.Zero(t, modelSpeedError(ModelData{}, 20))
}

func TestResampleSolutionShapesAndValues(t *testing.T) {
	sol := Solution{
		X: make([]float64, SolverN),
		V: make([]float64, SolverN),
		A: make([]float64, SolverN),
		J: make([]float64, SolverN-1),
	}
	for j := 0; j < SolverN; j++ {
		tj := TIdxsSolver[j]
		sol.X[j] = 20 * tj
		sol.V[j] = 20
		sol.A[j] = 0.5
	}
	distances, speeds, accels, jerks := resampleSolution(sol)

	assert.Len(t, distances, ControlN)
	assert.Len(t, speeds, ControlN)
	assert.Len(t, accels, ControlN)
	assert.Len(t, jerks, ControlN)

	for i := 0; i < ControlN; i++ {
		assert.InDelta(t, 20*TIdxs[i], distances[i], 1e-9)
		assert.InDelta(t, 20.0, speeds[i], 1e-9)
		assert.InDelta(t, 0.5, accels[i], 1e-9)
		assert.InDelta(t, 0.0, jerks[i], 1e-9)
	}
}
