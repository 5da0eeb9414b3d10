package longitudinal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *AccelLimiter {
	t.Helper()
	l, err := NewAccelLimiter(15.0, 2.7)
	require.NoError(t, err)
	return l
}

func TestNewAccelLimiterRejectsBadGeometry(t *testing.T) {
	_, err := NewAccelLimiter(0, 2.7)
	assert.Error(t, err)
	_, err = NewAccelLimiter(15.0, -1)
	assert.Error(t, err)
}

func TestCruiseEnvelopeOrderedForAllProfiles(t *testing.T) {
	l := newTestLimiter(t)
	for _, p := range []AccelProfile{ProfileDefault, ProfileEco, ProfileStandard, ProfileSport} {
		for v := 0.0; v <= 60.0; v += 0.5 {
			env := l.CruiseEnvelope(p, v)
			assert.LessOrEqual(t, env.Min, env.Max, "profile %s at v=%.1f", p, v)
			assert.Less(t, env.Min, 0.0, "profile %s at v=%.1f", p, v)
			assert.Greater(t, env.Max, 0.0, "profile %s at v=%.1f", p, v)
		}
	}
}

func TestCruiseEnvelopeStockValues(t *testing.T) {
	l := newTestLimiter(t)

	env := l.CruiseEnvelope(ProfileStandard, 20.0)
	assert.InDelta(t, -1.2, env.Min, 1e-9)
	// Linear between the 10 m/s and 25 m/s breakpoints.
	assert.InDelta(t, 1.2+(10.0/15.0)*(0.8-1.2), env.Max, 1e-9)

	// Default and standard share the stock tune.
	def := l.CruiseEnvelope(ProfileDefault, 20.0)
	assert.Equal(t, env, def)
}

func TestCruiseEnvelopeClampsBeyondBreakpoints(t *testing.T) {
	l := newTestLimiter(t)

	lo := l.CruiseEnvelope(ProfileStandard, -3.0)
	hi := l.CruiseEnvelope(ProfileStandard, 0.0)
	assert.Equal(t, hi, lo)

	far := l.CruiseEnvelope(ProfileStandard, 200.0)
	end := l.CruiseEnvelope(ProfileStandard, 40.0)
	assert.Equal(t, end, far)
}

func TestCruiseEnvelopeUnknownProfileFallsBackToStock(t *testing.T) {
	l := newTestLimiter(t)
	got := l.CruiseEnvelope(AccelProfile(99), 15.0)
	want := l.CruiseEnvelope(ProfileStandard, 15.0)
	assert.Equal(t, want, got)
}

func TestValidateProfile(t *testing.T) {
	for _, p := range []AccelProfile{ProfileDefault, ProfileEco, ProfileStandard, ProfileSport} {
		assert.NoError(t, ValidateProfile(p))
	}
	assert.Error(t, ValidateProfile(AccelProfile(4)))
	assert.Error(t, ValidateProfile(AccelProfile(-1)))
}

func TestLimitInTurnsNeverRaisesMax(t *testing.T) {
	l := newTestLimiter(t)
	for v := 0.0; v <= 50.0; v += 2.5 {
		for steer := -90.0; steer <= 90.0; steer += 7.5 {
			env := l.CruiseEnvelope(ProfileSport, v)
			limited := l.LimitInTurns(env, v, steer)
			assert.LessOrEqual(t, limited.Max, env.Max, "v=%.1f steer=%.1f", v, steer)
			assert.LessOrEqual(t, limited.Min, limited.Max, "v=%.1f steer=%.1f", v, steer)
		}
	}
}

func TestLimitInTurnsStraightRoadUnchanged(t *testing.T) {
	l := newTestLimiter(t)
	env := l.CruiseEnvelope(ProfileStandard, 20.0)
	limited := l.LimitInTurns(env, 20.0, 0.0)
	assert.Equal(t, env, limited)
}

func TestLimitInTurnsHardTurnExhaustsBudget(t *testing.T) {
	l := newTestLimiter(t)
	env := l.CruiseEnvelope(ProfileStandard, 20.0)
	// At 20 m/s and 45 degrees the lateral estimate far exceeds the
	// 1.7 m/s^2 total budget.
	limited := l.LimitInTurns(env, 20.0, 45.0)
	assert.InDelta(t, 0.0, limited.Max, 1e-9)
	assert.LessOrEqual(t, limited.Min, limited.Max)
}

func TestLimitInTurnsSignSymmetric(t *testing.T) {
	l := newTestLimiter(t)
	env := l.CruiseEnvelope(ProfileStandard, 25.0)
	left := l.LimitInTurns(env, 25.0, 12.0)
	right := l.LimitInTurns(env, 25.0, -12.0)
	assert.Equal(t, left, right)
}

func TestWideEnvelope(t *testing.T) {
	env := WideEnvelope()
	assert.Equal(t, AccelMin, env.Min)
	assert.Equal(t, AccelMax, env.Max)
}
