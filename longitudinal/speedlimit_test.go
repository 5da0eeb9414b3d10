package longitudinal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeedLimitCapNoLimitPosted(t *testing.T) {
	v, over := speedLimitCap(25, CycleInput{DesiredSpeedLimit: 0, VEgo: 20}, false)
	assert.Equal(t, 25.0, v)
	assert.False(t, over)
}

func TestSpeedLimitCapRoundsLimit(t *testing.T) {
	v, over := speedLimitCap(25, CycleInput{DesiredSpeedLimit: 13.89, VEgo: 13}, false)
	assert.Equal(t, 14.0, v)
	assert.False(t, over)
}

func TestSpeedLimitCapAboveCruiseIgnored(t *testing.T) {
	v, _ := speedLimitCap(20, CycleInput{DesiredSpeedLimit: 30, VEgo: 19}, false)
	assert.Equal(t, 20.0, v)
}

func TestSpeedLimitOverrideLatch(t *testing.T) {
	limit := 14.0

	// Gas above the limit sets the latch and suspends the cap.
	v, over := speedLimitCap(25, CycleInput{DesiredSpeedLimit: limit, VEgo: 18, GasPressed: true}, false)
	assert.Equal(t, 25.0, v)
	assert.True(t, over)

	// Gas released, still above the limit: the latch persists.
	v, over = speedLimitCap(25, CycleInput{DesiredSpeedLimit: limit, VEgo: 18}, over)
	assert.Equal(t, 25.0, v)
	assert.True(t, over)

	// Brake clears it immediately.
	v, over = speedLimitCap(25, CycleInput{DesiredSpeedLimit: limit, VEgo: 18, BrakePressed: true}, over)
	assert.Equal(t, 14.0, v)
	assert.False(t, over)
}

func TestSpeedLimitOverrideClearsAtLimit(t *testing.T) {
	limit := 14.0
	_, over := speedLimitCap(25, CycleInput{DesiredSpeedLimit: limit, VEgo: 18, GasPressed: true}, false)
	assert.True(t, over)

	// Slowing to the limit clears the latch even with no brake input.
	v, over := speedLimitCap(25, CycleInput{DesiredSpeedLimit: limit, VEgo: 14}, over)
	assert.Equal(t, 14.0, v)
	assert.False(t, over)
}

func TestSpeedLimitGasBelowLimitDoesNotLatch(t *testing.T) {
	_, over := speedLimitCap(25, CycleInput{DesiredSpeedLimit: 14, VEgo: 10, GasPressed: true}, false)
	assert.False(t, over)
}
