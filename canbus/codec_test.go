package canbus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMap = `frame_id,frame_name,cycle_ms,dlc,signal_name,start_bit,bit_length,endianness,signed,factor,offset,min,max,default,unit
0x100,CAR_STATE,10,6,v_ego_mps,0,16,little,false,0.01,0,0,120,0,m/s
0x100,CAR_STATE,10,6,a_ego_mps2,16,12,little,true,0.01,0,-20,20,0,m/s^2
0x100,CAR_STATE,10,6,standstill,42,1,little,false,1,0,0,1,1,bool
0x200,LONG_PLAN,50,6,a_target_mps2,12,10,little,true,0.01,0,-5,5,0,m/s^2
0x200,LONG_PLAN,50,6,plan_valid,40,1,little,false,1,0,0,1,0,bool
`

func loadTestMap(t *testing.T) *Map {
	t.Helper()
	path := filepath.Join(t.TempDir(), "can_map.csv")
	require.NoError(t, os.WriteFile(path, []byte(testMap), 0644))
	m, err := LoadMap(path)
	require.NoError(t, err)
	return m
}

func TestLoadMapIndexesBothWays(t *testing.T) {
	m := loadTestMap(t)

	fd, err := m.FrameByName("CAR_STATE")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x100), fd.ID)
	assert.Equal(t, 6, fd.DLC)
	assert.Equal(t, 10, fd.CycleMS)
	assert.Len(t, fd.Signals, 3)

	byID, err := m.FrameByID(0x200)
	require.NoError(t, err)
	assert.Equal(t, "LONG_PLAN", byID.Name)

	assert.Equal(t, []string{"CAR_STATE", "LONG_PLAN"}, m.FrameNames())
}

func TestLoadMapUnknownLookupsFail(t *testing.T) {
	m := loadTestMap(t)
	_, err := m.FrameByName("NOPE")
	assert.Error(t, err)
	_, err = m.FrameByID(0x7FF)
	assert.Error(t, err)
}

func TestLoadMapRejectsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("frame_id,frame_name\n0x1,A\n"), 0644))
	_, err := LoadMap(path)
	assert.Error(t, err)
}

func TestLoadMapRejectsBigEndian(t *testing.T) {
	bad := `frame_id,frame_name,cycle_ms,dlc,signal_name,start_bit,bit_length,endianness,signed,factor,offset,min,max,default,unit
0x100,X,10,2,sig,0,8,big,false,1,0,0,255,0,
`
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte(bad), 0644))
	_, err := LoadMap(path)
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := loadTestMap(t)

	values := map[string]float64{
		"v_ego_mps":  23.45,
		"a_ego_mps2": -1.87,
		"standstill": 0,
	}
	data, id, err := m.Encode("CAR_STATE", values)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x100), id)
	assert.Len(t, data, 6)

	got, err := m.Decode(id, data)
	require.NoError(t, err)
	assert.InDelta(t, 23.45, got["v_ego_mps"], 0.005)
	assert.InDelta(t, -1.87, got["a_ego_mps2"], 0.005)
	assert.Zero(t, got["standstill"])
}

func TestEncodeAppliesDefaultsAndClamps(t *testing.T) {
	m := loadTestMap(t)

	// standstill omitted: map default is 1. v_ego beyond max clamps.
	data, id, err := m.Encode("CAR_STATE", map[string]float64{"v_ego_mps": 500})
	require.NoError(t, err)

	got, err := m.Decode(id, data)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got["standstill"])
	assert.InDelta(t, 120.0, got["v_ego_mps"], 0.005)
}

func TestEncodeSignedNegativeRoundTrip(t *testing.T) {
	m := loadTestMap(t)

	data, id, err := m.Encode("LONG_PLAN", map[string]float64{
		"a_target_mps2": -3.5,
		"plan_valid":    1,
	})
	require.NoError(t, err)

	got, err := m.Decode(id, data)
	require.NoError(t, err)
	assert.InDelta(t, -3.5, got["a_target_mps2"], 0.005)
	assert.Equal(t, 1.0, got["plan_valid"])
}

func TestEncodeFrameCarriesIDAndLength(t *testing.T) {
	m := loadTestMap(t)

	f, err := m.EncodeFrame("LONG_PLAN", map[string]float64{"a_target_mps2": 1.0})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x200), f.ID)
	assert.Equal(t, uint8(6), f.Length)

	fd, vals, err := m.DecodeFrame(f)
	require.NoError(t, err)
	assert.Equal(t, "LONG_PLAN", fd.Name)
	assert.InDelta(t, 1.0, vals["a_target_mps2"], 0.005)
}

func TestDecodeShortPayloadFails(t *testing.T) {
	m := loadTestMap(t)
	_, err := m.Decode(0x100, []byte{1, 2})
	assert.Error(t, err)
}

func TestEncodeUnknownFrameFails(t *testing.T) {
	m := loadTestMap(t)
	_, _, err := m.Encode("NOPE", nil)
	assert.Error(t, err)
}
