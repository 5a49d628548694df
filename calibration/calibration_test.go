package calibration

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestGainRoundTrip(t *testing.T) {
	for g := GainMin; g <= GainMax+1e-9; g += 0.001 {
		r := Default()
		r.Gain[2] = g
		decoded, err := Decode(r.Encode())
		require.NoError(t, err)
		assert.InDelta(t, g, decoded.Gain[2], 0.0005, "gain %.3f", g)
	}
}

func TestThresholdRoundTrip(t *testing.T) {
	for v := ThresholdFloorVolts; v <= 4.60+1e-9; v += 0.01 {
		r := Default()
		r.LiIonVmax = v
		decoded, err := Decode(r.Encode())
		require.NoError(t, err)
		assert.InDelta(t, v, decoded.LiIonVmax, 0.005, "threshold %.2f", v)
	}
}

func TestEncodeLayout(t *testing.T) {
	r := &Record{
		Gain:        [4]float64{1.000, 0.987, 1.023, 1.200},
		LiIonVmax:   4.20,
		LiFePO4Vmax: 3.60,
		LiIonVmin:   3.60,
		LiFePO4Vmin: 3.00,
	}
	data := r.Encode()
	require.Len(t, data, RecordLength)
	assert.Equal(t, []byte{0x03, 0xE8}, data[0:2]) // 1000
	assert.Equal(t, []byte{0x03, 0xDB}, data[2:4]) // 987
	assert.Equal(t, []byte{0x04, 0xB0}, data[6:8]) // 1200
	assert.Equal(t, byte(120), data[8])            // 4.20V
	assert.Equal(t, byte(60), data[9])             // 3.60V
	assert.Equal(t, byte(60), data[10])
	assert.Equal(t, byte(0), data[11]) // 3.00V is the encoding floor
}

func TestDecodeBlankDevice(t *testing.T) {
	// A blank EEPROM reads all 0xFF. That must decode without error to
	// implausible values that fail validation, never be silently fixed.
	blank := make([]byte, RecordLength)
	for i := range blank {
		blank[i] = 0xFF
	}
	r, err := Decode(blank)
	require.NoError(t, err)
	assert.InDelta(t, 65.535, r.Gain[0], 1e-9)
	assert.InDelta(t, 5.55, r.LiIonVmax, 1e-9)
	assert.Error(t, r.Validate())
}

func TestDecodeLengthCheck(t *testing.T) {
	_, err := Decode(make([]byte, RecordLength-1))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	r := Default()
	assert.NoError(t, r.Validate())

	r = Default()
	r.Gain[0] = 1.300
	assert.Error(t, r.Validate())

	r = Default()
	r.LiIonVmin = r.LiIonVmax
	assert.Error(t, r.Validate())

	r = Default()
	r.LiFePO4Vmax = 5.60
	assert.Error(t, r.Validate())
}

// writeCycleBus models a 24C part: after a page write it NACKs every
// transaction until its internal write cycle is waited out.
type writeCycleBus struct {
	mem   [256]byte
	busy  int
	nacks int
}

func (b *writeCycleBus) String() string                    { return "writecycle" }
func (b *writeCycleBus) SetSpeed(f physic.Frequency) error { return nil }

func (b *writeCycleBus) Tx(addr uint16, w, r []byte) error {
	if b.busy > 0 {
		b.busy--
		b.nacks++
		return errors.New("i2c: no ack")
	}
	offset := int(w[0])
	if len(r) == 0 {
		copy(b.mem[offset:], w[1:])
		b.busy = 1
		return nil
	}
	copy(r, b.mem[offset:])
	return nil
}

func TestEEPROMStoreWaitsOutWriteCycle(t *testing.T) {
	bus := &writeCycleBus{}
	store := NewEEPROMStore(bus, DefaultEEPROMAddress)

	saved := Default()
	saved.Gain[1] = 1.050
	require.NoError(t, store.Save(saved))
	assert.Greater(t, bus.nacks, 0, "read-back must ride out a NACK")

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.InDelta(t, 1.050, loaded.Gain[1], 0.001)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := &FileStore{Path: filepath.Join(t.TempDir(), "calibration.bin")}
	saved := Default()
	saved.Gain[3] = 1.042
	saved.LiFePO4Vmin = 3.10
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	for i := range saved.Gain {
		assert.True(t, math.Abs(saved.Gain[i]-loaded.Gain[i]) <= 0.001)
	}
	assert.InDelta(t, saved.LiFePO4Vmin, loaded.LiFePO4Vmin, 0.01)
}
