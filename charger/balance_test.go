package charger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBalanceShuntActivation(t *testing.T) {
	// Li-ion defaults: Vmax 4.20.
	cells := [NumCells]float64{4.25, 4.15, 4.20, 3.90}
	shunt, alarm := EvaluateBalance(cells, 4, 4.20, 3.60, true)

	assert.True(t, shunt[0], "4.25V is above Vmax")
	assert.False(t, shunt[1], "4.15V is below Vmax")
	assert.False(t, shunt[2], "exactly Vmax does not balance")
	assert.False(t, shunt[3])
	assert.False(t, alarm)
}

func TestBalanceUndervoltageAlarmDebounce(t *testing.T) {
	cells := [NumCells]float64{3.00, 3.70, 3.70, 3.70}

	// Before the first full minute the alarm never fires.
	_, alarm := EvaluateBalance(cells, 4, 4.20, 3.60, false)
	assert.False(t, alarm)

	_, alarm = EvaluateBalance(cells, 4, 4.20, 3.60, true)
	assert.True(t, alarm)

	// Not latched: a recovered cell clears it on the next evaluation.
	cells[0] = 3.65
	_, alarm = EvaluateBalance(cells, 4, 4.20, 3.60, true)
	assert.False(t, alarm)
}

func TestBalanceInactiveSlotsHeldClosed(t *testing.T) {
	cells := [NumCells]float64{3.30, 0.02, 0.015, 0.01}
	shunt, alarm := EvaluateBalance(cells, 1, 3.60, 3.00, true)

	assert.False(t, shunt[0])
	assert.True(t, shunt[1])
	assert.True(t, shunt[2])
	assert.True(t, shunt[3])
	// Stray readings on unpopulated taps never raise the alarm.
	assert.False(t, alarm)
}

func TestResettlerSequence(t *testing.T) {
	r := &Resettler{}
	now := time.Now()
	assert.False(t, r.Active())

	r.Start(now)
	assert.True(t, r.Active())

	opens, closes := 0, 0
	for i := 0; r.Active() && i < 1000; i++ {
		now = now.Add(resettlePulseGap)
		open, drive := r.Advance(now)
		if !drive {
			continue
		}
		if open {
			opens++
		} else {
			closes++
		}
	}
	assert.Equal(t, resettlePulsePairs, opens)
	assert.Equal(t, resettlePulsePairs, closes)
	assert.False(t, r.Active())

	// Finished sequence stays quiet.
	_, drive := r.Advance(now.Add(time.Second))
	assert.False(t, drive)
}

func TestResettlerGateBlocksEarlyAdvance(t *testing.T) {
	r := &Resettler{}
	now := time.Now()
	r.Start(now)

	_, drive := r.Advance(now)
	assert.True(t, drive, "first pulse fires immediately")

	// Before the settle gap elapses nothing moves.
	_, drive = r.Advance(now.Add(resettlePulseGap / 2))
	assert.False(t, drive)

	_, drive = r.Advance(now.Add(resettlePulseGap))
	assert.True(t, drive)
}

func TestResettlerRestart(t *testing.T) {
	r := &Resettler{}
	now := time.Now()
	r.Start(now)
	for i := 0; i < 5; i++ {
		now = now.Add(resettlePulseGap)
		r.Advance(now)
	}
	// A configuration change mid-sequence restarts the full run.
	r.Start(now)
	pulses := 0
	for r.Active() && pulses < 1000 {
		now = now.Add(resettlePulseGap)
		if _, drive := r.Advance(now); drive {
			pulses++
		}
	}
	assert.Equal(t, 2*resettlePulsePairs, pulses)
}
