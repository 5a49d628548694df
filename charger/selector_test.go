package charger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorTruthTable(t *testing.T) {
	assert.Equal(t, StackConfig{CellCount: 4, Chemistry: LiIon}, DecodeSelector(true, true, false))
	assert.Equal(t, StackConfig{CellCount: 2, Chemistry: LiIon}, DecodeSelector(true, false, false))
	assert.Equal(t, StackConfig{CellCount: 3, Chemistry: LiIon}, DecodeSelector(false, true, false))
	assert.Equal(t, StackConfig{CellCount: 1, Chemistry: LiIon}, DecodeSelector(false, false, false))

	assert.Equal(t, StackConfig{CellCount: 4, Chemistry: LiFePO4}, DecodeSelector(true, true, true))
	assert.Equal(t, StackConfig{CellCount: 1, Chemistry: LiFePO4}, DecodeSelector(false, false, true))
}

func TestSelectorChangeDetection(t *testing.T) {
	s := &Selector{}

	// First read seeds the edge detector.
	cfg, changed := s.Update(true, true, false)
	assert.False(t, changed)
	assert.Equal(t, 4, cfg.CellCount)

	// Held steady: no change, however often it is read.
	for i := 0; i < 5; i++ {
		_, changed = s.Update(true, true, false)
		assert.False(t, changed)
	}

	// Toggling one line reports a change exactly once.
	cfg, changed = s.Update(true, false, false)
	assert.True(t, changed)
	assert.Equal(t, 2, cfg.CellCount)
	_, changed = s.Update(true, false, false)
	assert.False(t, changed)

	// The chemistry line is a change like any other.
	cfg, changed = s.Update(true, false, true)
	assert.True(t, changed)
	assert.Equal(t, LiFePO4, cfg.Chemistry)
}
