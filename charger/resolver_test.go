package charger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveNodesFormula(t *testing.T) {
	// With exact accumulator inputs the resolved voltage must equal
	// sum/count/1023 * 5.0 * gain * (i+1) exactly.
	sums := [NumCells]float64{51150, 40000, 30000, 81840}
	gain := [NumCells]float64{1.0, 1.1, 0.9, 1.0}
	nodes := ResolveNodes(sums, 100, gain)

	assert.InDelta(t, 511.5/1023.0*5.0*1.0*1, nodes[0], 1e-12)
	assert.InDelta(t, 400.0/1023.0*5.0*1.1*2, nodes[1], 1e-12)
	assert.InDelta(t, 300.0/1023.0*5.0*0.9*3, nodes[2], 1e-12)
	assert.InDelta(t, 818.4/1023.0*5.0*1.0*4, nodes[3], 1e-12)
}

func TestResolveNodesZeroCount(t *testing.T) {
	nodes := ResolveNodes([NumCells]float64{1, 2, 3, 4}, 0, [NumCells]float64{1, 1, 1, 1})
	assert.Equal(t, [NumCells]float64{}, nodes)
}

func TestTelescopingRoundTrip(t *testing.T) {
	// Per-cell voltages must sum back to the top tap voltage.
	nodes := [NumCells]float64{3.71, 7.45, 11.02, 14.80}
	cells := CellVoltages(nodes)

	assert.InDelta(t, 3.71, cells[0], 1e-9)
	assert.InDelta(t, 3.74, cells[1], 1e-9)
	assert.InDelta(t, 3.57, cells[2], 1e-9)
	assert.InDelta(t, 3.78, cells[3], 1e-9)

	sum := 0.0
	for _, v := range cells {
		sum += v
	}
	assert.InDelta(t, nodes[NumCells-1], sum, 1e-9)
}

func TestSamplerWindow(t *testing.T) {
	s := &Sampler{}
	for i := 0; i < SampleWindow-1; i++ {
		s.Accumulate([NumCells]uint16{10, 20, 30, 40})
		assert.False(t, s.WindowFull())
	}
	s.Accumulate([NumCells]uint16{10, 20, 30, 40})
	assert.True(t, s.WindowFull())

	sums, count := s.Take()
	assert.Equal(t, SampleWindow, count)
	assert.Equal(t, [NumCells]float64{1000, 2000, 3000, 4000}, sums)

	// Take resets the window.
	assert.False(t, s.WindowFull())
	sums, count = s.Take()
	assert.Equal(t, 0, count)
	assert.Equal(t, [NumCells]float64{}, sums)
}
