package charger

const (
	// 10-bit ADC full scale and its reference voltage.
	adcFullScale      = 1023.0
	adcReferenceVolts = 5.0
)

// ResolveNodes converts accumulated raw counts into absolute voltages at
// each stack tap. The (i+1) factor undoes the resistive dividers, which
// are scaled proportionally to stack position so every tap fits the ADC
// range. These are empirical board constants, do not retune them without
// the divider schematic.
func ResolveNodes(sums [NumCells]float64, count int, gain [NumCells]float64) [NumCells]float64 {
	var nodes [NumCells]float64
	if count == 0 {
		return nodes
	}
	for i := range nodes {
		nodes[i] = sums[i] / float64(count) / adcFullScale * adcReferenceVolts * gain[i] * float64(i+1)
	}
	return nodes
}

// CellVoltages recovers each cell's terminal voltage from the cumulative
// tap readings. Every tap measures the sum of all cells at and below it,
// so differencing adjacent taps telescopes back to individual cells.
func CellVoltages(nodes [NumCells]float64) [NumCells]float64 {
	var cells [NumCells]float64
	cells[0] = nodes[0]
	for i := 1; i < NumCells; i++ {
		cells[i] = nodes[i] - nodes[i-1]
	}
	return cells
}
