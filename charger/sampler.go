package charger

// NumCells is the number of physical cell slots on the board.
const NumCells = 4

// SampleWindow is how many raw readings are accumulated per channel
// before voltages are resolved.
const SampleWindow = 100

// Sampler accumulates raw ADC counts across a sampling window. Counts
// are summed as-is, no range validation happens at this layer.
type Sampler struct {
	sums  [NumCells]float64
	count int
}

// Accumulate adds one raw reading per stack tap to the running sums.
func (s *Sampler) Accumulate(raw [NumCells]uint16) {
	for i, v := range raw {
		s.sums[i] += float64(v)
	}
	s.count++
}

// WindowFull reports whether enough samples have been accumulated to
// resolve voltages.
func (s *Sampler) WindowFull() bool {
	return s.count >= SampleWindow
}

// Take returns the accumulated sums and sample count, resetting the
// sampler for the next window.
func (s *Sampler) Take() (sums [NumCells]float64, count int) {
	sums, count = s.sums, s.count
	s.sums = [NumCells]float64{}
	s.count = 0
	return sums, count
}
