package charger

// StackConfig is the active pack shape derived from the 3-line selector.
type StackConfig struct {
	CellCount int
	Chemistry Chemistry
}

// DecodeSelector maps the 3 selector lines to a pack configuration.
// The U/D pair is wired as a rotary code rather than plain binary:
//
//	U D -> cells
//	1 1    4
//	1 0    2
//	0 1    3
//	0 0    1
//
// The C line picks LiFePO4 when high.
func DecodeSelector(u, d, c bool) StackConfig {
	cfg := StackConfig{Chemistry: LiIon}
	if c {
		cfg.Chemistry = LiFePO4
	}
	switch {
	case u && d:
		cfg.CellCount = 4
	case u:
		cfg.CellCount = 2
	case d:
		cfg.CellCount = 3
	default:
		cfg.CellCount = 1
	}
	return cfg
}

// Selector tracks the last seen selector lines so configuration changes
// can be detected as edges rather than levels.
type Selector struct {
	last   uint8
	seeded bool
}

func selectorBits(u, d, c bool) uint8 {
	var b uint8
	if u {
		b |= 1
	}
	if d {
		b |= 2
	}
	if c {
		b |= 4
	}
	return b
}

// Update decodes the selector lines and reports whether they changed
// since the previous call. The first call seeds the edge detector and
// never reports a change, start-up runs its own settle sequence anyway.
func (s *Selector) Update(u, d, c bool) (StackConfig, bool) {
	bits := selectorBits(u, d, c)
	changed := s.seeded && bits != s.last
	s.last = bits
	s.seeded = true
	return DecodeSelector(u, d, c), changed
}
