package charger

const (
	DutyMin = 0
	DutyMax = 255

	// SentinelVolts is not a real cell voltage. The bottom tap can only
	// read this high when the front end is faulted (blown sense fuse or
	// open divider), so it is treated like a stuck overcurrent signal.
	SentinelVolts = 4.9
)

// Regulator ramps the buck converter duty cycle one step per control
// tick. Duty climbs until the current-sense comparator trips, then backs
// off, giving a sawtooth around the current limit. Deliberately has no
// integral or derivative term, the regulation rate is the tick rate.
type Regulator struct {
	Duty int
}

// Step advances the duty by one and returns the new value. Overcurrent,
// or a bottom tap reading past the sentinel, steps it down instead.
func (r *Regulator) Step(overcurrent bool, bottomNodeVolts float64) int {
	if overcurrent || bottomNodeVolts >= SentinelVolts {
		if r.Duty > DutyMin {
			r.Duty--
		}
	} else if r.Duty < DutyMax {
		r.Duty++
	}
	return r.Duty
}
