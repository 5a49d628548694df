package charger

import "time"

// EvaluateBalance decides, once per second, which balancing shunts to
// close and whether the undervoltage alarm should sound.
//
// A closed shunt bleeds charge current around a cell that has reached
// its chemistry Vmax, letting the rest of the stack catch up. Slots past
// the configured cell count are held closed permanently so stray
// readings on unloaded taps cannot drive the balancing logic.
//
// The undervoltage alarm is only evaluated after the first full minute
// of monitoring, voltages are not trustworthy until the accumulators
// have settled. It is not latched: it clears by itself once the cell
// recovers.
func EvaluateBalance(cells [NumCells]float64, cellCount int, vmax, vmin float64, minuteElapsed bool) (shunt [NumCells]bool, alarm bool) {
	for i := 0; i < NumCells; i++ {
		if i >= cellCount {
			shunt[i] = true
			continue
		}
		if cells[i] > vmax {
			shunt[i] = true
		} else if minuteElapsed && cells[i] < vmin {
			alarm = true
		}
	}
	return shunt, alarm
}

const (
	// A re-settle run pulses the active shunts open then closed this
	// many times to discharge residual charge-pump state in the driver.
	resettlePulsePairs = 6

	// Hardware settling time between shunt transitions.
	resettlePulseGap = 20 * time.Millisecond
)

// Resettler is the bounded open/close pulse sequence run at start-up
// and whenever the selector configuration changes. It is advanced from
// the control loop with an elapsed-time gate so the loop never blocks.
type Resettler struct {
	pairsLeft int
	open      bool
	next      time.Time
}

// Start begins (or restarts) the pulse sequence.
func (r *Resettler) Start(now time.Time) {
	r.pairsLeft = resettlePulsePairs
	r.open = false
	r.next = now
}

// Active reports whether the sequence is still running.
func (r *Resettler) Active() bool {
	return r.pairsLeft > 0
}

// Advance moves the sequence on if its settle gate has elapsed. When it
// returns drive=true, the caller must set every active-cell shunt to the
// returned open state. Once the final close pulse is done the sequence
// deactivates and normal balancing control resumes.
func (r *Resettler) Advance(now time.Time) (open bool, drive bool) {
	if !r.Active() || now.Before(r.next) {
		return false, false
	}
	r.open = !r.open
	if !r.open {
		r.pairsLeft--
	}
	r.next = now.Add(resettlePulseGap)
	return r.open, true
}
