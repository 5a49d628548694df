package charger

import "github.com/philippedc/bms-charger-controller/calibration"

// Chemistry selects which pair of voltage thresholds applies to the pack.
type Chemistry int

const (
	LiIon Chemistry = iota
	LiFePO4
)

func (c Chemistry) String() string {
	switch c {
	case LiIon:
		return "li-ion"
	case LiFePO4:
		return "lifepo4"
	default:
		return "unknown"
	}
}

// Thresholds returns the active (Vmax, Vmin) pair from the calibration
// record for this chemistry.
func (c Chemistry) Thresholds(r *calibration.Record) (vmax, vmin float64) {
	if c == LiFePO4 {
		return r.LiFePO4Vmax, r.LiFePO4Vmin
	}
	return r.LiIonVmax, r.LiIonVmin
}
