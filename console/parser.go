package console

import (
	"fmt"
	"strconv"

	"github.com/philippedc/bms-charger-controller/calibration"
)

// Accepted threshold window for console commands. The floor comes from
// the storage encoding, values below 3.00V have no representation in
// the persisted record.
const (
	ThresholdMinVolts = calibration.ThresholdFloorVolts
	ThresholdMaxVolts = 4.60
)

// Command is one parsed console command. The zero-state commands Save
// and Reload carry no fields.
type Command interface{ isCommand() }

// SetGain sets one cell's calibration multiplier.
type SetGain struct {
	Cell  int // 1-based, as typed on the console
	Value float64
}

// SetThreshold sets a chemistry voltage threshold. Upper selects Vmax,
// otherwise Vmin. LiFePO4 selects the chemistry ('T' on the console,
// matching the selector's chemistry line being high; 'F' is Li-ion).
type SetThreshold struct {
	LiFePO4 bool
	Upper   bool
	Volts   float64
}

// Save persists the in-memory calibration record to storage.
type Save struct{}

// Reload discards in-memory changes and reloads the record from storage.
type Reload struct{}

func (SetGain) isCommand()      {}
func (SetThreshold) isCommand() {}
func (Save) isCommand()         {}
func (Reload) isCommand()       {}

// ParseCommand parses one fixed-width positional command line:
//
//	B<cell 1-4><4-digit gain x1000>   e.g. B21050 -> cell 2 gain 1.050
//	L<T|F><3-digit Vmin x100>         e.g. LF360  -> li-ion Vmin 3.60V
//	H<T|F><3-digit Vmax x100>         e.g. HT360  -> lifepo4 Vmax 3.60V
//	S                                 save to storage
//	E                                 reload from storage
//
// Out-of-range values are rejected here so a bad command can never
// reach controller state.
func ParseCommand(line string) (Command, error) {
	if line == "" {
		return nil, fmt.Errorf("empty command")
	}
	switch line[0] {
	case 'B':
		if len(line) != 6 {
			return nil, fmt.Errorf("B command wants cell and 4 digits, got %q", line)
		}
		cell := int(line[1] - '0')
		if cell < 1 || cell > 4 {
			return nil, fmt.Errorf("cell %q out of range 1-4", line[1])
		}
		n, err := strconv.Atoi(line[2:6])
		if err != nil {
			return nil, fmt.Errorf("bad calibration value %q", line[2:6])
		}
		value := float64(n) / 1000
		if value < calibration.GainMin || value > calibration.GainMax {
			return nil, fmt.Errorf("calibration %.3f outside %.3f-%.3f",
				value, calibration.GainMin, calibration.GainMax)
		}
		return SetGain{Cell: cell, Value: value}, nil

	case 'L', 'H':
		if len(line) != 5 {
			return nil, fmt.Errorf("%c command wants chemistry and 3 digits, got %q", line[0], line)
		}
		var liFePO4 bool
		switch line[1] {
		case 'T':
			liFePO4 = true
		case 'F':
			liFePO4 = false
		default:
			return nil, fmt.Errorf("chemistry %q should be T or F", line[1])
		}
		n, err := strconv.Atoi(line[2:5])
		if err != nil {
			return nil, fmt.Errorf("bad threshold value %q", line[2:5])
		}
		volts := float64(n) / 100
		if volts < ThresholdMinVolts || volts > ThresholdMaxVolts {
			return nil, fmt.Errorf("threshold %.2fV outside %.2f-%.2f",
				volts, ThresholdMinVolts, ThresholdMaxVolts)
		}
		return SetThreshold{LiFePO4: liFePO4, Upper: line[0] == 'H', Volts: volts}, nil

	case 'S':
		if line != "S" {
			return nil, fmt.Errorf("unrecognised command %q", line)
		}
		return Save{}, nil

	case 'E':
		if line != "E" {
			return nil, fmt.Errorf("unrecognised command %q", line)
		}
		return Reload{}, nil
	}
	return nil, fmt.Errorf("unrecognised command %q", line)
}
