package charger

import (
	"github.com/philippedc/bms-charger-controller/calibration"
)

// Trend classifies the drift of a cell voltage against the snapshot
// taken one minute earlier.
type Trend int

const (
	TrendSteady Trend = iota
	TrendRising
	TrendFalling
)

func (t Trend) String() string {
	switch t {
	case TrendRising:
		return "rising"
	case TrendFalling:
		return "falling"
	default:
		return "steady"
	}
}

// Voltage movement smaller than this between minute snapshots counts as
// steady.
const trendDeadbandVolts = 0.01

func trendOf(now, before float64) Trend {
	switch {
	case now-before > trendDeadbandVolts:
		return TrendRising
	case before-now > trendDeadbandVolts:
		return TrendFalling
	default:
		return TrendSteady
	}
}

// CellReading is the resolved state of one physical cell slot.
type CellReading struct {
	NodeVolts       float64 // cumulative voltage at this stack tap
	Volts           float64 // this cell alone, from telescoping subtraction
	PrevMinuteVolts float64 // snapshot for trend reporting
}

// ControllerState is all mutable state of the control loop, owned by a
// single goroutine. Nothing here is persisted except the calibration
// record, and that only on an explicit save command.
type ControllerState struct {
	Cells     [NumCells]CellReading
	Cal       *calibration.Record
	Config    StackConfig
	Regulator Regulator
	Shunts    [NumCells]bool

	Overcurrent   bool
	Alarm         bool
	MinuteElapsed bool // set once, after the first full minute of monitoring
}

// SupplyVolts is the full stack voltage, measured at the top tap.
func (s *ControllerState) SupplyVolts() float64 {
	return s.Cells[NumCells-1].NodeVolts
}

// CellStatus is one cell's slice of a status snapshot.
type CellStatus struct {
	Volts   float64 `json:"voltage"`
	Trend   string  `json:"trend"`
	ShuntOn bool    `json:"shunt_on"`
}

// Status is the once-per-second snapshot handed to reporters. Reporters
// only consume it, nothing feeds back into control decisions.
type Status struct {
	Chemistry   string       `json:"chemistry"`
	CellCount   int          `json:"cell_count"`
	SupplyVolts float64      `json:"supply_voltage"`
	Cells       []CellStatus `json:"cells"`
	Duty        int          `json:"duty"`
	Overcurrent bool         `json:"overcurrent"`
	Alarm       bool         `json:"alarm"`
	Resettling  bool         `json:"resettling"`
}

func (s *ControllerState) snapshot(resettling bool) Status {
	status := Status{
		Chemistry:   s.Config.Chemistry.String(),
		CellCount:   s.Config.CellCount,
		SupplyVolts: s.SupplyVolts(),
		Duty:        s.Regulator.Duty,
		Overcurrent: s.Overcurrent,
		Alarm:       s.Alarm,
		Resettling:  resettling,
	}
	for i := 0; i < s.Config.CellCount; i++ {
		c := s.Cells[i]
		status.Cells = append(status.Cells, CellStatus{
			Volts:   c.Volts,
			Trend:   trendOf(c.Volts, c.PrevMinuteVolts).String(),
			ShuntOn: s.Shunts[i],
		})
	}
	return status
}
