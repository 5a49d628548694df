package charger

import (
	"github.com/philippedc/bms-charger-controller/console"
)

// apply executes one queued command against controller state. Range
// checks already happened in the parser; what remains here is the
// cross-field invariant (Vmin stays below Vmax) and storage I/O.
func (c *Controller) apply(cmd console.Command) {
	switch cmd := cmd.(type) {
	case console.SetGain:
		c.state.Cal.Gain[cmd.Cell-1] = cmd.Value
		c.respond("cell %d calibration %.3f", cmd.Cell, cmd.Value)

	case console.SetThreshold:
		c.applyThreshold(cmd)

	case console.Save:
		if err := c.Store.Save(c.state.Cal); err != nil {
			c.respond("error: save failed: %v", err)
			return
		}
		c.echoRecord("saved")

	case console.Reload:
		rec, err := c.Store.Load()
		if err != nil {
			c.respond("error: reload failed: %v", err)
			return
		}
		c.state.Cal = rec
		c.echoRecord("reloaded")
	}
}

func (c *Controller) applyThreshold(cmd console.SetThreshold) {
	chem := LiIon
	vmax, vmin := &c.state.Cal.LiIonVmax, &c.state.Cal.LiIonVmin
	if cmd.LiFePO4 {
		chem = LiFePO4
		vmax, vmin = &c.state.Cal.LiFePO4Vmax, &c.state.Cal.LiFePO4Vmin
	}

	newMax, newMin := *vmax, *vmin
	bound := "Vmin"
	if cmd.Upper {
		newMax = cmd.Volts
		bound = "Vmax"
	} else {
		newMin = cmd.Volts
	}
	if newMin >= newMax {
		c.respond("error: Vmin %.2f must stay below Vmax %.2f", newMin, newMax)
		return
	}
	*vmax, *vmin = newMax, newMin
	c.respond("%s %s %.2fV", chem, bound, cmd.Volts)
}

// echoRecord prints the record now in effect, the one piece of feedback
// the console gets from persistence.
func (c *Controller) echoRecord(what string) {
	r := c.state.Cal
	c.respond("%s: cal %.3f %.3f %.3f %.3f li-ion %.2f-%.2f lifepo4 %.2f-%.2f",
		what, r.Gain[0], r.Gain[1], r.Gain[2], r.Gain[3],
		r.LiIonVmin, r.LiIonVmax, r.LiFePO4Vmin, r.LiFePO4Vmax)
}
