package charger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/philippedc/bms-charger-controller/calibration"
	"github.com/philippedc/bms-charger-controller/console"
)

// AnalogFrontend is what the core needs from the measurement/drive MCU:
// raw tap readings, the current-sense comparator, and the buck duty
// register.
type AnalogFrontend interface {
	ReadChannel(ch int) (uint16, error)
	Overcurrent() (bool, error)
	SetDuty(duty uint8) error
}

// ShuntDriver switches the per-cell balancing shunts. on means the
// shunt is closed and bleeding current around its cell.
type ShuntDriver interface {
	SetShunt(cell int, on bool) error
}

// SelectorPins reads the 3-line configuration selector.
type SelectorPins interface {
	Read() (u, d, c bool, err error)
}

// Beeper sounds the undervoltage alarm. Pulse must not block.
type Beeper interface {
	Pulse()
}

// StatusReporter consumes the once-per-second status snapshot. Display
// and console renderers live behind this; they feed nothing back.
type StatusReporter interface {
	Report(Status)
}

const (
	// Loop pacing. The duty regulator moves one step per tick, so this
	// also sets the charge ramp rate: a full 0-255 sweep takes about
	// half a second.
	tickInterval = 2 * time.Millisecond

	secondGate = time.Second
	minuteGate = time.Minute
)

// Controller owns all mutable state and runs the measurement-and-control
// loop. Everything is single-threaded: console and D-Bus commands arrive
// on a queue drained between ticks.
type Controller struct {
	Frontend  AnalogFrontend
	Shunts    ShuntDriver
	Selector  SelectorPins
	Beeper    Beeper
	Reporters []StatusReporter
	Store     calibration.Store
	Commands  <-chan console.Command

	// Respond carries command echo/diagnostics back to the console.
	// Left nil, responses go to the log.
	Respond func(format string, args ...interface{})

	Log *logrus.Logger

	state    ControllerState
	sampler  Sampler
	edges    Selector
	resettle Resettler

	lastSecond time.Time
	lastMinute time.Time
}

// NewController wires a controller with the given collaborators and the
// calibration record currently in storage.
func NewController(log *logrus.Logger) *Controller {
	return &Controller{
		Log: log,
	}
}

// Init loads calibration, reads the initial selector state and starts
// the first re-settle sequence. Implausible calibration (a blank storage
// device) is reported but still used, recovery is the manual bootstrap.
func (c *Controller) Init(now time.Time) error {
	rec, err := c.Store.Load()
	if err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		c.Log.Warnf("calibration record is implausible (%v); run with --init-calibration to write defaults", err)
	}
	c.state.Cal = rec

	u, d, chem, err := c.Selector.Read()
	if err != nil {
		return err
	}
	c.state.Config, _ = c.edges.Update(u, d, chem)
	c.Log.Infof("configuration: %d cells, %s", c.state.Config.CellCount, c.state.Config.Chemistry)

	c.closeInactiveShunts()
	c.resettle.Start(now)
	c.lastSecond = now
	c.lastMinute = now
	return nil
}

// Run executes the control loop until the context is cancelled, then
// forces the charger to a safe state.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Init(time.Now()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		default:
		}
		c.Tick(time.Now())
		time.Sleep(tickInterval)
	}
}

// Tick is one pass of the control loop. Split out from Run so tests can
// drive it with a synthetic clock.
func (c *Controller) Tick(now time.Time) {
	c.drainCommands()
	c.sample()
	c.regulate()
	c.advanceResettle(now)

	if now.Sub(c.lastSecond) >= secondGate {
		c.lastSecond = now
		c.everySecond(now)
	}
	if now.Sub(c.lastMinute) >= minuteGate {
		c.lastMinute = now
		c.everyMinute(now)
	}
}

// drainCommands applies queued console/D-Bus commands before control
// logic runs, so a tick never sees a half-applied command.
func (c *Controller) drainCommands() {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			c.apply(cmd)
		default:
			return
		}
	}
}

func (c *Controller) sample() {
	var raw [NumCells]uint16
	for ch := 0; ch < NumCells; ch++ {
		v, err := c.Frontend.ReadChannel(ch)
		if err != nil {
			c.Log.Debugf("adc channel %d: %v", ch, err)
			return
		}
		raw[ch] = v
	}
	c.sampler.Accumulate(raw)

	if c.sampler.WindowFull() {
		sums, count := c.sampler.Take()
		nodes := ResolveNodes(sums, count, c.state.Cal.Gain)
		cells := CellVoltages(nodes)
		for i := range c.state.Cells {
			c.state.Cells[i].NodeVolts = nodes[i]
			c.state.Cells[i].Volts = cells[i]
		}
	}
}

func (c *Controller) regulate() {
	oc, err := c.Frontend.Overcurrent()
	if err != nil {
		// Treat a dead comparator read as overcurrent: duty backs off
		// until the front end answers again.
		c.Log.Debugf("overcurrent read: %v", err)
		oc = true
	}
	c.state.Overcurrent = oc
	duty := c.state.Regulator.Step(oc, c.state.Cells[0].NodeVolts)
	if err := c.Frontend.SetDuty(uint8(duty)); err != nil {
		c.Log.Debugf("set duty: %v", err)
	}
}

func (c *Controller) advanceResettle(now time.Time) {
	open, drive := c.resettle.Advance(now)
	if !drive {
		return
	}
	for i := 0; i < c.state.Config.CellCount; i++ {
		c.setShunt(i, !open)
	}
}

func (c *Controller) everySecond(now time.Time) {
	u, d, chem, err := c.Selector.Read()
	if err != nil {
		c.Log.Debugf("selector read: %v", err)
	} else {
		cfg, changed := c.edges.Update(u, d, chem)
		if changed {
			c.Log.Infof("configuration changed: %d cells, %s", cfg.CellCount, cfg.Chemistry)
			c.state.Config = cfg
			c.closeInactiveShunts()
			c.resettle.Start(now)
		}
	}

	if !c.resettle.Active() {
		vmax, vmin := c.state.Config.Chemistry.Thresholds(c.state.Cal)
		cells := c.cellVolts()
		shunts, alarm := EvaluateBalance(cells, c.state.Config.CellCount, vmax, vmin, c.state.MinuteElapsed)
		for i, on := range shunts {
			c.setShunt(i, on)
		}
		c.state.Alarm = alarm
		if alarm {
			c.Beeper.Pulse()
		}
	}

	status := c.state.snapshot(c.resettle.Active())
	for _, r := range c.Reporters {
		r.Report(status)
	}
}

func (c *Controller) everyMinute(now time.Time) {
	for i := range c.state.Cells {
		c.state.Cells[i].PrevMinuteVolts = c.state.Cells[i].Volts
	}
	// The first minute boundary ends the warm-up: the alarm arms and
	// the shunts get one more settle run before balancing carries on.
	if !c.state.MinuteElapsed {
		c.state.MinuteElapsed = true
		c.resettle.Start(now)
	}
}

func (c *Controller) cellVolts() [NumCells]float64 {
	var v [NumCells]float64
	for i := range c.state.Cells {
		v[i] = c.state.Cells[i].Volts
	}
	return v
}

// closeInactiveShunts parks the shunts on unpopulated slots closed, once
// per configuration change.
func (c *Controller) closeInactiveShunts() {
	for i := c.state.Config.CellCount; i < NumCells; i++ {
		c.setShunt(i, true)
	}
}

func (c *Controller) setShunt(cell int, on bool) {
	if c.state.Shunts[cell] == on {
		return
	}
	if err := c.Shunts.SetShunt(cell, on); err != nil {
		c.Log.Errorf("shunt %d: %v", cell+1, err)
		return
	}
	c.state.Shunts[cell] = on
}

// shutdown forces the charger to a safe state on the way out: duty to
// zero and every shunt open.
func (c *Controller) shutdown() {
	c.Log.Info("stopping: duty to 0, shunts open")
	c.state.Regulator.Duty = DutyMin
	if err := c.Frontend.SetDuty(DutyMin); err != nil {
		c.Log.Errorf("set duty: %v", err)
	}
	for i := 0; i < NumCells; i++ {
		c.setShunt(i, false)
	}
}

func (c *Controller) respond(format string, args ...interface{}) {
	if c.Respond != nil {
		c.Respond(format, args...)
		return
	}
	c.Log.Infof(format, args...)
}
