package main

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

func pinByName(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("failed to init %s pin", name)
	}
	return pin, nil
}

// gpioShunts drives the four balancing shunt MOSFETs. A high output
// closes the shunt.
type gpioShunts struct {
	pins [4]gpio.PinIO
}

func newGPIOShunts(names []string) (*gpioShunts, error) {
	s := &gpioShunts{}
	for i, name := range names {
		pin, err := pinByName(name)
		if err != nil {
			return nil, err
		}
		if err := pin.Out(gpio.Low); err != nil {
			return nil, err
		}
		s.pins[i] = pin
	}
	return s, nil
}

func (s *gpioShunts) SetShunt(cell int, on bool) error {
	return s.pins[cell].Out(gpio.Level(on))
}

// gpioSelector reads the 3-line configuration selector. The lines are
// pulled up on the board, a closed switch reads low, so levels are
// inverted here.
type gpioSelector struct {
	up, down, chem gpio.PinIO
}

func newGPIOSelector(upName, downName, chemName string) (*gpioSelector, error) {
	s := &gpioSelector{}
	var err error
	for _, p := range []struct {
		pin  *gpio.PinIO
		name string
	}{
		{&s.up, upName},
		{&s.down, downName},
		{&s.chem, chemName},
	} {
		if *p.pin, err = pinByName(p.name); err != nil {
			return nil, err
		}
		if err := (*p.pin).In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *gpioSelector) Read() (u, d, c bool, err error) {
	return s.up.Read() == gpio.Low, s.down.Read() == gpio.Low, s.chem.Read() == gpio.Low, nil
}

// gpioBeeper pulses the alarm buzzer without blocking the control loop.
type gpioBeeper struct {
	pin gpio.PinIO
}

const beepDuration = 100 * time.Millisecond

func newGPIOBeeper(name string) (*gpioBeeper, error) {
	pin, err := pinByName(name)
	if err != nil {
		return nil, err
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, err
	}
	return &gpioBeeper{pin: pin}, nil
}

func (b *gpioBeeper) Pulse() {
	if err := b.pin.Out(gpio.High); err != nil {
		log.Debugf("buzzer: %v", err)
		return
	}
	time.AfterFunc(beepDuration, func() {
		if err := b.pin.Out(gpio.Low); err != nil {
			log.Debugf("buzzer: %v", err)
		}
	})
}
