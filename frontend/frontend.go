// Package frontend talks to the analog front-end MCU over I2C. The MCU
// owns the raw hardware: the 10-bit ADC multiplexed across the four
// stack taps, the current-sense comparator and the buck converter PWM.
// Readings come back with a CRC8 so a flaky bus never feeds garbage
// counts into the accumulators.
package frontend

import (
	"fmt"
	"time"

	"github.com/sigurn/crc8"
	"periph.io/x/conn/v3/i2c"
)

type Register uint8

const (
	typeReg         Register = 0x00
	majorVersionReg Register = 0x01
)

const (
	adcChannel0Reg Register = iota + 0x10
	adcChannel1Reg
	adcChannel2Reg
	adcChannel3Reg
)

const (
	flagsReg Register = iota + 0x20
	dutyReg
)

// flagsReg bits.
const overcurrentFlag = 1 << 0

const (
	DefaultAddress = 0x34

	// Value the type register must return; anything else means some
	// other device answered on our address.
	i2cTypeVal = 0xB5

	// Version of front-end firmware this software works with.
	majorVersion = 2

	// Parameters for connection retries.
	maxConnectAttempts   = 5
	connectRetryInterval = time.Second
)

var crcTable = crc8.MakeTable(crc8.Params{
	Poly:   0x31, // Polynomial 1 + x^4 + x^5 + x^8
	Init:   0xFF,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
})

// Frontend is a connected front-end MCU.
type Frontend struct {
	dev *i2c.Dev
}

// Connect probes the front-end and verifies its type and firmware
// version, retrying while the MCU boots.
func Connect(bus i2c.Bus, address uint16) (*Frontend, error) {
	f := &Frontend{dev: &i2c.Dev{Bus: bus, Addr: address}}
	attempt := 0
	for {
		err := f.checkIdentity()
		if err == nil {
			return f, nil
		}
		attempt++
		if attempt >= maxConnectAttempts {
			return nil, err
		}
		time.Sleep(connectRetryInterval)
	}
}

func (f *Frontend) checkIdentity() error {
	t, err := f.readReg(typeReg)
	if err != nil {
		return err
	}
	if t != i2cTypeVal {
		return fmt.Errorf("device replied with type 0x%X, expecting 0x%X", t, i2cTypeVal)
	}
	v, err := f.readReg(majorVersionReg)
	if err != nil {
		return err
	}
	if v != majorVersion {
		return fmt.Errorf("front-end firmware version %d, this software needs %d", v, majorVersion)
	}
	return nil
}

// ReadChannel returns one raw ADC count (0-1023) for a stack tap.
func (f *Frontend) ReadChannel(ch int) (uint16, error) {
	if ch < 0 || ch > 3 {
		return 0, fmt.Errorf("adc channel %d out of range", ch)
	}
	buf := make([]byte, 3)
	if err := f.dev.Tx([]byte{byte(adcChannel0Reg) + byte(ch)}, buf); err != nil {
		return 0, err
	}
	if crc := crc8.Checksum(buf[:2], crcTable); crc != buf[2] {
		return 0, fmt.Errorf("adc channel %d CRC failed, got 0x%X expected 0x%X", ch, buf[2], crc)
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// Overcurrent reads the current-sense comparator output.
func (f *Frontend) Overcurrent() (bool, error) {
	buf := make([]byte, 2)
	if err := f.dev.Tx([]byte{byte(flagsReg)}, buf); err != nil {
		return false, err
	}
	if crc := crc8.Checksum(buf[:1], crcTable); crc != buf[1] {
		return false, fmt.Errorf("flags CRC failed, got 0x%X expected 0x%X", buf[1], crc)
	}
	return buf[0]&overcurrentFlag != 0, nil
}

// SetDuty writes the buck converter duty register.
func (f *Frontend) SetDuty(duty uint8) error {
	_, err := f.dev.Write([]byte{byte(dutyReg), duty})
	return err
}

func (f *Frontend) readReg(reg Register) (byte, error) {
	buf := make([]byte, 1)
	if err := f.dev.Tx([]byte{byte(reg)}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}
