package calibration

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// RecordLength is the size of the persisted record: 4 16-bit gain
	// values followed by 4 threshold offset bytes.
	RecordLength = 12

	// Gain values are stored as value*1000 in a big-endian uint16.
	GainNominal = 1.000
	GainMin     = 0.800
	GainMax     = 1.200

	// Threshold bytes store value*100-300, so 3.00V maps to 0x00 and
	// 5.55V to 0xFF. Values outside that window are not representable.
	ThresholdFloorVolts = 3.00
	ThresholdCeilVolts  = 5.55

	thresholdOffset = 300
)

// Record holds the per-cell gain multipliers and the chemistry voltage
// thresholds that survive power cycles.
type Record struct {
	Gain [4]float64 `json:"gain"`

	LiIonVmax   float64 `json:"li-ion-vmax"`
	LiFePO4Vmax float64 `json:"lifepo4-vmax"`
	LiIonVmin   float64 `json:"li-ion-vmin"`
	LiFePO4Vmin float64 `json:"lifepo4-vmin"`
}

// Default returns the known-good record written by the first-use bootstrap.
func Default() *Record {
	return &Record{
		Gain:        [4]float64{GainNominal, GainNominal, GainNominal, GainNominal},
		LiIonVmax:   4.20,
		LiFePO4Vmax: 3.60,
		LiIonVmin:   3.60,
		LiFePO4Vmin: 3.00,
	}
}

// Encode packs the record into its 12 byte storage layout.
// Layout: bytes 0-7 hold the 4 gain values, byte 8 the Li-ion Vmax,
// byte 9 the LiFePO4 Vmax, byte 10 the Li-ion Vmin, byte 11 the
// LiFePO4 Vmin.
func (r *Record) Encode() []byte {
	data := make([]byte, RecordLength)
	for i, g := range r.Gain {
		binary.BigEndian.PutUint16(data[i*2:], uint16(math.Round(g*1000)))
	}
	data[8] = encodeThreshold(r.LiIonVmax)
	data[9] = encodeThreshold(r.LiFePO4Vmax)
	data[10] = encodeThreshold(r.LiIonVmin)
	data[11] = encodeThreshold(r.LiFePO4Vmin)
	return data
}

// Decode unpacks a stored record. No plausibility checks are made here,
// a blank device (all 0xFF) decodes to implausible values that the
// bootstrap procedure is expected to replace. Use Validate to check.
func Decode(data []byte) (*Record, error) {
	if len(data) != RecordLength {
		return nil, fmt.Errorf("expected %d bytes, got %d", RecordLength, len(data))
	}
	r := &Record{}
	for i := range r.Gain {
		r.Gain[i] = float64(binary.BigEndian.Uint16(data[i*2:])) / 1000
	}
	r.LiIonVmax = decodeThreshold(data[8])
	r.LiFePO4Vmax = decodeThreshold(data[9])
	r.LiIonVmin = decodeThreshold(data[10])
	r.LiFePO4Vmin = decodeThreshold(data[11])
	return r, nil
}

func encodeThreshold(volts float64) byte {
	n := int(math.Round(volts*100)) - thresholdOffset
	if n < 0 {
		n = 0
	}
	if n > 0xFF {
		n = 0xFF
	}
	return byte(n)
}

func decodeThreshold(b byte) float64 {
	return float64(int(b)+thresholdOffset) / 100
}

// Validate reports whether every field is inside its accepted range and
// each chemistry keeps Vmin below Vmax. Storage that has never been
// initialised will fail this.
func (r *Record) Validate() error {
	for i, g := range r.Gain {
		if g < GainMin || g > GainMax {
			return fmt.Errorf("cell %d gain %.3f outside %.3f-%.3f", i+1, g, GainMin, GainMax)
		}
	}
	for _, t := range []struct {
		name       string
		vmin, vmax float64
	}{
		{"li-ion", r.LiIonVmin, r.LiIonVmax},
		{"lifepo4", r.LiFePO4Vmin, r.LiFePO4Vmax},
	} {
		if t.vmin < ThresholdFloorVolts || t.vmax > ThresholdCeilVolts {
			return fmt.Errorf("%s thresholds %.2f-%.2f outside %.2f-%.2f",
				t.name, t.vmin, t.vmax, ThresholdFloorVolts, ThresholdCeilVolts)
		}
		if t.vmin >= t.vmax {
			return fmt.Errorf("%s Vmin %.2f not below Vmax %.2f", t.name, t.vmin, t.vmax)
		}
	}
	return nil
}
