package calibration

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// Store is the logical get/update contract for the persisted record.
// The controller never cares where the bytes live.
type Store interface {
	Load() (*Record, error)
	Save(*Record) error
}

const (
	// DefaultEEPROMAddress is the usual bus address of a 24C series chip.
	DefaultEEPROMAddress = 0x50

	// The chip accepts at most one page per write transaction.
	eepromPageLength = 16

	// After a page write the chip ignores the bus for its internal
	// write cycle, up to about 5ms on 24C parts, and NACKs anything
	// sent in the meantime.
	eepromWriteCycle    = 5 * time.Millisecond
	eepromWriteAttempts = 5
)

// EEPROMStore persists the record at offset 0 of an I2C EEPROM.
type EEPROMStore struct {
	dev *i2c.Dev
}

func NewEEPROMStore(bus i2c.Bus, address uint16) *EEPROMStore {
	return &EEPROMStore{dev: &i2c.Dev{Bus: bus, Addr: address}}
}

func (s *EEPROMStore) Load() (*Record, error) {
	data, err := s.readBack()
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Save writes the record page by page and verifies it by reading the
// bytes back. There is no checksum on the record itself, the read-back
// is the only write verification.
func (s *EEPROMStore) Save(r *Record) error {
	data := r.Encode()
	for i := 0; i < len(data); i += eepromPageLength {
		writeLen := min(eepromPageLength, len(data)-i)
		page := append([]byte{byte(i)}, data[i:i+writeLen]...)
		if err := s.tx(page, nil); err != nil {
			return fmt.Errorf("eeprom write at %d: %v", i, err)
		}
	}
	readData, err := s.readBack()
	if err != nil {
		return err
	}
	if !bytes.Equal(readData, data) {
		return errors.New("eeprom read-back mismatch")
	}
	return nil
}

func (s *EEPROMStore) readBack() ([]byte, error) {
	data := []byte{}
	for i := 0; i < RecordLength; i += eepromPageLength {
		readLen := min(eepromPageLength, RecordLength-i)
		page := make([]byte, readLen)
		if err := s.tx([]byte{byte(i)}, page); err != nil {
			return nil, fmt.Errorf("eeprom read at %d: %v", i, err)
		}
		data = append(data, page...)
	}
	return data, nil
}

// tx runs one transaction, retrying while the chip sits in a write
// cycle and NACKs the bus.
func (s *EEPROMStore) tx(w, r []byte) error {
	var err error
	for attempt := 0; attempt < eepromWriteAttempts; attempt++ {
		if err = s.dev.Tx(w, r); err == nil {
			return nil
		}
		time.Sleep(eepromWriteCycle)
	}
	return err
}

// FileStore keeps the same 12 byte layout in a plain file, for boards
// without an EEPROM chip and for bench testing.
type FileStore struct {
	Path string
}

func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (s *FileStore) Save(r *Record) error {
	return os.WriteFile(s.Path, r.Encode(), 0644)
}
