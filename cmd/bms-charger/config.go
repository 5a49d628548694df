package main

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	DefaultConfigDir = "/etc/bms-charger"
	configFileName   = "charger"
)

// Config is everything board-specific: bus names, pin assignments and
// where calibration lives. The control logic itself is not configurable.
type Config struct {
	I2CBus          string `mapstructure:"i2c-bus"`
	FrontendAddress uint16 `mapstructure:"frontend-address"`

	// CalibrationFile overrides the EEPROM chip when set; useful on
	// boards without one and on the bench.
	EEPROMAddress   uint16 `mapstructure:"eeprom-address"`
	CalibrationFile string `mapstructure:"calibration-file"`

	ConsolePort string `mapstructure:"console-port"`
	ConsoleBaud int    `mapstructure:"console-baud"`

	ShuntPins       []string `mapstructure:"shunt-pins"`
	SelectorUpPin   string   `mapstructure:"selector-up-pin"`
	SelectorDownPin string   `mapstructure:"selector-down-pin"`
	ChemistryPin    string   `mapstructure:"chemistry-pin"`
	BuzzerPin       string   `mapstructure:"buzzer-pin"`
}

// ParseConfig reads charger.yaml from the config directory, applying
// defaults for anything not set. A missing file is fine, defaults match
// the reference board.
func ParseConfig(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("i2c-bus", "")
	v.SetDefault("frontend-address", 0x34)
	v.SetDefault("eeprom-address", 0x50)
	v.SetDefault("calibration-file", "")
	v.SetDefault("console-port", "/dev/serial0")
	v.SetDefault("console-baud", 115200)
	v.SetDefault("shunt-pins", []string{"GPIO17", "GPIO27", "GPIO22", "GPIO23"})
	v.SetDefault("selector-up-pin", "GPIO5")
	v.SetDefault("selector-down-pin", "GPIO6")
	v.SetDefault("chemistry-pin", "GPIO13")
	v.SetDefault("buzzer-pin", "GPIO26")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config from %s: %v", dir, err)
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}
	if len(conf.ShuntPins) != 4 {
		return nil, fmt.Errorf("need 4 shunt pins, got %d", len(conf.ShuntPins))
	}
	return conf, nil
}
