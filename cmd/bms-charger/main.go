/*
bms-charger - balancing charger controller for 1-4 cell packs
Copyright (C) 2024, philippedc

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/philippedc/bms-charger-controller/calibration"
	"github.com/philippedc/bms-charger-controller/charger"
	"github.com/philippedc/bms-charger-controller/console"
	"github.com/philippedc/bms-charger-controller/frontend"
)

var version = "<not set>"
var log = logrus.New()

type Args struct {
	ConfigDir       string `arg:"-c,--config" help:"configuration folder"`
	InitCalibration bool   `arg:"--init-calibration" help:"write known-good default calibration to storage and exit"`
	NoConsole       bool   `arg:"--no-console" help:"run without the serial text console"`
	NoDbus          bool   `arg:"--no-dbus" help:"don't start the D-Bus status service"`
	LogLevel        string `arg:"-l,--log-level" default:"info" help:"Set the logging level (debug, info, warn, error)"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	args := Args{
		ConfigDir: DefaultConfigDir,
	}
	arg.MustParse(&args)
	return args
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

// customFormatter defines a new logrus formatter.
type customFormatter struct{}

// Format builds the log message string from the log entry.
func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("[%s] %s\n", strings.ToUpper(entry.Level.String()), entry.Message)), nil
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	log.SetFormatter(new(customFormatter))
	args := procArgs()
	setLogLevel(args.LogLevel)

	log.Infof("running version: %s", version)

	conf, err := ParseConfig(args.ConfigDir)
	if err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(conf.I2CBus)
	if err != nil {
		return err
	}

	var store calibration.Store
	if conf.CalibrationFile != "" {
		store = &calibration.FileStore{Path: conf.CalibrationFile}
	} else {
		store = calibration.NewEEPROMStore(bus, conf.EEPROMAddress)
	}

	if args.InitCalibration {
		if err := store.Save(calibration.Default()); err != nil {
			return fmt.Errorf("failed to write default calibration: %v", err)
		}
		log.Info("default calibration written to storage")
		return nil
	}

	log.Info("connecting to analog front-end")
	fe, err := frontend.Connect(bus, conf.FrontendAddress)
	if err != nil {
		return err
	}

	shunts, err := newGPIOShunts(conf.ShuntPins)
	if err != nil {
		return err
	}
	selector, err := newGPIOSelector(conf.SelectorUpPin, conf.SelectorDownPin, conf.ChemistryPin)
	if err != nil {
		return err
	}
	beeper, err := newGPIOBeeper(conf.BuzzerPin)
	if err != nil {
		return err
	}

	commands := make(chan console.Command, 16)

	controller := charger.NewController(log)
	controller.Frontend = fe
	controller.Shunts = shunts
	controller.Selector = selector
	controller.Beeper = beeper
	controller.Store = store
	controller.Commands = commands

	if !args.NoConsole {
		cons, err := console.Open(conf.ConsolePort, conf.ConsoleBaud, log)
		if err != nil {
			return err
		}
		defer cons.Close()
		controller.Respond = cons.Printf
		go cons.Run()
		go func() {
			for cmd := range cons.Commands() {
				commands <- cmd
			}
		}()
	}

	status := &statusCache{}
	controller.Reporters = []charger.StatusReporter{status, &logReporter{}}

	if !args.NoDbus {
		if err := startService(status, commands); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = controller.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
