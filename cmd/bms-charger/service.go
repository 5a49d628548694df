package main

import (
	"encoding/json"
	"errors"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/philippedc/bms-charger-controller/console"
)

const (
	dbusName = "org.philippedc.Charger"
	dbusPath = "/org/philippedc/Charger"
)

type service struct {
	status   *statusCache
	commands chan<- console.Command
}

func startService(status *statusCache, commands chan<- console.Command) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		status:   status,
		commands: commands,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// GetStatus returns the latest status snapshot as JSON.
func (s service) GetStatus() (string, *dbus.Error) {
	status, ok := s.status.Get()
	if !ok {
		return "", makeDbusError(".GetStatus", errors.New("no reading yet"))
	}
	data, err := json.Marshal(status)
	if err != nil {
		return "", makeDbusError(".GetStatus", err)
	}
	return string(data), nil
}

// SaveCalibration queues the same persist command the console's S
// produces; the control loop applies it between ticks.
func (s service) SaveCalibration() *dbus.Error {
	return s.enqueue(console.Save{})
}

// ReloadCalibration queues the console's E command.
func (s service) ReloadCalibration() *dbus.Error {
	return s.enqueue(console.Reload{})
}

func (s service) enqueue(cmd console.Command) *dbus.Error {
	select {
	case s.commands <- cmd:
		return nil
	default:
		return makeDbusError(".Enqueue", errors.New("command queue full"))
	}
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + name,
		Body: []interface{}{err.Error()},
	}
}
