package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/philippedc/bms-charger-controller/charger"
)

// statusCache keeps the latest snapshot for the D-Bus service. It is
// the only piece of controller output read from another goroutine.
type statusCache struct {
	mu     sync.Mutex
	last   charger.Status
	seeded bool
}

func (c *statusCache) Report(s charger.Status) {
	c.mu.Lock()
	c.last = s
	c.seeded = true
	c.mu.Unlock()
}

func (c *statusCache) Get() (charger.Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.seeded
}

// logReporter is the stand-in for the status display: one line per
// second at debug, one per logRate at info.
type logReporter struct {
	lastInfo time.Time
}

const logRate = 30 * time.Second

func (r *logReporter) Report(s charger.Status) {
	line := formatStatus(s)
	if time.Since(r.lastInfo) > logRate {
		log.Info(line)
		r.lastInfo = time.Now()
	} else {
		log.Debug(line)
	}
}

func formatStatus(s charger.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d cells %.2fV duty %d", s.Chemistry, s.CellCount, s.SupplyVolts, s.Duty)
	for i, c := range s.Cells {
		fmt.Fprintf(&b, " | %d: %.3fV %s", i+1, c.Volts, c.Trend)
		if c.ShuntOn {
			b.WriteString(" shunt")
		}
	}
	if s.Overcurrent {
		b.WriteString(" OVERCURRENT")
	}
	if s.Alarm {
		b.WriteString(" ALARM")
	}
	if s.Resettling {
		b.WriteString(" (settling)")
	}
	return b.String()
}
