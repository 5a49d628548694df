package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/philippedc/bms-charger-controller/charger"
)

func statusForTest() charger.Status {
	return charger.Status{
		Chemistry:   "li-ion",
		CellCount:   4,
		SupplyVolts: 14.81,
		Duty:        120,
		Alarm:       true,
		Cells: []charger.CellStatus{
			{Volts: 3.70, Trend: "rising", ShuntOn: true},
			{Volts: 3.72, Trend: "steady"},
			{Volts: 3.68, Trend: "steady"},
			{Volts: 3.71, Trend: "falling"},
		},
	}
}

func TestStatusCache(t *testing.T) {
	c := &statusCache{}
	_, ok := c.Get()
	assert.False(t, ok, "empty before the first report")

	c.Report(statusForTest())
	got, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, "li-ion", got.Chemistry)
	assert.Len(t, got.Cells, 4)
}
