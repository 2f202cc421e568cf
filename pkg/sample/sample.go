// Package sample builds one measurement record per cycle.
package sample

import (
	"math"

	"github.com/ericogr/greenhouse-node/pkg/sensor"
)

// MeasurementRecord is the fixed five-channel schema expected by the
// collector. Field order matches the wire payload.
type MeasurementRecord struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	SoilMoisture float64 `json:"soil_moisture"`
	LightLevel   float64 `json:"light_level"`
	CO2PPM       float64 `json:"co2_ppm"`
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Rounded returns a copy with every field rounded to one decimal place.
func (r MeasurementRecord) Rounded() MeasurementRecord {
	return MeasurementRecord{
		Temperature:  Round1(r.Temperature),
		Humidity:     Round1(r.Humidity),
		SoilMoisture: Round1(r.SoilMoisture),
		LightLevel:   Round1(r.LightLevel),
		CO2PPM:       Round1(r.CO2PPM),
	}
}

// Composer reads the physical channels and appends the synthetic ones.
type Composer struct {
	Temperature  sensor.Channel
	Humidity     sensor.Channel
	SoilMoisture sensor.Channel

	// LightLevel and CO2PPM are placeholders for channels the node does
	// not have; the collector fills in its own patterns.
	LightLevel float64
	CO2PPM     float64
}

// Compose samples each physical channel exactly once, in a fixed order.
func (c *Composer) Compose() MeasurementRecord {
	var rec MeasurementRecord
	rec.Temperature = c.Temperature.Sample()
	rec.Humidity = c.Humidity.Sample()
	rec.SoilMoisture = c.SoilMoisture.Sample()
	rec.LightLevel = c.LightLevel
	rec.CO2PPM = c.CO2PPM
	return rec
}
