package sensor

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// BME280 exposes the temperature and humidity of a Bosch BME280 as two
// independent sources. Each Read performs its own measurement.
type BME280 struct {
	dev *bmxx80.Dev
}

func NewBME280(bus i2c.Bus, addr uint16) (*BME280, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bme280 init: %w", err)
	}
	return &BME280{dev: dev}, nil
}

func (b *BME280) sense() (physic.Env, error) {
	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		return env, fmt.Errorf("bme280 sense: %w", err)
	}
	return env, nil
}

// Temperature returns degrees Fahrenheit.
func (b *BME280) Temperature() FloatSource {
	return SourceFunc(func() (float64, error) {
		env, err := b.sense()
		if err != nil {
			return math.NaN(), err
		}
		return fahrenheit(env.Temperature), nil
	})
}

// Humidity returns relative humidity in percent.
func (b *BME280) Humidity() FloatSource {
	return SourceFunc(func() (float64, error) {
		env, err := b.sense()
		if err != nil {
			return math.NaN(), err
		}
		return humidityPercent(env.Humidity), nil
	})
}

func (b *BME280) Close() error {
	return b.dev.Halt()
}

func fahrenheit(t physic.Temperature) float64 {
	return t.Celsius()*9/5 + 32
}

// humidityPercent converts the fixed point value (0.00001 %rH steps).
func humidityPercent(h physic.RelativeHumidity) float64 {
	return float64(h) / float64(physic.PercentRH)
}
