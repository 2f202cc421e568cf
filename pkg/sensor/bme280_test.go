package sensor

import (
	"math"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestFahrenheit(t *testing.T) {
	tests := []struct {
		in   physic.Temperature
		want float64
	}{
		{physic.ZeroCelsius, 32},
		{physic.ZeroCelsius + 100*physic.Kelvin, 212},
		{physic.ZeroCelsius + 37*physic.Kelvin, 98.6},
		{physic.ZeroCelsius - 40*physic.Kelvin, -40},
	}
	for _, tt := range tests {
		if got := fahrenheit(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("fahrenheit(%v) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestHumidityPercent(t *testing.T) {
	if got := humidityPercent(45 * physic.PercentRH); got != 45 {
		t.Fatalf("45%%RH: got %v", got)
	}
	if got := humidityPercent(physic.PercentRH / 2); got != 0.5 {
		t.Fatalf("0.5%%RH: got %v", got)
	}
}
