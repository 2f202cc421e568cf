package sensor

import (
	"log/slog"
	"math"

	"github.com/ericogr/greenhouse-node/pkg/calibration"
)

const (
	FallbackTemperatureF = 75.0
	FallbackHumidity     = 70.0
)

// fallbackReader substitutes a fixed value whenever its source reports an
// invalid sample.
type fallbackReader struct {
	name      string
	src       FloatSource
	fallback  float64
	logger    *slog.Logger
	fallbacks uint64
}

func newFallbackReader(name string, src FloatSource, fallback float64, logger *slog.Logger) fallbackReader {
	if logger == nil {
		logger = slog.Default()
	}
	return fallbackReader{name: name, src: src, fallback: fallback, logger: logger}
}

func (r *fallbackReader) Name() string { return r.name }

// Fallbacks reports how many samples were replaced by the fallback value.
func (r *fallbackReader) Fallbacks() uint64 { return r.fallbacks }

func (r *fallbackReader) sample() float64 {
	v, err := r.src.Read()
	if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	if err == nil {
		err = ErrInvalidReading
	}
	r.fallbacks++
	r.logger.Warn("sensor read failed, using fallback",
		"channel", r.name,
		"fallback", r.fallback,
		"fallbacks", r.fallbacks,
		"error", err,
	)
	return r.fallback
}

// TemperatureReader reports degrees Fahrenheit.
type TemperatureReader struct {
	fallbackReader
}

func NewTemperatureReader(src FloatSource, logger *slog.Logger) *TemperatureReader {
	return &TemperatureReader{newFallbackReader("temperature", src, FallbackTemperatureF, logger)}
}

func (r *TemperatureReader) Sample() float64 { return r.sample() }

// HumidityReader reports relative humidity in percent.
type HumidityReader struct {
	fallbackReader
}

func NewHumidityReader(src FloatSource, logger *slog.Logger) *HumidityReader {
	return &HumidityReader{newFallbackReader("humidity", src, FallbackHumidity, logger)}
}

func (r *HumidityReader) Sample() float64 {
	return calibration.Clamp(r.sample(), 0, 100)
}

// SoilMoistureReader converts raw converter counts to a moisture percentage.
type SoilMoistureReader struct {
	src    RawSource
	rng    calibration.Range
	last   int
	logger *slog.Logger
}

func NewSoilMoistureReader(src RawSource, rng calibration.Range, logger *slog.Logger) *SoilMoistureReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SoilMoistureReader{src: src, rng: rng, logger: logger}
}

func (r *SoilMoistureReader) Name() string { return "soil_moisture" }

// LastRaw returns the raw value behind the most recent sample.
func (r *SoilMoistureReader) LastRaw() int { return r.last }

func (r *SoilMoistureReader) Sample() float64 {
	r.last = r.src.ReadRaw()
	pct := r.rng.Percent(r.last)
	r.logger.Debug("soil moisture sampled", "raw", r.last, "percent", pct)
	return pct
}
