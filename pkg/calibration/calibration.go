// Package calibration maps raw analog magnitudes to physical units.
package calibration

import (
	"errors"
	"fmt"
)

// ErrEqualEndpoints is returned when both calibration endpoints hold the
// same raw value, which would make the linear map divide by zero.
var ErrEqualEndpoints = errors.New("calibration endpoints must differ")

// MapRange linearly interpolates raw from [inLo, inHi] onto [outLo, outHi].
// inLo may be greater than inHi for inverted sensors. The result is not
// clamped.
func MapRange(raw, inLo, inHi, outLo, outHi float64) float64 {
	return outLo + (raw-inLo)*(outHi-outLo)/(inHi-inLo)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Range holds the dry and wet raw readings of a soil moisture probe.
// Higher raw magnitude means drier soil.
type Range struct {
	DryRaw int `json:"dry_raw"`
	WetRaw int `json:"wet_raw"`
}

// DefaultRange matches a capacitive probe on a 12-bit converter.
func DefaultRange() Range {
	return Range{DryRaw: 3000, WetRaw: 1500}
}

func (r Range) Validate() error {
	if r.DryRaw == r.WetRaw {
		return fmt.Errorf("dry_raw=%d wet_raw=%d: %w", r.DryRaw, r.WetRaw, ErrEqualEndpoints)
	}
	return nil
}

// Percent converts a raw reading into a moisture percentage in [0, 100].
func (r Range) Percent(raw int) float64 {
	v := MapRange(float64(raw), float64(r.DryRaw), float64(r.WetRaw), 0, 100)
	return Clamp(v, 0, 100)
}
