package sensor

import "errors"

// ErrInvalidReading is returned by sources that know a sample is bad
// without having a more specific error.
var ErrInvalidReading = errors.New("invalid reading")

// FloatSource is a physical measurement that may fail. A non-nil error,
// NaN or an infinity all mean the sample is invalid.
type FloatSource interface {
	Read() (float64, error)
}

// SourceFunc adapts a function to FloatSource.
type SourceFunc func() (float64, error)

func (f SourceFunc) Read() (float64, error) { return f() }

// RawSource is an analog converter channel. It has no way to signal an
// invalid sample.
type RawSource interface {
	ReadRaw() int
}

// RawFunc adapts a function to RawSource.
type RawFunc func() int

func (f RawFunc) ReadRaw() int { return f() }

// Channel produces one calibrated value per call and never fails.
type Channel interface {
	Name() string
	Sample() float64
}

// Unavailable is a source for hardware that failed to initialize. Every read
// is invalid, so readers fall back on each cycle instead of stalling.
func Unavailable(err error) FloatSource {
	return SourceFunc(func() (float64, error) { return 0, err })
}
