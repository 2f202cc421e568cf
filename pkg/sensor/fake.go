package sensor

import (
	"math"
	"math/rand"
	"sync"

	"github.com/ericogr/greenhouse-node/pkg/calibration"
)

// SimulatedClimate produces plausible greenhouse temperature and humidity
// values and fails at the configured rate, like a flaky single-wire sensor.
type SimulatedClimate struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	failureRate float64
}

func NewSimulatedClimate(seed int64, failureRate float64) *SimulatedClimate {
	return &SimulatedClimate{rnd: rand.New(rand.NewSource(seed)), failureRate: failureRate}
}

func (f *SimulatedClimate) read(base, spread float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rnd.Float64() < f.failureRate {
		return math.NaN(), nil
	}
	return base + f.rnd.NormFloat64()*spread, nil
}

// Temperature returns degrees Fahrenheit around 75.
func (f *SimulatedClimate) Temperature() FloatSource {
	return SourceFunc(func() (float64, error) { return f.read(75, 2) })
}

// Humidity returns relative humidity around 70 %.
func (f *SimulatedClimate) Humidity() FloatSource {
	return SourceFunc(func() (float64, error) { return f.read(70, 4) })
}

// SimulatedSoil wanders between the calibration endpoints, slightly past
// them so clamping is exercised.
type SimulatedSoil struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	lo, hi int
	raw    int
}

func NewSimulatedSoil(seed int64, rng calibration.Range) *SimulatedSoil {
	lo, hi := rng.WetRaw, rng.DryRaw
	if lo > hi {
		lo, hi = hi, lo
	}
	margin := (hi - lo) / 10
	return &SimulatedSoil{
		rnd: rand.New(rand.NewSource(seed)),
		lo:  lo - margin,
		hi:  hi + margin,
		raw: (lo + hi) / 2,
	}
}

func (f *SimulatedSoil) ReadRaw() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	step := (f.hi - f.lo) / 50
	if step < 1 {
		step = 1
	}
	f.raw += f.rnd.Intn(2*step+1) - step
	if f.raw < f.lo {
		f.raw = f.lo
	}
	if f.raw > f.hi {
		f.raw = f.hi
	}
	return f.raw
}
