package sensor

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01
)

// OpenBus initializes the host drivers and opens the named I2C bus.
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	return bus, nil
}

// ADS1115 reads one single-ended channel of an ADS1115 converter.
//
// The converter is exposed as a RawSource, which cannot report failures, so
// a failed bus transaction is logged and the previous good value repeated.
type ADS1115 struct {
	dev        *i2c.Dev
	channel    int
	sampleRate int
	last       int
	logger     *slog.Logger
}

// NewADS1115 validates the channel and sample rate up front. initial is
// returned until the first successful conversion.
func NewADS1115(bus i2c.Bus, addr uint16, channel, sampleRate, initial int, logger *slog.Logger) (*ADS1115, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ADS1115{
		dev:        &i2c.Dev{Addr: addr, Bus: bus},
		channel:    channel,
		sampleRate: sampleRate,
		last:       initial,
		logger:     logger,
	}
	if _, _, err := s.configForChannel(channel, sampleRate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ADS1115) ReadRaw() int {
	raw, err := s.convert()
	if err != nil {
		s.logger.Error("ads1115 conversion failed, repeating last value",
			"channel", s.channel, "last", s.last, "error", err)
		return s.last
	}
	s.last = raw
	return raw
}

func (s *ADS1115) convert() (int, error) {
	msb, lsb, err := s.configForChannel(s.channel, s.sampleRate)
	if err != nil {
		return 0, err
	}
	if err := s.dev.Tx([]byte{pointerConfig, msb, lsb}, nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}
	// wait for the single-shot conversion
	delayMs := int(1000.0/float64(s.sampleRate)) + 2
	time.Sleep(time.Duration(delayMs) * time.Millisecond)
	readBuf := make([]byte, 2)
	if err := s.dev.Tx([]byte{pointerConv}, readBuf); err != nil {
		return 0, fmt.Errorf("read conv: %w", err)
	}
	raw := int16(readBuf[0])<<8 | int16(readBuf[1])
	if raw < 0 {
		// single-ended inputs only go slightly negative from offset noise
		raw = 0
	}
	return int(raw), nil
}

func (s *ADS1115) configForChannel(channel, sampleRate int) (byte, byte, error) {
	var mux byte
	switch channel {
	case 0:
		mux = 0x4
	case 1:
		mux = 0x5
	case 2:
		mux = 0x6
	case 3:
		mux = 0x7
	default:
		return 0, 0, fmt.Errorf("invalid channel %d", channel)
	}
	// PGA: use ±4.096V -> bits 001
	pga := byte(0x1)
	var dr byte
	switch sampleRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		return 0, 0, fmt.Errorf("unsupported sample rate %d", sampleRate)
	}
	var config uint16 = 0x8000 // OS = 1 (start single conversion)
	config |= uint16(mux) << 12
	config |= uint16(pga) << 9
	config |= 1 << 8 // single-shot mode
	config |= uint16(dr) << 5
	// comparator disabled (bits 1:0 = 11)
	config |= 0x3
	return byte(config >> 8), byte(config & 0xFF), nil
}
