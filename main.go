package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericogr/greenhouse-node/pkg/config"
	"github.com/ericogr/greenhouse-node/pkg/logging"
	"github.com/ericogr/greenhouse-node/pkg/network"
	"github.com/ericogr/greenhouse-node/pkg/output"
	"github.com/ericogr/greenhouse-node/pkg/output/console"
	httpout "github.com/ericogr/greenhouse-node/pkg/output/http"
	kafkaout "github.com/ericogr/greenhouse-node/pkg/output/kafka"
	mqttout "github.com/ericogr/greenhouse-node/pkg/output/mqtt"
	"github.com/ericogr/greenhouse-node/pkg/report"
	"github.com/ericogr/greenhouse-node/pkg/sample"
	"github.com/ericogr/greenhouse-node/pkg/scheduler"
	"github.com/ericogr/greenhouse-node/pkg/sensor"
	"github.com/google/uuid"
)

var version = "dev"

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.NodeID == "" {
		cfg.NodeID = defaultNodeID()
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(os.Stdout, cfg.LogFormat, level, cfg.NodeID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting greenhouse node",
		"version", version,
		"sensor_type", cfg.SensorType,
		"transport", cfg.Transport.Type,
		"endpoint", cfg.Transport.Endpoint,
		"network", cfg.Network.Type,
		"ssid", cfg.Network.SSID,
		"interval", cfg.Interval(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func defaultNodeID() string {
	return "gh-" + uuid.NewString()[:8]
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	hw, err := initSensors(cfg, logger)
	if err != nil {
		return err
	}
	defer hw.Close()

	// climate sensors need time to settle after power-up
	if d := cfg.SensorWarmup(); d > 0 {
		logger.Info("waiting for sensors to stabilize", "delay", d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}

	transport, link, err := initTransport(cfg, logger)
	if err != nil {
		return err
	}
	defer transport.Close()

	assoc, err := initNetwork(cfg, link, logger)
	if err != nil {
		return err
	}
	opts := schedulerOptions(cfg)
	if !assoc.IsAssociated() {
		if assoc.Associate(ctx, opts.Attempts, opts.AttemptDelay) {
			logger.Info("network associated")
		} else {
			logger.Error("network association failed, will retry on the next cycle")
		}
	}

	composer := &sample.Composer{
		Temperature:  sensor.NewTemperatureReader(hw.temperature, logger),
		Humidity:     sensor.NewHumidityReader(hw.humidity, logger),
		SoilMoisture: sensor.NewSoilMoistureReader(hw.soil, cfg.Soil.Calibration, logger),
		LightLevel:   cfg.Synthetic.LightLevel,
		CO2PPM:       cfg.Synthetic.CO2PPM,
	}
	rep := report.New(transport, assoc, logger)
	sched := scheduler.New(composer, rep, assoc, opts, logger)

	logger.Info("setup complete, starting sensor readings")
	return sched.Run(ctx)
}

func schedulerOptions(cfg config.Config) scheduler.Options {
	return scheduler.Options{
		Interval:     cfg.Interval(),
		PollInterval: cfg.PollInterval(),
		Attempts:     cfg.Network.Attempts,
		AttemptDelay: cfg.Network.AttemptDelay(),
	}
}

type hardware struct {
	temperature sensor.FloatSource
	humidity    sensor.FloatSource
	soil        sensor.RawSource
	closers     []io.Closer
}

func (h *hardware) Close() {
	// close in reverse order of opening
	for i := len(h.closers) - 1; i >= 0; i-- {
		_ = h.closers[i].Close()
	}
}

func initSensors(cfg config.Config, logger *slog.Logger) (*hardware, error) {
	if cfg.SensorType == config.SensorSimulation {
		seed := time.Now().UnixNano()
		climate := sensor.NewSimulatedClimate(seed, cfg.Climate.FailureRate)
		return &hardware{
			temperature: climate.Temperature(),
			humidity:    climate.Humidity(),
			soil:        sensor.NewSimulatedSoil(seed+1, cfg.Soil.Calibration),
		}, nil
	}

	bus, err := sensor.OpenBus(cfg.I2C.Bus)
	if err != nil {
		return nil, err
	}
	hw := &hardware{closers: []io.Closer{bus}}

	ads, err := sensor.NewADS1115(bus, uint16(cfg.Soil.Address), cfg.Soil.Channel, cfg.Soil.SampleRate,
		cfg.Soil.Calibration.DryRaw, logger)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("soil sensor: %w", err)
	}
	hw.soil = ads

	bme, err := sensor.NewBME280(bus, uint16(cfg.Climate.Address))
	if err != nil {
		// keep running on fallback values rather than refusing to report
		logger.Error("climate sensor unavailable, using fallback values", "error", err)
		hw.temperature = sensor.Unavailable(err)
		hw.humidity = sensor.Unavailable(err)
		return hw, nil
	}
	hw.closers = append(hw.closers, bme)
	hw.temperature = bme.Temperature()
	hw.humidity = bme.Humidity()
	logger.Info("sensors initialized",
		"i2c_bus", cfg.I2C.Bus,
		"climate_address", fmt.Sprintf("0x%02X", cfg.Climate.Address),
		"soil_address", fmt.Sprintf("0x%02X", cfg.Soil.Address),
		"soil_channel", cfg.Soil.Channel,
	)
	return hw, nil
}

// initTransport also returns the broker link for transports that keep a
// connection, so it can be re-established like the network.
func initTransport(cfg config.Config, logger *slog.Logger) (output.Transport, network.BrokerLink, error) {
	switch cfg.Transport.Type {
	case config.TransportHTTP:
		return httpout.NewHTTP(cfg.Transport.Endpoint, cfg.Transport.Timeout()), nil, nil
	case config.TransportMQTT:
		mc := config.MQTTConfig{}
		if cfg.Transport.MQTT != nil {
			mc = *cfg.Transport.MQTT
		}
		if mc.ClientID == "" {
			mc.ClientID = cfg.NodeID
		}
		m := mqttout.NewMQTT(mc, logger)
		return m, m, nil
	case config.TransportKafka:
		if cfg.Transport.Kafka == nil {
			return nil, nil, errors.New("kafka transport requires brokers")
		}
		return kafkaout.NewKafka(*cfg.Transport.Kafka, cfg.NodeID, cfg.Transport.Timeout()), nil, nil
	case config.TransportConsole:
		return console.NewConsole(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport.Type)
	}
}

func initNetwork(cfg config.Config, link network.BrokerLink, logger *slog.Logger) (network.Associator, error) {
	var base network.Associator
	switch cfg.Network.Type {
	case config.NetworkStatic:
		base = network.Static{}
	case config.NetworkNMCLI:
		base = network.NewNMCLI(cfg.Network.SSID, cfg.Network.Password, cfg.Network.Interface, logger)
	default:
		return nil, fmt.Errorf("unknown network type %q", cfg.Network.Type)
	}
	if link == nil {
		return base, nil
	}
	return network.Chain{base, network.NewBroker(link, logger)}, nil
}
