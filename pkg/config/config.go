package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ericogr/greenhouse-node/pkg/calibration"
)

const (
	SensorReal       = "real"
	SensorSimulation = "simulation"

	TransportHTTP    = "http"
	TransportMQTT    = "mqtt"
	TransportKafka   = "kafka"
	TransportConsole = "console"

	NetworkNMCLI  = "nmcli"
	NetworkStatic = "static"
)

type I2CConfig struct {
	Bus string `json:"bus"`
}

type ClimateConfig struct {
	Address int `json:"address"`
	// FailureRate is the probability of an invalid read in simulation mode.
	FailureRate float64 `json:"failure_rate,omitempty"`
}

type SoilConfig struct {
	Address     int               `json:"address"`
	Channel     int               `json:"channel"`
	SampleRate  int               `json:"sample_rate"`
	Calibration calibration.Range `json:"calibration"`
}

type SyntheticConfig struct {
	LightLevel float64 `json:"light_level"`
	CO2PPM     float64 `json:"co2_ppm"`
}

type NetworkConfig struct {
	Type           string `json:"type"`
	SSID           string `json:"ssid"`
	Password       string `json:"password"`
	Interface      string `json:"interface"`
	Attempts       int    `json:"attempts"`
	AttemptDelayMs int    `json:"attempt_delay_ms"`
}

type MQTTConfig struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

type TransportConfig struct {
	Type      string       `json:"type"`
	Endpoint  string       `json:"endpoint,omitempty"`
	TimeoutMs int          `json:"timeout_ms,omitempty"`
	MQTT      *MQTTConfig  `json:"mqtt,omitempty"`
	Kafka     *KafkaConfig `json:"kafka,omitempty"`
}

type Config struct {
	NodeID         string          `json:"node_id"`
	LogLevel       string          `json:"log_level"`
	LogFormat      string          `json:"log_format"`
	SensorType     string          `json:"sensor_type"`
	IntervalMs     int             `json:"interval_ms"`
	PollIntervalMs int             `json:"poll_interval_ms"`
	SensorWarmupMs int             `json:"sensor_warmup_ms"`
	I2C            I2CConfig       `json:"i2c"`
	Climate        ClimateConfig   `json:"climate"`
	Soil           SoilConfig      `json:"soil"`
	Synthetic      SyntheticConfig `json:"synthetic"`
	Network        NetworkConfig   `json:"network"`
	Transport      TransportConfig `json:"transport"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:       "info",
		LogFormat:      "text",
		SensorType:     SensorReal,
		IntervalMs:     2000,
		PollIntervalMs: 100,
		SensorWarmupMs: 2000,
		I2C:            I2CConfig{Bus: "1"},
		Climate:        ClimateConfig{Address: 0x76, FailureRate: 0.05},
		Soil: SoilConfig{
			Address:     0x48,
			Channel:     0,
			SampleRate:  128,
			Calibration: calibration.DefaultRange(),
		},
		Synthetic: SyntheticConfig{LightLevel: 600.0, CO2PPM: 700.0},
		Network: NetworkConfig{
			Type:           NetworkStatic,
			Interface:      "wlan0",
			Attempts:       20,
			AttemptDelayMs: 500,
		},
		Transport: TransportConfig{
			Type:      TransportHTTP,
			Endpoint:  "http://192.168.1.29:3001/api/sensors/esp32",
			TimeoutMs: 5000,
		},
	}
}

func (c Config) Interval() time.Duration { return ms(c.IntervalMs) }

func (c Config) PollInterval() time.Duration { return ms(c.PollIntervalMs) }

func (c Config) SensorWarmup() time.Duration { return ms(c.SensorWarmupMs) }

func (n NetworkConfig) AttemptDelay() time.Duration { return ms(n.AttemptDelayMs) }

func (t TransportConfig) Timeout() time.Duration { return ms(t.TimeoutMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// LoadFromFlags loads configuration from a JSON file (optional), the
// environment and command line flags, in that order of precedence.
func LoadFromFlags() (Config, error) {
	return Load(os.Args[1:], os.Getenv)
}

// Load parses args with its own flag set so it can be called repeatedly.
// getenv supplies secrets that should not appear on the command line.
func Load(args []string, getenv func(string) string) (Config, error) {
	fs := flag.NewFlagSet("greenhouse-node", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to JSON config file")
	flagNodeID := fs.String("node-id", "", "Node identifier (defaults to a random id)")
	flagLogLevel := fs.String("log-level", "", "Log level: debug|info|warn|error")
	flagLogFormat := fs.String("log-format", "", "Log format: text|json")
	flagSensorType := fs.String("sensor-type", "", "sensor type: real|simulation")
	flagInterval := fs.Int("interval-ms", -1, "Sampling interval in ms")
	flagPoll := fs.Int("poll-interval-ms", -1, "Scheduler poll interval in ms")
	flagWarmup := fs.Int("sensor-warmup-ms", -1, "Delay after sensor init in ms")
	flagI2CBus := fs.String("i2c-bus", "", "I2C bus (e.g., '1' -> /dev/i2c-1)")
	flagClimateAddr := fs.String("climate-address", "", "BME280 I2C address (decimal or 0x hex)")
	flagSoilAddr := fs.String("soil-address", "", "ADS1115 I2C address (decimal or 0x hex)")
	flagSoilChannel := fs.Int("soil-channel", -1, "ADS1115 channel for the soil probe (0-3)")
	flagDryRaw := fs.Int("dry-raw", -1, "Raw reading in dry soil")
	flagWetRaw := fs.Int("wet-raw", -1, "Raw reading in wet soil")
	flagTransport := fs.String("transport", "", "Transport: http|mqtt|kafka|console")
	flagEndpoint := fs.String("endpoint", "", "HTTP collector endpoint")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTTopic := fs.String("mqtt-topic", "", "MQTT topic")
	flagMQTTClientID := fs.String("mqtt-client-id", "", "MQTT client id")
	flagKafkaBrokers := fs.String("kafka-brokers", "", "Comma-separated Kafka brokers")
	flagKafkaTopic := fs.String("kafka-topic", "", "Kafka topic")
	flagNetwork := fs.String("network", "", "Network association: nmcli|static")
	flagSSID := fs.String("ssid", "", "Wi-Fi SSID")
	flagIface := fs.String("wifi-iface", "", "Wi-Fi interface name")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if getenv != nil {
		if v := getenv("WIFI_PASSWORD"); v != "" {
			cfg.Network.Password = v
		}
		if v := getenv("MQTT_PASSWORD"); v != "" {
			cfg.mqtt().Password = v
		}
	}

	if *flagNodeID != "" {
		cfg.NodeID = *flagNodeID
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}
	if *flagLogFormat != "" {
		cfg.LogFormat = *flagLogFormat
	}
	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if *flagPoll != -1 {
		cfg.PollIntervalMs = *flagPoll
	}
	if *flagWarmup != -1 {
		cfg.SensorWarmupMs = *flagWarmup
	}
	if *flagI2CBus != "" {
		cfg.I2C.Bus = *flagI2CBus
	}
	if *flagClimateAddr != "" {
		v, err := parseIntOrHex(*flagClimateAddr)
		if err != nil {
			return cfg, fmt.Errorf("climate-address: %w", err)
		}
		cfg.Climate.Address = v
	}
	if *flagSoilAddr != "" {
		v, err := parseIntOrHex(*flagSoilAddr)
		if err != nil {
			return cfg, fmt.Errorf("soil-address: %w", err)
		}
		cfg.Soil.Address = v
	}
	if *flagSoilChannel != -1 {
		cfg.Soil.Channel = *flagSoilChannel
	}
	if *flagDryRaw != -1 {
		cfg.Soil.Calibration.DryRaw = *flagDryRaw
	}
	if *flagWetRaw != -1 {
		cfg.Soil.Calibration.WetRaw = *flagWetRaw
	}
	if *flagTransport != "" {
		cfg.Transport.Type = strings.ToLower(*flagTransport)
	}
	if *flagEndpoint != "" {
		cfg.Transport.Endpoint = *flagEndpoint
	}
	if *flagMQTTServer != "" {
		cfg.mqtt().Server = *flagMQTTServer
	}
	if *flagMQTTUser != "" {
		cfg.mqtt().Username = *flagMQTTUser
	}
	if *flagMQTTTopic != "" {
		cfg.mqtt().Topic = *flagMQTTTopic
	}
	if *flagMQTTClientID != "" {
		cfg.mqtt().ClientID = *flagMQTTClientID
	}
	if *flagKafkaBrokers != "" {
		cfg.kafka().Brokers = parseCSV(*flagKafkaBrokers)
	}
	if *flagKafkaTopic != "" {
		cfg.kafka().Topic = *flagKafkaTopic
	}
	if *flagNetwork != "" {
		cfg.Network.Type = strings.ToLower(*flagNetwork)
	}
	if *flagSSID != "" {
		cfg.Network.SSID = *flagSSID
	}
	if *flagIface != "" {
		cfg.Network.Interface = *flagIface
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the agent cannot run with. It is called
// once at startup; nothing is re-validated while cycles run.
func (c Config) Validate() error {
	if c.IntervalMs <= 0 {
		return errors.New("interval-ms must be > 0")
	}
	if c.PollIntervalMs <= 0 {
		return errors.New("poll-interval-ms must be > 0")
	}
	if c.SensorWarmupMs < 0 {
		return errors.New("sensor-warmup-ms must be >= 0")
	}
	if err := c.Soil.Calibration.Validate(); err != nil {
		return fmt.Errorf("soil calibration: %w", err)
	}
	switch c.SensorType {
	case SensorReal:
		if c.Soil.Channel < 0 || c.Soil.Channel > 3 {
			return fmt.Errorf("soil channel %d out of range 0-3", c.Soil.Channel)
		}
	case SensorSimulation:
		if c.Climate.FailureRate < 0 || c.Climate.FailureRate > 1 {
			return fmt.Errorf("climate failure_rate %v out of range 0-1", c.Climate.FailureRate)
		}
	default:
		return fmt.Errorf("unknown sensor type %q", c.SensorType)
	}
	if c.Network.Attempts <= 0 {
		return errors.New("network attempts must be > 0")
	}
	if c.Network.AttemptDelayMs < 0 {
		return errors.New("network attempt_delay_ms must be >= 0")
	}
	switch c.Network.Type {
	case NetworkStatic:
	case NetworkNMCLI:
		if c.Network.SSID == "" {
			return errors.New("nmcli network requires an ssid")
		}
	default:
		return fmt.Errorf("unknown network type %q", c.Network.Type)
	}
	switch c.Transport.Type {
	case TransportHTTP:
		if c.Transport.Endpoint == "" {
			return errors.New("http transport requires an endpoint")
		}
	case TransportMQTT, TransportConsole:
	case TransportKafka:
		if c.Transport.Kafka == nil || len(c.Transport.Kafka.Brokers) == 0 {
			return errors.New("kafka transport requires at least one broker")
		}
	default:
		return fmt.Errorf("unknown transport type %q", c.Transport.Type)
	}
	return nil
}

func (c *Config) mqtt() *MQTTConfig {
	if c.Transport.MQTT == nil {
		c.Transport.MQTT = &MQTTConfig{}
	}
	return c.Transport.MQTT
}

func (c *Config) kafka() *KafkaConfig {
	if c.Transport.Kafka == nil {
		c.Transport.Kafka = &KafkaConfig{}
	}
	return c.Transport.Kafka
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
