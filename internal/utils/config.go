package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/thermo-agent/internal/constants"
	"github.com/benmeehan/thermo-agent/pkg/file"
)

// ErrInvalidConfig wraps every validation failure reported by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the structure of the configuration file.
type Config struct {
	Logging struct {
		Level   string `yaml:"level"`   // debug, info, warn, error
		Output  string `yaml:"output"`  // stdout or stderr
		Console bool   `yaml:"console"` // Human-readable console output instead of JSON
	} `yaml:"logging"`

	Bus struct {
		Transport      string        `yaml:"transport"`       // mqtt or nats
		Broker         string        `yaml:"broker"`          // Broker address, e.g. tcp://10.0.0.2:1883
		ClientID       string        `yaml:"client_id"`       // Optional explicit client id
		CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate (enables TLS)
		QOS            int           `yaml:"qos"`             // MQTT QoS level for readings
		KeepAlive      time.Duration `yaml:"keepalive"`       // Keepalive interval
		ConnectTimeout time.Duration `yaml:"connect_timeout"` // Timeout for the initial connection
		PublishTimeout time.Duration `yaml:"publish_timeout"` // Timeout for a single publish
		InboxSize      int           `yaml:"inbox_size"`      // Inbound messages buffered before dropping
	} `yaml:"bus"`

	Topic string `yaml:"topic"` // Topic shared by all publishers and the aggregator
	Codec string `yaml:"codec"` // text or binary

	Publisher struct {
		Identity string        `yaml:"identity"` // Unique publisher id; set only on publishers
		Interval time.Duration `yaml:"interval"` // Time between readings
		Sensor   struct {
			Driver    string `yaml:"driver"`     // host or serial
			SensorKey string `yaml:"sensor_key"` // Host sensor key filter (host driver)
			Port      string `yaml:"port"`       // Serial device (serial driver)
			BaudRate  int    `yaml:"baud_rate"`  // Serial baud rate
			Mode      string `yaml:"mode"`       // celsius or adc (serial driver)
		} `yaml:"sensor"`
	} `yaml:"publisher"`

	Aggregator struct {
		ActuatorPin     string        `yaml:"actuator_pin"`      // Output pin; set only on the aggregator
		ActuatorDriver  string        `yaml:"actuator_driver"`   // periph, cdev or log
		Timeout         time.Duration `yaml:"timeout"`           // Staleness timeout per publisher
		Threshold       float64       `yaml:"threshold"`         // Actuator turns on above this average (°C)
		RetryDelay      time.Duration `yaml:"retry_delay"`       // Pause after a receive failure
		RejectNonFinite bool          `yaml:"reject_non_finite"` // Discard NaN/Inf readings
	} `yaml:"aggregator"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"` // Expose Prometheus metrics
		Addr    string `yaml:"addr"`    // Listen address for /metrics
	} `yaml:"metrics"`
}

// DefaultConfig returns a Config carrying the defaults that cannot be
// expressed as "zero means default", such as the actuation threshold where
// 0 °C is a legitimate value.
func DefaultConfig() Config {
	var config Config
	config.Aggregator.Threshold = constants.DefaultThreshold
	return config
}

// LoadConfig loads the YAML configuration from the specified file, applies
// defaults and validates it. It returns a pointer to the Config struct and an
// error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	// keys absent from the file keep their DefaultConfig values
	config := DefaultConfig()
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Bus.Transport == "" {
		c.Bus.Transport = constants.DefaultTransport
	}
	if c.Bus.KeepAlive == 0 {
		c.Bus.KeepAlive = constants.DefaultKeepAlive
	}
	if c.Bus.ConnectTimeout == 0 {
		c.Bus.ConnectTimeout = constants.DefaultConnectTimeout
	}
	if c.Bus.PublishTimeout == 0 {
		c.Bus.PublishTimeout = constants.DefaultPublishTimeout
	}
	if c.Bus.InboxSize == 0 {
		c.Bus.InboxSize = constants.DefaultInboxSize
	}

	if c.Codec == "" {
		c.Codec = constants.DefaultCodec
	}

	if c.Publisher.Interval == 0 {
		c.Publisher.Interval = constants.DefaultPublishInterval
	}
	if c.Publisher.Sensor.Driver == "" {
		c.Publisher.Sensor.Driver = constants.DefaultSensorDriver
	}
	if c.Publisher.Sensor.BaudRate == 0 {
		c.Publisher.Sensor.BaudRate = constants.DefaultSerialBaudRate
	}
	if c.Publisher.Sensor.Mode == "" {
		c.Publisher.Sensor.Mode = constants.DefaultSerialMode
	}

	if c.Aggregator.ActuatorDriver == "" {
		c.Aggregator.ActuatorDriver = constants.DefaultActuatorDriver
	}
	if c.Aggregator.Timeout == 0 {
		c.Aggregator.Timeout = constants.DefaultTimeout
	}
	if c.Aggregator.RetryDelay == 0 {
		c.Aggregator.RetryDelay = constants.DefaultRetryDelay
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = constants.DefaultMetricsAddr
	}
}

// Validate checks field values. Role consistency is checked separately by ResolveRole.
func (c *Config) Validate() error {
	var problems []string

	if c.Bus.Broker == "" {
		problems = append(problems, "bus.broker must be set")
	}
	if c.Topic == "" {
		problems = append(problems, "topic must be set")
	}
	switch c.Bus.Transport {
	case "mqtt", "nats":
	default:
		problems = append(problems, fmt.Sprintf("bus.transport %q is not one of mqtt, nats", c.Bus.Transport))
	}
	if c.Bus.QOS < 0 || c.Bus.QOS > 2 {
		problems = append(problems, fmt.Sprintf("bus.qos %d is not in 0..2", c.Bus.QOS))
	}
	if c.Bus.InboxSize < 0 {
		problems = append(problems, "bus.inbox_size must not be negative")
	}

	switch c.Codec {
	case "text":
		if strings.Contains(c.Publisher.Identity, ",") {
			problems = append(problems, "publisher.identity must not contain ',' with the text codec")
		}
	case "binary":
	default:
		problems = append(problems, fmt.Sprintf("codec %q is not one of text, binary", c.Codec))
	}

	if c.Publisher.Interval < 0 {
		problems = append(problems, "publisher.interval must be positive")
	}
	switch c.Publisher.Sensor.Driver {
	case "host", "serial":
	default:
		problems = append(problems, fmt.Sprintf("publisher.sensor.driver %q is not one of host, serial", c.Publisher.Sensor.Driver))
	}
	switch c.Publisher.Sensor.Mode {
	case "celsius", "adc":
	default:
		problems = append(problems, fmt.Sprintf("publisher.sensor.mode %q is not one of celsius, adc", c.Publisher.Sensor.Mode))
	}

	switch c.Aggregator.ActuatorDriver {
	case "periph", "cdev", "log":
	default:
		problems = append(problems, fmt.Sprintf("aggregator.actuator_driver %q is not one of periph, cdev, log", c.Aggregator.ActuatorDriver))
	}
	if c.Aggregator.Timeout < 0 {
		problems = append(problems, "aggregator.timeout must be positive")
	}
	if c.Aggregator.RetryDelay < 0 {
		problems = append(problems, "aggregator.retry_delay must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
