package constants

import "time"

// Defaults applied to zero-valued configuration fields.
const (
	DefaultConfigPath     = "configs/config.yaml"
	DefaultTransport      = "mqtt"
	DefaultCodec          = "text"
	DefaultQOS            = 0
	DefaultKeepAlive      = 60 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultPublishTimeout = 5 * time.Second
	DefaultInboxSize      = 64

	DefaultPublishInterval = 2 * time.Second
	DefaultSensorDriver    = "host"
	DefaultSerialBaudRate  = 115200
	DefaultSerialMode      = "celsius"

	DefaultActuatorDriver = "periph"
	DefaultTimeout        = 600 * time.Second
	DefaultThreshold      = 25.0
	DefaultRetryDelay     = 1 * time.Second

	DefaultMetricsAddr = ":9100"

	// AggregatorClientIDPrefix is used when no explicit client id is configured.
	AggregatorClientIDPrefix = "aggregator"
)
