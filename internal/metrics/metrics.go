package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors updated by the publisher and aggregator loops.
type Metrics struct {
	MessagesReceived  prometheus.Counter
	MessagesMalformed prometheus.Counter
	MessagesDropped   prometheus.Counter
	StaleEvictions    prometheus.Counter
	ReceiveErrors     prometheus.Counter
	LivePublishers    prometheus.Gauge
	AverageCelsius    prometheus.Gauge
	ActuatorOn        prometheus.Gauge

	ReadingsPublished prometheus.Counter
	PublishFailures   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_messages_received_total",
			Help: "Messages received on the readings topic.",
		}),
		MessagesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_messages_malformed_total",
			Help: "Received messages discarded because they could not be decoded.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_messages_dropped_total",
			Help: "Inbound messages dropped because the inbox was full.",
		}),
		StaleEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_stale_evictions_total",
			Help: "Publishers evicted after exceeding the staleness timeout.",
		}),
		ReceiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_receive_errors_total",
			Help: "Transport faults observed while receiving.",
		}),
		LivePublishers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_live_publishers",
			Help: "Publishers currently counted in the average.",
		}),
		AverageCelsius: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_average_celsius",
			Help: "Average temperature over live publishers.",
		}),
		ActuatorOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_actuator_on",
			Help: "1 when the actuator is driven high, 0 otherwise.",
		}),
		ReadingsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_readings_published_total",
			Help: "Readings published by this publisher.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_publish_failures_total",
			Help: "Ticks that failed to sample, encode or publish a reading.",
		}),
	}

	reg.MustRegister(
		m.MessagesReceived,
		m.MessagesMalformed,
		m.MessagesDropped,
		m.StaleEvictions,
		m.ReceiveErrors,
		m.LivePublishers,
		m.AverageCelsius,
		m.ActuatorOn,
		m.ReadingsPublished,
		m.PublishFailures,
	)

	return m
}

// SetActuator records the actuator state as 0 or 1.
func (m *Metrics) SetActuator(on bool) {
	if on {
		m.ActuatorOn.Set(1)
		return
	}
	m.ActuatorOn.Set(0)
}
