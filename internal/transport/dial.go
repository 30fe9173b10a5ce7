package transport

import (
	"fmt"

	"github.com/benmeehan/thermo-agent/internal/utils"
	"github.com/benmeehan/thermo-agent/pkg/file"
	"github.com/benmeehan/thermo-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Dial connects the transport selected by bus.transport using clientID.
func Dial(config *utils.Config, clientID string, onDrop func(Message), fileClient file.FileOperations, logger zerolog.Logger) (Transport, error) {
	opts := Options{
		QOS:            byte(config.Bus.QOS),
		PublishTimeout: config.Bus.PublishTimeout,
		InboxSize:      config.Bus.InboxSize,
		OnDrop:         onDrop,
	}

	switch config.Bus.Transport {
	case "mqtt":
		t, err := DialMQTT(mqtt.Options{
			Broker:         config.Bus.Broker,
			ClientID:       clientID,
			CACertPath:     config.Bus.CACertificate,
			KeepAlive:      config.Bus.KeepAlive,
			ConnectTimeout: config.Bus.ConnectTimeout,
		}, opts, fileClient, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "nats":
		t, err := DialNATS(NATSOptions{
			URL:            config.Bus.Broker,
			Name:           clientID,
			CACertPath:     config.Bus.CACertificate,
			ConnectTimeout: config.Bus.ConnectTimeout,
		}, opts, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", config.Bus.Transport)
	}
}
