package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/thermo-agent/pkg/file"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTClient defines the interface for an MQTT client.
type MQTTClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

// Options configures the connection made by Initialize.
type Options struct {
	Broker         string
	ClientID       string
	CACertPath     string // empty disables TLS
	KeepAlive      time.Duration
	ConnectTimeout time.Duration

	OnConnect        func()
	OnConnectionLost func(err error)
}

// MqttService provides methods for MQTT operations.
type MqttService struct {
	client     MQTTClient
	fileClient file.FileOperations
}

// NewMqttService creates a new MqttService instance.
func NewMqttService(fileClient file.FileOperations) *MqttService {
	return &MqttService{
		fileClient: fileClient,
	}
}

// NewMqttServiceWithClient wraps an existing client, skipping Initialize.
func NewMqttServiceWithClient(client MQTTClient) *MqttService {
	return &MqttService{client: client}
}

// Initialize sets up the MQTT client, optionally with SSL/TLS, and connects.
func (s *MqttService) Initialize(opts Options) error {
	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetCleanSession(true)
	if opts.KeepAlive > 0 {
		clientOpts.SetKeepAlive(opts.KeepAlive)
	}
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}

	if opts.CACertPath != "" {
		tlsConfig, err := s.tlsConfig(opts.CACertPath)
		if err != nil {
			return err
		}
		clientOpts.SetTLSConfig(tlsConfig)
	}

	if opts.OnConnect != nil {
		onConnect := opts.OnConnect
		clientOpts.SetOnConnectHandler(func(mqtt.Client) { onConnect() })
	}
	if opts.OnConnectionLost != nil {
		onLost := opts.OnConnectionLost
		clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) { onLost(err) })
	}

	// Create and assign the MQTT client to the service
	s.client = mqtt.NewClient(clientOpts)

	token := s.Connect()
	if opts.ConnectTimeout > 0 {
		if !token.WaitTimeout(opts.ConnectTimeout) {
			return fmt.Errorf("timed out connecting to %s", opts.Broker)
		}
	} else {
		token.Wait()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.Broker, err)
	}

	return nil
}

func (s *MqttService) tlsConfig(caCertPath string) (*tls.Config, error) {
	if s.fileClient == nil {
		return nil, errors.New("no file client to read the CA certificate")
	}
	caCert, err := s.fileClient.ReadFileRaw(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	// Create a CA certificate pool and append the CA certificate to it
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to append CA certificate")
	}

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// Connect connects to the MQTT broker.
func (s *MqttService) Connect() mqtt.Token {
	return s.client.Connect()
}

// Publish sends a message to the specified topic.
func (s *MqttService) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return s.client.Publish(topic, qos, retained, payload)
}

// Subscribe subscribes to the specified topic with a message handler.
func (s *MqttService) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return s.client.Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes from the specified topics.
func (s *MqttService) Unsubscribe(topics ...string) mqtt.Token {
	return s.client.Unsubscribe(topics...)
}

// Disconnect gracefully disconnects the MQTT client.
func (s *MqttService) Disconnect(quiesce uint) {
	s.client.Disconnect(quiesce)
}
