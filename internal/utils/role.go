package utils

import (
	"errors"

	"github.com/benmeehan/thermo-agent/internal/models"
)

// ErrAmbiguousOrMissingRole is returned when exactly one of the publisher
// identity and the actuator pin is not set.
var ErrAmbiguousOrMissingRole = errors.New("ambiguous or missing role: set exactly one of publisher.identity or aggregator.actuator_pin")

// ResolveRole derives the role from the configuration:
//
//	publisher.identity set, aggregator.actuator_pin unset -> PublisherRole
//	aggregator.actuator_pin set, publisher.identity unset -> AggregatorRole
//
// Every other combination is rejected. It must run before any bus activity.
func ResolveRole(config *Config) (models.Role, error) {
	return resolveRole(config.Aggregator.ActuatorPin, config.Publisher.Identity)
}

func resolveRole(pin, identity string) (models.Role, error) {
	hasPin := pin != ""
	hasIdentity := identity != ""

	switch {
	case hasIdentity && !hasPin:
		return models.PublisherRole{Identity: identity}, nil
	case hasPin && !hasIdentity:
		return models.AggregatorRole{Pin: pin}, nil
	default:
		return nil, ErrAmbiguousOrMissingRole
	}
}
