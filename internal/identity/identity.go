package identity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/benmeehan/thermo-agent/internal/constants"
	"github.com/benmeehan/thermo-agent/internal/models"
)

// ClientID returns the bus client id for a role. Publishers connect under
// their identity so the broker sees one session per publisher; the
// aggregator uses the explicit id when given and a fresh unique id otherwise.
func ClientID(role models.Role, explicit string) (string, error) {
	switch r := role.(type) {
	case models.PublisherRole:
		if explicit != "" {
			return explicit, nil
		}
		return r.Identity, nil
	case models.AggregatorRole:
		if explicit != "" {
			return explicit, nil
		}
		return NewAggregatorID(), nil
	default:
		return "", fmt.Errorf("unsupported role %T", role)
	}
}

// NewAggregatorID generates a unique aggregator client id.
func NewAggregatorID() string {
	return fmt.Sprintf("%s-%s", constants.AggregatorClientIDPrefix, uuid.NewString())
}
