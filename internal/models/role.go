package models

// Role is the resolved runtime role of an agent instance. It is either
// PublisherRole or AggregatorRole; no other implementations exist.
type Role interface {
	Name() string
	isRole()
}

// PublisherRole samples the local sensor and sends readings to the topic.
type PublisherRole struct {
	Identity string
}

// AggregatorRole folds readings from every publisher and drives the actuator.
type AggregatorRole struct {
	Pin string
}

func (PublisherRole) Name() string  { return "publisher" }
func (AggregatorRole) Name() string { return "aggregator" }

func (PublisherRole) isRole()  {}
func (AggregatorRole) isRole() {}
