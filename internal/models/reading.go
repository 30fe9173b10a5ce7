package models

import "fmt"

// TimeOfDay is the encoder's local wall-clock time carried by the binary wire format.
type TimeOfDay struct {
	Hour   uint32 `json:"hour"`
	Minute uint32 `json:"minute"`
	Second uint32 `json:"second"`
}

// String renders the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Reading is a single temperature sample exchanged over the bus.
type Reading struct {
	PublisherID string     `json:"publisher_id"`
	Temperature float64    `json:"temperature"`
	Time        *TimeOfDay `json:"time,omitempty"` // set only by the binary codec
}
