package api

import (
	"time"

	"venueexec/internal/model"
)

// StreamEvent is one order state transition broadcast over /stream.
type StreamEvent struct {
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	COI       int64     `json:"coi"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Info      map[string]any `json:"info,omitempty"`
}

// NewStreamEvent adapts an order-service transition into a StreamEvent.
func NewStreamEvent(id model.Identity, evt model.Event) StreamEvent {
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return StreamEvent{
		Venue:     id.Venue,
		Symbol:    string(id.Symbol),
		COI:       id.COI,
		State:     string(evt.State),
		Timestamp: ts,
		Info:      evt.Info,
	}
}
