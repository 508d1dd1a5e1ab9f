// Package queue defines message payloads exchanged over the message broker
// plus the publisher and consumer for the seat.events stream.
package queue

// Event type values carried in SeatEvent.Type.
const (
	EventSeatClaimed  = "seat.claimed"
	EventSeatReleased = "seat.released"
	EventQueueJoined  = "queue.joined"
	EventQueueLeft    = "queue.left"
)

// SeatEvent is published on every seat lifecycle change.  It carries enough
// information for downstream consumers to log, notify, or feed analytics
// without querying the primary stores.
type SeatEvent struct {
	Type         string `json:"type"`
	SeatID       uint64 `json:"seat_id,omitempty"`
	SeatLabel    uint32 `json:"seat_label,omitempty"`
	ConnectionID string `json:"connection_id"`
	DisplayName  string `json:"display_name,omitempty"`
	QueueLength  int    `json:"queue_length,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}
