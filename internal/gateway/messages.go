package gateway

import (
	"encoding/json"

	"github.com/seatflow/seat-coordinator/internal/model"
)

// Client-to-server event names.
const (
	evRequestSeat           = "requestSeat"
	evLeaveSeat             = "leaveSeat"
	evGetQueueStatus        = "getQueueStatus"
	evGetMerchantSeatStatus = "getMerchantSeatStatus"
)

// Server-to-client event names.
const (
	evSeatAssigned       = "seatAssigned"
	evNeedQueue          = "needQueue"
	evSeatReleased       = "seatReleased"
	evQueueStatus        = "queueStatus"
	evSeatStatus         = "seatStatus"
	evQueueUpdate        = "queueUpdate"
	evMerchantSeatStatus = "merchantSeatStatus"
	evMerchantSeatUpdate = "merchantSeatUpdate"
	evError              = "error"
)

// Envelope frames every websocket message in both directions: an event name
// plus an event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// requestSeatData is the payload of a requestSeat command.
type requestSeatData struct {
	DisplayName string `json:"displayName,omitempty"`
}

// seatAssignedData tells a single connection which seat it was given.
type seatAssignedData struct {
	SeatLabel uint32 `json:"seatLabel"`
	SeatID    uint64 `json:"seatId"`
}

// needQueueData tells a requester that no seat was free and where it landed
// in the queue.
type needQueueData struct {
	Position    int `json:"position"`
	QueueLength int `json:"queueLength"`
}

// queueStatusData answers a getQueueStatus request.  Position and
// QueueLength are only meaningful when InQueue is true.
type queueStatusData struct {
	InQueue     bool `json:"inQueue"`
	Position    int  `json:"position,omitempty"`
	QueueLength int  `json:"queueLength,omitempty"`
}

// seatStatusData is the aggregate broadcast every connection receives on
// every state change.
type seatStatusData struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Occupied    int `json:"occupied"`
	Closed      int `json:"closed"`
	QueueLength int `json:"queueLength"`
}

// queueUpdateData is sent individually to each still-waiting connection
// after a drain so everyone sees their fresh position.
type queueUpdateData struct {
	Position    int `json:"position"`
	QueueLength int `json:"queueLength"`
}

// merchantStatusData is the operator view: the full annotated seat list and
// the full waitlist, not just aggregates.
type merchantStatusData struct {
	Seats      []model.SeatWithOccupancy `json:"seats"`
	Statistics model.Statistics          `json:"statistics"`
	QueueList  []model.WaitlistEntry     `json:"queueList"`
	Timestamp  string                    `json:"timestamp"`
}

// errorData is surfaced to the originating connection only; errors never
// interrupt broadcasts to anyone else.
type errorData struct {
	Message string `json:"message"`
}

func mustEnvelope(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	out, _ := json.Marshal(Envelope{Event: event, Data: raw})
	return out
}

func statsPayload(stats model.Statistics) seatStatusData {
	return seatStatusData{
		Total:       stats.Total,
		Available:   stats.Available,
		Occupied:    stats.Occupied,
		Closed:      stats.Closed,
		QueueLength: stats.Waitlisted,
	}
}
