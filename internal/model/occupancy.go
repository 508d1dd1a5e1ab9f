package model

import "time"

// OccupancyRecord is the ephemeral proof that one connection currently holds
// one seat.  The record lives in Redis under occupied:<seatID>; its mere
// existence means "taken" and its absence means "free".  The catalog carries
// no occupancy flag of its own, so the two stores can never disagree about
// who holds a seat.
//
// Records are created atomically at claim time and destroyed on release,
// whether the guest left voluntarily or simply vanished.
type OccupancyRecord struct {
	SeatID       uint64    `json:"seat_id"`
	ConnectionID string    `json:"connection_id"`
	DisplayName  string    `json:"display_name,omitempty"`
	ClaimedAt    time.Time `json:"claimed_at"`
}
