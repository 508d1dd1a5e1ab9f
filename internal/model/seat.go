package model

import "time"

// SeatStatus is the administrative state of a seat.  It is independent of
// occupancy: a seat can be administratively available while a guest sits on
// it.  Whether anyone occupies the seat is answered by the occupancy store
// alone.
//
// Values:
//
//	available – the seat may be claimed when nobody occupies it.
//	closed    – the seat is administratively withdrawn (cleaning, repair)
//	            and must never be handed out, occupied or not.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatClosed    SeatStatus = "closed"
)

// Valid reports whether s is one of the recognized status values.
func (s SeatStatus) Valid() bool {
	return s == SeatAvailable || s == SeatClosed
}

// Seat is a durable catalog row describing one physical seat.
//
// Fields:
//
//	ID        – primary key identifier.
//	Label     – the number printed on the table, unique among seats.
//	Status    – administrative status (available/closed).
//	IsActive  – soft-delete flag; inactive seats are invisible everywhere.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Seat struct {
	ID        uint64     `json:"id"`         // seats.id
	Label     uint32     `json:"label"`      // seats.label
	Status    SeatStatus `json:"status"`     // seats.status
	IsActive  bool       `json:"is_active"`  // seats.is_active
	CreatedAt time.Time  `json:"created_at"` // seats.created_at
	UpdatedAt time.Time  `json:"updated_at"` // seats.updated_at
}

// SeatWithOccupancy annotates a catalog seat with its live occupancy record,
// if any.  This is the shape the operator view receives: the durable seat
// plus who is sitting there right now.
type SeatWithOccupancy struct {
	Seat
	Occupied  bool             `json:"occupied"`
	Occupancy *OccupancyRecord `json:"occupancy,omitempty"`
}

// Statistics is the aggregate seat view broadcast to every connection.  It is
// always derived on demand, never stored.  Available, Occupied and Closed
// partition the active seats, so Available+Occupied+Closed == Total.
type Statistics struct {
	Total      int `json:"total"`
	Available  int `json:"available"`
	Occupied   int `json:"occupied"`
	Closed     int `json:"closed"`
	Waitlisted int `json:"waitlisted"`
}
