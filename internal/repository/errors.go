// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// allocator service and the gateway to distinguish between different
// failure scenarios. For example, ErrSeatOccupied indicates that a claim
// lost the race for a seat and should surface as a conflict, while
// ErrSeatNotFound maps to a 404 at the HTTP edge.
package repository

import "errors"

// ErrSeatNotFound is returned when a seat lookup yields no active row.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatExists is returned when creating a seat whose label is already
// taken by an active seat. Handlers should translate this into an HTTP
// 409 response.
var ErrSeatExists = errors.New("seat label already exists")

// ErrSeatOccupied is returned when an occupancy record already exists for
// the seat being claimed. Exactly one of any set of concurrent claims on
// the same seat succeeds; the rest observe this error.
var ErrSeatOccupied = errors.New("seat already occupied")
