// Package service implements the seat allocation core: claiming a free seat
// for a connection, releasing it on departure or disconnect, and deriving
// the aggregate view everyone watches.  The package depends only on small
// store interfaces so the Redis- and MySQL-backed repositories can be
// swapped for in-memory fakes in tests.
package service

import (
	"context"
	"errors"

	"github.com/seatflow/seat-coordinator/internal/model"
	"github.com/seatflow/seat-coordinator/internal/repository"
)

// ErrAlreadySeated is returned when a connection that currently holds a seat
// tries to join the waitlist.  A connection is seated or waiting, never both.
var ErrAlreadySeated = errors.New("connection already holds a seat")

// SeatCatalog is the durable seat store.  The catalog is authoritative for
// seat existence and activity.
type SeatCatalog interface {
	Create(ctx context.Context, label uint32, status model.SeatStatus) (*model.Seat, error)
	ListActive(ctx context.Context) ([]model.Seat, error)
	GetByID(ctx context.Context, id uint64) (*model.Seat, error)
	Update(ctx context.Context, id uint64, label uint32, status model.SeatStatus) (*model.Seat, error)
	SoftDelete(ctx context.Context, id uint64) (*model.Seat, error)
}

// OccupancyStore is the ephemeral holder-of-record store.  It is
// authoritative for who currently occupies a seat.
type OccupancyStore interface {
	Claim(ctx context.Context, seatID uint64, connectionID, displayName string) (*model.OccupancyRecord, error)
	Get(ctx context.Context, seatID uint64) (*model.OccupancyRecord, error)
	Release(ctx context.Context, seatID uint64) (bool, error)
	ReleaseByConnection(ctx context.Context, connectionID string) (*model.OccupancyRecord, error)
	All(ctx context.Context) (map[uint64]model.OccupancyRecord, error)
}

// WaitlistStore is the FIFO queue of waiting connections.
type WaitlistStore interface {
	Join(ctx context.Context, connectionID, displayName string, partySize int) (int, error)
	Leave(ctx context.Context, connectionID string) error
	Position(ctx context.Context, connectionID string) (int, error)
	Length(ctx context.Context) (int, error)
	PopNext(ctx context.Context) (*model.WaitlistEntry, error)
	List(ctx context.Context) ([]model.WaitlistEntry, error)
}

// SeatAllocator coordinates the catalog, the occupancy store and the
// waitlist.  It owns every rule about which seats may be handed out and
// keeps the invariant that a connection is in at most one of
// {seated, waiting}.
type SeatAllocator struct {
	catalog   SeatCatalog
	occupancy OccupancyStore
	waitlist  WaitlistStore
}

// NewSeatAllocator wires an allocator over the three stores.
func NewSeatAllocator(catalog SeatCatalog, occupancy OccupancyStore, waitlist WaitlistStore) *SeatAllocator {
	return &SeatAllocator{catalog: catalog, occupancy: occupancy, waitlist: waitlist}
}

// CreateSeat adds a seat to the catalog.  An empty status defaults to
// available.  Duplicate active labels yield repository.ErrSeatExists; a
// soft-deleted label is resurrected instead.
func (a *SeatAllocator) CreateSeat(ctx context.Context, label uint32, status model.SeatStatus) (*model.Seat, error) {
	if status == "" {
		status = model.SeatAvailable
	}
	return a.catalog.Create(ctx, label, status)
}

// ListSeats returns all active seats ordered by label.
func (a *SeatAllocator) ListSeats(ctx context.Context) ([]model.Seat, error) {
	return a.catalog.ListActive(ctx)
}

// ListAvailableSeats returns the seats that can be claimed right now:
// active, administratively available and without an occupancy record.
// Closed seats are excluded even when nobody sits on them.
func (a *SeatAllocator) ListAvailableSeats(ctx context.Context) ([]model.Seat, error) {
	seats, err := a.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	occupied, err := a.occupancy.All(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]model.Seat, 0, len(seats))
	for _, s := range seats {
		if s.Status != model.SeatAvailable {
			continue
		}
		if _, taken := occupied[s.ID]; taken {
			continue
		}
		available = append(available, s)
	}
	return available, nil
}

// GetSeat returns one active seat by id.
func (a *SeatAllocator) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	return a.catalog.GetByID(ctx, id)
}

// SeatStatus resolves a seat together with its live occupancy, if any.
func (a *SeatAllocator) SeatStatus(ctx context.Context, id uint64) (*model.SeatWithOccupancy, error) {
	seat, err := a.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := a.occupancy.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.SeatWithOccupancy{Seat: *seat, Occupied: rec != nil, Occupancy: rec}, nil
}

// Claim hands a seat to a connection.  The catalog check rejects missing,
// inactive and closed seats; the occupancy store's conditional create then
// decides the race, so two concurrent claims on the same seat produce
// exactly one winner.  On success any waitlist entry of the claimer is
// removed — the waitlist removal comes last so a failed claim never touches
// the queue.
func (a *SeatAllocator) Claim(ctx context.Context, seatID uint64, connectionID, displayName string) (*model.Seat, error) {
	seat, err := a.catalog.GetByID(ctx, seatID)
	if err != nil {
		return nil, err
	}
	if seat.Status != model.SeatAvailable {
		return nil, repository.ErrSeatOccupied
	}
	if _, err := a.occupancy.Claim(ctx, seatID, connectionID, displayName); err != nil {
		return nil, err
	}
	if err := a.waitlist.Leave(ctx, connectionID); err != nil {
		// The seat is claimed; a stale waitlist entry is the lesser evil
		// compared to revoking the claim.  The next drain discards it.
		return seat, nil
	}
	return seat, nil
}

// SeatByConnection resolves the seat a connection currently holds, or nil
// when it holds nothing.  The gateway consults this before assigning a seat
// so a retried request re-confirms the existing assignment instead of
// handing the same connection a second seat.
func (a *SeatAllocator) SeatByConnection(ctx context.Context, connectionID string) (*model.Seat, error) {
	all, err := a.occupancy.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if rec.ConnectionID != connectionID {
			continue
		}
		seat, err := a.catalog.GetByID(ctx, rec.SeatID)
		if err != nil {
			if errors.Is(err, repository.ErrSeatNotFound) {
				// Orphaned record for a soft-deleted seat; it does not
				// count as a held assignment.
				return nil, nil
			}
			return nil, err
		}
		return seat, nil
	}
	return nil, nil
}

// Release frees a seat regardless of who holds it and returns the seat.
// Releasing a free seat is a no-op.
func (a *SeatAllocator) Release(ctx context.Context, seatID uint64) (*model.Seat, error) {
	seat, err := a.catalog.GetByID(ctx, seatID)
	if err != nil {
		return nil, err
	}
	if _, err := a.occupancy.Release(ctx, seatID); err != nil {
		return nil, err
	}
	return seat, nil
}

// ReleaseByConnection frees whatever seat the connection holds and returns
// it, or nil when the connection held nothing.  This is the disconnect
// path, where only the connection identity is known.
func (a *SeatAllocator) ReleaseByConnection(ctx context.Context, connectionID string) (*model.Seat, error) {
	rec, err := a.occupancy.ReleaseByConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	seat, err := a.catalog.GetByID(ctx, rec.SeatID)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			// The seat was soft-deleted while occupied; the record was an
			// orphan and freeing it creates no new capacity.
			return nil, nil
		}
		return nil, err
	}
	return seat, nil
}

// Statistics derives the aggregate seat counts.  Active seats partition
// into occupied, closed and available; the waitlist length rides along so a
// single payload answers the whole floor-state question.
func (a *SeatAllocator) Statistics(ctx context.Context) (*model.Statistics, error) {
	seats, err := a.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	occupied, err := a.occupancy.All(ctx)
	if err != nil {
		return nil, err
	}
	waiting, err := a.waitlist.Length(ctx)
	if err != nil {
		return nil, err
	}
	stats := model.Statistics{Total: len(seats), Waitlisted: waiting}
	for _, s := range seats {
		if _, ok := occupied[s.ID]; ok {
			stats.Occupied++
		} else if s.Status == model.SeatClosed {
			stats.Closed++
		} else {
			stats.Available++
		}
	}
	return &stats, nil
}

// UpdateSeat applies a partial update.  Nil fields keep their current
// values.  Label collisions surface as repository.ErrSeatExists.
func (a *SeatAllocator) UpdateSeat(ctx context.Context, id uint64, label *uint32, status *model.SeatStatus) (*model.Seat, error) {
	current, err := a.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	newLabel := current.Label
	if label != nil {
		newLabel = *label
	}
	newStatus := current.Status
	if status != nil {
		newStatus = *status
	}
	return a.catalog.Update(ctx, id, newLabel, newStatus)
}

// UpdateStatus flips only the administrative status of a seat.
func (a *SeatAllocator) UpdateStatus(ctx context.Context, id uint64, status model.SeatStatus) (*model.Seat, error) {
	return a.UpdateSeat(ctx, id, nil, &status)
}

// SoftDelete deactivates a seat.  It succeeds even when the seat is
// occupied — an administrative override — and deliberately leaves the
// occupancy record in place; operators are expected to release first.
func (a *SeatAllocator) SoftDelete(ctx context.Context, id uint64) (*model.Seat, error) {
	return a.catalog.SoftDelete(ctx, id)
}

// SeatsWithStatus returns every active seat annotated with its occupancy
// record, ordered by label.  This is the operator's full-floor view.
func (a *SeatAllocator) SeatsWithStatus(ctx context.Context) ([]model.SeatWithOccupancy, error) {
	seats, err := a.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	occupied, err := a.occupancy.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.SeatWithOccupancy, 0, len(seats))
	for _, s := range seats {
		item := model.SeatWithOccupancy{Seat: s}
		if rec, ok := occupied[s.ID]; ok {
			r := rec
			item.Occupied = true
			item.Occupancy = &r
		}
		out = append(out, item)
	}
	return out, nil
}
