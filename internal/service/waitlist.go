package service

import (
	"context"

	"github.com/seatflow/seat-coordinator/internal/model"
)

// WaitlistManager exposes the waiting-queue operations: join, leave,
// position lookup and head pop.  It layers one rule on top of the raw
// queue: a connection that holds a seat cannot also wait for one.
type WaitlistManager struct {
	waitlist  WaitlistStore
	occupancy OccupancyStore
}

// NewWaitlistManager wires a manager over the waitlist and occupancy stores.
func NewWaitlistManager(waitlist WaitlistStore, occupancy OccupancyStore) *WaitlistManager {
	return &WaitlistManager{waitlist: waitlist, occupancy: occupancy}
}

// Join appends a connection to the queue and returns its 1-based position.
// Re-joining moves the entry to the tail rather than duplicating it, which
// keeps client retries harmless.  A connection currently holding a seat is
// rejected with ErrAlreadySeated.
func (m *WaitlistManager) Join(ctx context.Context, connectionID, displayName string, partySize int) (int, error) {
	all, err := m.occupancy.All(ctx)
	if err != nil {
		return 0, err
	}
	for _, rec := range all {
		if rec.ConnectionID == connectionID {
			return 0, ErrAlreadySeated
		}
	}
	return m.waitlist.Join(ctx, connectionID, displayName, partySize)
}

// Leave removes a connection from the queue; absence is not an error.
func (m *WaitlistManager) Leave(ctx context.Context, connectionID string) error {
	return m.waitlist.Leave(ctx, connectionID)
}

// Position returns the 1-based position of a connection, or -1 when it is
// not in the queue.
func (m *WaitlistManager) Position(ctx context.Context, connectionID string) (int, error) {
	return m.waitlist.Position(ctx, connectionID)
}

// Length returns how many connections are waiting.
func (m *WaitlistManager) Length(ctx context.Context) (int, error) {
	return m.waitlist.Length(ctx)
}

// PopNext removes and returns the head of the queue, or nil when empty.
func (m *WaitlistManager) PopNext(ctx context.Context) (*model.WaitlistEntry, error) {
	return m.waitlist.PopNext(ctx)
}

// List returns the whole queue in order, for the operator view.
func (m *WaitlistManager) List(ctx context.Context) ([]model.WaitlistEntry, error) {
	return m.waitlist.List(ctx)
}
