package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seatflow/seat-coordinator/internal/model"
)

// waitlistKey holds the FIFO order of waiting connections (a Redis list of
// connection ids).  Per-entry metadata lives beside it under
// waitinfo:<connectionID> so the list stays cheap to scan.
const (
	waitlistKey       = "seat:queue"
	waitinfoKeyPrefix = "waitinfo:"
)

func waitinfoKey(connectionID string) string {
	return waitinfoKeyPrefix + connectionID
}

// WaitlistRepo is the ordered queue of parties waiting for a seat.  Order is
// strictly arrival order; the only mutations are push-to-tail, pop-from-head
// and removal of an arbitrary entry.
type WaitlistRepo struct {
	rdb *redis.Client
}

// NewWaitlistRepo returns a WaitlistRepo bound to the given Redis client.
func NewWaitlistRepo(rdb *redis.Client) *WaitlistRepo {
	return &WaitlistRepo{rdb: rdb}
}

// Join appends a connection to the tail and stores its metadata, returning
// the 1-based position.  A connection already present is removed first, so
// client retries never duplicate an entry; the retried join lands at the
// tail.
func (r *WaitlistRepo) Join(ctx context.Context, connectionID, displayName string, partySize int) (int, error) {
	if partySize < 1 {
		partySize = 1
	}
	entry := model.WaitlistEntry{
		ConnectionID: connectionID,
		DisplayName:  displayName,
		PartySize:    partySize,
		JoinedAt:     time.Now().UTC(),
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return 0, err
	}
	if err := r.rdb.LRem(ctx, waitlistKey, 0, connectionID).Err(); err != nil {
		return 0, err
	}
	length, err := r.rdb.RPush(ctx, waitlistKey, connectionID).Result()
	if err != nil {
		return 0, err
	}
	if err := r.rdb.Set(ctx, waitinfoKey(connectionID), body, 0).Err(); err != nil {
		return 0, err
	}
	return int(length), nil
}

// Leave removes a connection from the queue.  Absence is not an error, so
// the operation is safe to call for connections in any state.
func (r *WaitlistRepo) Leave(ctx context.Context, connectionID string) error {
	if err := r.rdb.LRem(ctx, waitlistKey, 0, connectionID).Err(); err != nil {
		return err
	}
	return r.rdb.Del(ctx, waitinfoKey(connectionID)).Err()
}

// Position returns the 1-based queue position of a connection, or -1 when it
// is not waiting.  A linear scan is fine here: the queue is bounded by how
// many people fit in the doorway, not by the internet.
func (r *WaitlistRepo) Position(ctx context.Context, connectionID string) (int, error) {
	ids, err := r.rdb.LRange(ctx, waitlistKey, 0, -1).Result()
	if err != nil {
		return -1, err
	}
	for i, id := range ids {
		if id == connectionID {
			return i + 1, nil
		}
	}
	return -1, nil
}

// Length returns the number of waiting connections.
func (r *WaitlistRepo) Length(ctx context.Context) (int, error) {
	n, err := r.rdb.LLen(ctx, waitlistKey).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// PopNext removes and returns the head entry, or nil when the queue is
// empty.  LPOP is a single command, so concurrent pops always hand out
// distinct entries.
func (r *WaitlistRepo) PopNext(ctx context.Context) (*model.WaitlistEntry, error) {
	connectionID, err := r.rdb.LPop(ctx, waitlistKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	entry, err := r.loadEntry(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.Del(ctx, waitinfoKey(connectionID)).Err(); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns the full queue in order, for the operator view.
func (r *WaitlistRepo) List(ctx context.Context) ([]model.WaitlistEntry, error) {
	ids, err := r.rdb.LRange(ctx, waitlistKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]model.WaitlistEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := r.loadEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// loadEntry fetches waitinfo metadata for a connection.  A missing metadata
// key degrades to a bare entry rather than failing the whole read.
func (r *WaitlistRepo) loadEntry(ctx context.Context, connectionID string) (*model.WaitlistEntry, error) {
	raw, err := r.rdb.Get(ctx, waitinfoKey(connectionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &model.WaitlistEntry{ConnectionID: connectionID, PartySize: 1}, nil
		}
		return nil, err
	}
	var entry model.WaitlistEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
