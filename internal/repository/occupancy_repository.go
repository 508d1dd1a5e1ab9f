package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seatflow/seat-coordinator/internal/model"
)

// occupiedKeyPrefix namespaces occupancy records in the shared Redis
// instance.  One key per occupied seat; absence of the key means the seat
// is free.
const occupiedKeyPrefix = "occupied:"

func occupiedKey(seatID uint64) string {
	return occupiedKeyPrefix + strconv.FormatUint(seatID, 10)
}

// OccupancyRepo stores who currently sits where.  All knowledge about
// occupancy goes through this type; it is the single source of truth for
// "is this seat taken".  Keys carry no TTL — disconnect handling in the
// gateway is the cleanup path, and the records must survive coordinator
// restarts so seated guests are not forgotten.
type OccupancyRepo struct {
	rdb *redis.Client
}

// NewOccupancyRepo returns an OccupancyRepo bound to the given Redis client.
func NewOccupancyRepo(rdb *redis.Client) *OccupancyRepo {
	return &OccupancyRepo{rdb: rdb}
}

// Claim creates the occupancy record for a seat if and only if none exists.
// SET NX makes the existence check and the write a single atomic step, so
// two concurrent claims on the same seat resolve to exactly one winner; the
// loser receives ErrSeatOccupied.
func (r *OccupancyRepo) Claim(ctx context.Context, seatID uint64, connectionID, displayName string) (*model.OccupancyRecord, error) {
	rec := model.OccupancyRecord{
		SeatID:       seatID,
		ConnectionID: connectionID,
		DisplayName:  displayName,
		ClaimedAt:    time.Now().UTC(),
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	ok, err := r.rdb.SetNX(ctx, occupiedKey(seatID), body, 0).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSeatOccupied
	}
	return &rec, nil
}

// Get returns the occupancy record for a seat, or nil when the seat is free.
func (r *OccupancyRepo) Get(ctx context.Context, seatID uint64) (*model.OccupancyRecord, error) {
	raw, err := r.rdb.Get(ctx, occupiedKey(seatID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var rec model.OccupancyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Release deletes the occupancy record for a seat.  It reports whether a
// record existed, so callers can tell a real release from a no-op.
func (r *OccupancyRepo) Release(ctx context.Context, seatID uint64) (bool, error) {
	n, err := r.rdb.Del(ctx, occupiedKey(seatID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseByConnection scans occupancy for a record held by the given
// connection and deletes it.  It returns the removed record, or nil when
// the connection held nothing.  Used on disconnect, where only the
// connection identity is known.
func (r *OccupancyRepo) ReleaseByConnection(ctx context.Context, connectionID string) (*model.OccupancyRecord, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if rec.ConnectionID == connectionID {
			if _, err := r.Release(ctx, rec.SeatID); err != nil {
				return nil, err
			}
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

// All returns every occupancy record keyed by seat id.  The result feeds the
// operator view and the statistics computation.
func (r *OccupancyRepo) All(ctx context.Context) (map[uint64]model.OccupancyRecord, error) {
	result := make(map[uint64]model.OccupancyRecord)
	iter := r.rdb.Scan(ctx, 0, occupiedKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := r.rdb.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue // released between scan and get
			}
			return nil, err
		}
		var rec model.OccupancyRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		if rec.SeatID == 0 {
			// Fall back to the key when an old record omitted the seat id.
			if id, convErr := strconv.ParseUint(strings.TrimPrefix(key, occupiedKeyPrefix), 10, 64); convErr == nil {
				rec.SeatID = id
			}
		}
		result[rec.SeatID] = rec
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
