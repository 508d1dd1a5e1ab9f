package repository // repository defines data access for the seat catalog

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel comparison
	"strings"      // strings inspects driver error text for duplicate keys

	"github.com/seatflow/seat-coordinator/internal/model"
)

// SeatRepo provides methods to work with the seats table.  The catalog is
// authoritative for seat existence and activity; it knows nothing about
// occupancy, which lives in the occupancy store.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, label, status, is_active, created_at, updated_at`

func scanSeat(row interface{ Scan(...any) error }) (*model.Seat, error) {
	var s model.Seat
	if err := row.Scan(&s.ID, &s.Label, &s.Status, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a seat with the given label and administrative status.
// Because soft deletion keeps the row, a label maps to at most one row over
// its whole life: creating a label that belongs to a soft-deleted seat
// reactivates that same row (resetting its status) instead of inserting a
// duplicate.  Creating a label held by an active seat returns ErrSeatExists.
func (r *SeatRepo) Create(ctx context.Context, label uint32, status model.SeatStatus) (*model.Seat, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Look for an existing row with this label, active or not.
	var id uint64
	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT id, is_active FROM seats WHERE label = ?`, label,
	).Scan(&id, &active)
	switch {
	case err == nil && active:
		return nil, ErrSeatExists
	case err == nil:
		// Resurrect the soft-deleted row with a fresh status.
		if _, err = tx.ExecContext(ctx,
			`UPDATE seats SET status = ?, is_active = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), id,
		); err != nil {
			return nil, err
		}
	case errors.Is(err, sql.ErrNoRows):
		res, insErr := tx.ExecContext(ctx,
			`INSERT INTO seats (label, status) VALUES (?, ?)`, label, string(status))
		if insErr != nil {
			// 1062 = duplicate key; a concurrent create won the insert race.
			if strings.Contains(insErr.Error(), "1062") {
				return nil, ErrSeatExists
			}
			return nil, insErr
		}
		newID, idErr := res.LastInsertId()
		if idErr != nil {
			return nil, idErr
		}
		id = uint64(newID)
	default:
		return nil, err
	}

	seat, err := scanSeat(tx.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return seat, nil
}

// ListActive retrieves all active seats ordered by label.
func (r *SeatRepo) ListActive(ctx context.Context) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE is_active = 1 ORDER BY label`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID retrieves an active seat by its id.  Soft-deleted seats are
// reported as ErrSeatNotFound just like missing rows.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE id = ? AND is_active = 1`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return s, nil
}

// Update rewrites label and status of an active seat.  Callers pass the
// complete desired values; partial-update merging happens in the service
// layer which has already loaded the current row.
func (r *SeatRepo) Update(ctx context.Context, id uint64, label uint32, status model.SeatStatus) (*model.Seat, error) {
	const q = `UPDATE seats
	           SET label = ?, status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND is_active = 1`
	if _, err := r.db.ExecContext(ctx, q, label, string(status), id); err != nil {
		if strings.Contains(err.Error(), "1062") {
			return nil, ErrSeatExists
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SoftDelete marks a seat inactive and returns the final row state.  The
// seat's occupancy record, if any, is intentionally untouched here; the
// operator is expected to release the seat first.
func (r *SeatRepo) SoftDelete(ctx context.Context, id uint64) (*model.Seat, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSeatNotFound
	}
	// Read back including the now-inactive row.
	s, err := scanSeat(r.db.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return s, nil
}
