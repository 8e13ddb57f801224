package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/facility-scheduler/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using
// SQLite.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewReservationRepository creates a new SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateBatch inserts every reservation in one transaction. The partial
// unique index on (space_id, date, start_hour) rejects any row whose slot is
// already held by a confirmed reservation, rolling back the whole batch.
func (r *ReservationRepository) CreateBatch(ctx context.Context, reservations []persistence.Reservation) error {
	if len(reservations) == 0 {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC().Format(time.RFC3339)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		insert := `
			INSERT INTO reservations
				(id, batch_id, space_id, title, reserved_by, date, start_hour, end_hour, status, memo, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, reservation := range reservations {
			if reservation.ID == "" || reservation.BatchID == "" || reservation.SpaceID == "" {
				return persistence.ErrConstraintViolation
			}
			status := reservation.Status
			if status == "" {
				status = persistence.ReservationStatusConfirmed
			}

			if _, err := r.helper.ExecTx(tx, insert,
				reservation.ID,
				reservation.BatchID,
				reservation.SpaceID,
				reservation.Title,
				reservation.ReservedBy,
				reservation.Date.Format(dateLayout),
				reservation.StartHour,
				reservation.EndHour,
				status,
				reservation.Memo,
				now,
				now,
			); err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
}

// GetReservation retrieves a reservation by ID from the database.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, batch_id, space_id, title, reserved_by, date, start_hour, end_hour, status, memo, created_at, updated_at
		FROM reservations
		WHERE id = ?
	`

	reservation, err := scanReservation(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations matching the filter ordered by date
// then start hour. Cancelled rows are excluded unless the filter asks for
// them.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query := `
		SELECT id, batch_id, space_id, title, reserved_by, date, start_hour, end_hour, status, memo, created_at, updated_at
		FROM reservations
		WHERE 1 = 1
	`
	var args []interface{}

	if len(filter.SpaceIDs) > 0 {
		query += " AND space_id IN (" + placeholders(len(filter.SpaceIDs)) + ")"
		for _, id := range filter.SpaceIDs {
			args = append(args, id)
		}
	}
	if filter.BatchID != "" {
		query += " AND batch_id = ?"
		args = append(args, filter.BatchID)
	}
	if filter.From != nil {
		query += " AND date >= ?"
		args = append(args, filter.From.Format(dateLayout))
	}
	if filter.To != nil {
		query += " AND date <= ?"
		args = append(args, filter.To.Format(dateLayout))
	}
	if !filter.IncludeCancelled {
		query += " AND status = ?"
		args = append(args, persistence.ReservationStatusConfirmed)
	}

	query += " ORDER BY date ASC, start_hour ASC, space_id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return reservations, nil
}

// CancelReservation marks a single occurrence cancelled, freeing its slot.
func (r *ReservationRepository) CancelReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.cancelWhere(ctx, "id = ?", id)
}

// CancelBatch marks every confirmed occurrence of a batch cancelled.
func (r *ReservationRepository) CancelBatch(ctx context.Context, batchID string) error {
	if batchID == "" {
		return persistence.ErrNotFound
	}
	return r.cancelWhere(ctx, "batch_id = ?", batchID)
}

func (r *ReservationRepository) cancelWhere(ctx context.Context, condition string, arg interface{}) error {
	query := fmt.Sprintf(
		"UPDATE reservations SET status = ?, updated_at = ? WHERE %s AND status = ?",
		condition,
	)

	result, err := r.helper.Exec(ctx, query,
		persistence.ReservationStatusCancelled,
		time.Now().UTC().Format(time.RFC3339),
		arg,
		persistence.ReservationStatusConfirmed,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var memo sql.NullString
	var dateStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&reservation.ID,
		&reservation.BatchID,
		&reservation.SpaceID,
		&reservation.Title,
		&reservation.ReservedBy,
		&dateStr,
		&reservation.StartHour,
		&reservation.EndHour,
		&reservation.Status,
		&memo,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}

	if memo.Valid {
		reservation.Memo = &memo.String
	}

	if reservation.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if reservation.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if reservation.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return reservation, nil
}
