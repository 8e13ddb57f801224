package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/facility-scheduler/internal/persistence"
)

// RentalRepository implements persistence.RentalRepository using SQLite.
type RentalRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRentalRepository creates a new SQLite rental repository.
func NewRentalRepository(pool *ConnectionPool) *RentalRepository {
	return &RentalRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRental inserts a new external rental entry into the database.
func (r *RentalRepository) CreateRental(ctx context.Context, rental persistence.Rental) error {
	if rental.ID == "" || rental.SpaceID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO external_rentals (id, space_id, renter, date, start_hour, end_hour, memo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		rental.ID,
		rental.SpaceID,
		rental.Renter,
		rental.Date.Format(dateLayout),
		rental.StartHour,
		rental.EndHour,
		rental.Memo,
		now,
		now,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetRental retrieves a rental by ID from the database.
func (r *RentalRepository) GetRental(ctx context.Context, id string) (persistence.Rental, error) {
	if id == "" {
		return persistence.Rental{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, space_id, renter, date, start_hour, end_hour, memo, created_at, updated_at
		FROM external_rentals
		WHERE id = ?
	`

	rental, err := scanRental(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Rental{}, r.mapper.MapError(err)
	}
	return rental, nil
}

// ListRentals returns rentals matching the filter ordered by date then start
// hour.
func (r *RentalRepository) ListRentals(ctx context.Context, filter persistence.RentalFilter) ([]persistence.Rental, error) {
	query := `
		SELECT id, space_id, renter, date, start_hour, end_hour, memo, created_at, updated_at
		FROM external_rentals
		WHERE 1 = 1
	`
	var args []interface{}

	if len(filter.SpaceIDs) > 0 {
		query += " AND space_id IN (" + placeholders(len(filter.SpaceIDs)) + ")"
		for _, id := range filter.SpaceIDs {
			args = append(args, id)
		}
	}
	if filter.From != nil {
		query += " AND date >= ?"
		args = append(args, filter.From.Format(dateLayout))
	}
	if filter.To != nil {
		query += " AND date <= ?"
		args = append(args, filter.To.Format(dateLayout))
	}

	query += " ORDER BY date ASC, start_hour ASC, space_id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rentals []persistence.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rentals = append(rentals, rental)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rentals, nil
}

// DeleteRental removes a rental by ID from the database.
func (r *RentalRepository) DeleteRental(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM external_rentals WHERE id = ?", id)
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

func scanRental(row rowScanner) (persistence.Rental, error) {
	var rental persistence.Rental
	var memo sql.NullString
	var dateStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&rental.ID,
		&rental.SpaceID,
		&rental.Renter,
		&dateStr,
		&rental.StartHour,
		&rental.EndHour,
		&memo,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Rental{}, err
	}

	if memo.Valid {
		rental.Memo = &memo.String
	}

	if rental.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return persistence.Rental{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if rental.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Rental{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rental.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Rental{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return rental, nil
}
