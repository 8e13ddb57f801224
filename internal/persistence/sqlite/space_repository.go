package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/facility-scheduler/internal/persistence"
)

const dateLayout = "2006-01-02"

// SpaceRepository implements persistence.SpaceRepository using SQLite.
type SpaceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSpaceRepository creates a new SQLite space repository.
func NewSpaceRepository(pool *ConnectionPool) *SpaceRepository {
	return &SpaceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSpace inserts a new space into the database.
func (r *SpaceRepository) CreateSpace(ctx context.Context, space persistence.Space) error {
	if space.ID == "" || space.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	space.CreatedAt = now
	space.UpdatedAt = now

	query := `
		INSERT INTO spaces (id, name, location, capacity, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		space.ID,
		space.Name,
		space.Location,
		space.Capacity,
		space.Description,
		space.CreatedAt.Format(time.RFC3339),
		space.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdateSpace updates an existing space in the database.
func (r *SpaceRepository) UpdateSpace(ctx context.Context, space persistence.Space) error {
	if space.ID == "" || space.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	space.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE spaces
		SET name = ?, location = ?, capacity = ?, description = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		space.Name,
		space.Location,
		space.Capacity,
		space.Description,
		space.UpdatedAt.Format(time.RFC3339),
		space.ID,
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

// GetSpace retrieves a space by ID from the database.
func (r *SpaceRepository) GetSpace(ctx context.Context, id string) (persistence.Space, error) {
	if id == "" {
		return persistence.Space{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, location, capacity, description, created_at, updated_at
		FROM spaces
		WHERE id = ?
	`

	space, err := scanSpace(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Space{}, r.mapper.MapError(err)
	}
	return space, nil
}

// ListSpaces returns all spaces ordered by name then ID.
func (r *SpaceRepository) ListSpaces(ctx context.Context) ([]persistence.Space, error) {
	query := `
		SELECT id, name, location, capacity, description, created_at, updated_at
		FROM spaces
		ORDER BY name ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var spaces []persistence.Space
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		spaces = append(spaces, space)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return spaces, nil
}

// DeleteSpace removes a space by ID. Availability windows cascade; the
// delete fails with a foreign key violation while reservations or rentals
// still reference the space.
func (r *SpaceRepository) DeleteSpace(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM spaces WHERE id = ?", id)
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

// ReplaceWindows atomically swaps the full availability window set for a
// space.
func (r *SpaceRepository) ReplaceWindows(ctx context.Context, spaceID string, windows []persistence.AvailabilityWindow) error {
	if spaceID == "" {
		return persistence.ErrNotFound
	}

	now := time.Now().UTC().Format(time.RFC3339)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow("SELECT COUNT(1) FROM spaces WHERE id = ?", spaceID).Scan(&exists); err != nil {
			return r.mapper.MapError(err)
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}

		if _, err := r.helper.ExecTx(tx, "DELETE FROM availability_windows WHERE space_id = ?", spaceID); err != nil {
			return r.mapper.MapError(err)
		}

		insert := `
			INSERT INTO availability_windows (id, space_id, weekday, start_hour, end_hour, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		for _, window := range windows {
			if _, err := r.helper.ExecTx(tx, insert,
				window.ID,
				spaceID,
				int(window.Weekday),
				window.StartHour,
				window.EndHour,
				now,
				now,
			); err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
}

// ListWindows returns availability windows for the given spaces, or for all
// spaces when the filter is empty, ordered by space then weekday then start.
func (r *SpaceRepository) ListWindows(ctx context.Context, spaceIDs []string) ([]persistence.AvailabilityWindow, error) {
	query := `
		SELECT id, space_id, weekday, start_hour, end_hour, created_at, updated_at
		FROM availability_windows
	`
	var args []interface{}
	if len(spaceIDs) > 0 {
		query += " WHERE space_id IN (" + placeholders(len(spaceIDs)) + ")"
		for _, id := range spaceIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY space_id ASC, weekday ASC, start_hour ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var windows []persistence.AvailabilityWindow
	for rows.Next() {
		var window persistence.AvailabilityWindow
		var weekday int
		var createdAtStr, updatedAtStr string

		if err := rows.Scan(
			&window.ID,
			&window.SpaceID,
			&weekday,
			&window.StartHour,
			&window.EndHour,
			&createdAtStr,
			&updatedAtStr,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}

		window.Weekday = time.Weekday(weekday)
		if window.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if window.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return windows, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSpace(row rowScanner) (persistence.Space, error) {
	var space persistence.Space
	var location sql.NullString
	var description sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&space.ID,
		&space.Name,
		&location,
		&space.Capacity,
		&description,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Space{}, err
	}

	if location.Valid {
		space.Location = location.String
	}
	if description.Valid {
		space.Description = &description.String
	}

	if space.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Space{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if space.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Space{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return space, nil
}

// placeholders returns n comma separated SQL placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}
