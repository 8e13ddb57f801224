package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/facility-scheduler/internal/persistence"
)

// SpaceRepository captures the persistence operations needed by the service.
type SpaceRepository interface {
	CreateSpace(ctx context.Context, space Space) (Space, error)
	GetSpace(ctx context.Context, id string) (Space, error)
	UpdateSpace(ctx context.Context, space Space) (Space, error)
	DeleteSpace(ctx context.Context, id string) error
	ListSpaces(ctx context.Context) ([]Space, error)
	ReplaceWindows(ctx context.Context, spaceID string, windows []AvailabilityWindow) error
	ListWindows(ctx context.Context, spaceIDs []string) ([]AvailabilityWindow, error)
}

// SpaceService orchestrates validation, authorization, and persistence for
// the space catalog and its availability windows.
type SpaceService struct {
	spaces           SpaceRepository
	idGenerator      func() string
	now              func() time.Time
	onWindowsChanged func()
	logger           *slog.Logger
}

// NewSpaceService constructs a space service with the provided dependencies.
// onWindowsChanged runs after every successful window mutation; wiring hooks
// it to the reservation service's window cache invalidation.
func NewSpaceService(spaces SpaceRepository, idGenerator func() string, now func() time.Time, onWindowsChanged func(), logger *slog.Logger) *SpaceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if onWindowsChanged == nil {
		onWindowsChanged = func() {}
	}
	return &SpaceService{
		spaces:           spaces,
		idGenerator:      idGenerator,
		now:              now,
		onWindowsChanged: onWindowsChanged,
		logger:           defaultLogger(logger),
	}
}

func (s *SpaceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SpaceService", operation, attrs...)
}

// CreateSpace validates input and persists a new space for administrators.
func (s *SpaceService) CreateSpace(ctx context.Context, params CreateSpaceParams) (space Space, err error) {
	if s == nil {
		err = fmt.Errorf("SpaceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSpace", "actor", params.Principal.Actor)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create space", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("space_id", space.ID).InfoContext(ctx, "space created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateSpaceInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	space = Space{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(params.Input.Name),
		Location:    strings.TrimSpace(params.Input.Location),
		Capacity:    params.Input.Capacity,
		Description: normalizeOptionalString(params.Input.Description),
		CreatedAt:   s.now(),
	}
	space.UpdatedAt = space.CreatedAt

	if s.spaces == nil {
		return
	}

	var persisted Space
	persisted, err = s.spaces.CreateSpace(ctx, space)
	if err != nil {
		err = mapSpaceRepoError(err)
		return
	}

	space = persisted
	return
}

// UpdateSpace validates input and updates an existing space for administrators.
func (s *SpaceService) UpdateSpace(ctx context.Context, params UpdateSpaceParams) (space Space, err error) {
	if s == nil {
		err = fmt.Errorf("SpaceService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		return Space{}, ErrUnauthorized
	}
	if s.spaces == nil {
		return Space{}, fmt.Errorf("space repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateSpace",
		"actor", params.Principal.Actor,
		"space_id", params.SpaceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update space", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "space updated")
	}()

	var existing Space
	existing, err = s.spaces.GetSpace(ctx, params.SpaceID)
	if err != nil {
		err = mapSpaceRepoError(err)
		return
	}

	vErr := validateSpaceInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.Location = strings.TrimSpace(params.Input.Location)
	updated.Capacity = params.Input.Capacity
	updated.Description = normalizeOptionalString(params.Input.Description)
	updated.UpdatedAt = s.now()

	space, err = s.spaces.UpdateSpace(ctx, updated)
	if err != nil {
		err = mapSpaceRepoError(err)
		return
	}

	return
}

// DeleteSpace removes a space when requested by an administrator. The delete
// fails while reservations or rentals still reference the space.
func (s *SpaceService) DeleteSpace(ctx context.Context, principal Principal, spaceID string) error {
	if s == nil {
		return fmt.Errorf("SpaceService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.spaces == nil {
		return fmt.Errorf("space repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSpace",
		"actor", principal.Actor,
		"space_id", spaceID,
	)

	if err := s.spaces.DeleteSpace(ctx, spaceID); err != nil {
		err = mapSpaceRepoError(err)
		logger.ErrorContext(ctx, "failed to delete space", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	s.onWindowsChanged()
	logger.InfoContext(ctx, "space deleted")
	return nil
}

// GetSpace returns one catalog entry.
func (s *SpaceService) GetSpace(ctx context.Context, id string) (Space, error) {
	if s == nil || s.spaces == nil {
		return Space{}, ErrNotFound
	}
	space, err := s.spaces.GetSpace(ctx, id)
	if err != nil {
		return Space{}, mapSpaceRepoError(err)
	}
	return space, nil
}

// ListSpaces returns the catalog ordered by name.
func (s *SpaceService) ListSpaces(ctx context.Context) (spaces []Space, err error) {
	if s == nil || s.spaces == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListSpaces")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list spaces", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(spaces)).InfoContext(ctx, "spaces listed")
	}()

	var raw []Space
	raw, err = s.spaces.ListSpaces(ctx)
	if err != nil {
		return
	}

	spaces = make([]Space, len(raw))
	copy(spaces, raw)

	sort.Slice(spaces, func(i, j int) bool {
		if strings.EqualFold(spaces[i].Name, spaces[j].Name) {
			return spaces[i].ID < spaces[j].ID
		}
		return strings.ToLower(spaces[i].Name) < strings.ToLower(spaces[j].Name)
	})

	return
}

// ReplaceWindows swaps the full availability window set for a space and
// invalidates the reservation-side window cache.
func (s *SpaceService) ReplaceWindows(ctx context.Context, params ReplaceWindowsParams) (err error) {
	if s == nil {
		return fmt.Errorf("SpaceService is nil")
	}
	if !params.Principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.spaces == nil {
		return fmt.Errorf("space repository not configured")
	}

	logger := s.loggerWith(ctx, "ReplaceWindows",
		"actor", params.Principal.Actor,
		"space_id", params.SpaceID,
		"window_count", len(params.Windows),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to replace windows", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "availability windows replaced")
	}()

	vErr := validateWindowInputs(params.Windows)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	windows := make([]AvailabilityWindow, 0, len(params.Windows))
	for _, input := range params.Windows {
		windows = append(windows, AvailabilityWindow{
			ID:        s.idGenerator(),
			SpaceID:   params.SpaceID,
			Weekday:   input.Weekday,
			StartHour: input.StartHour,
			EndHour:   input.EndHour,
		})
	}

	if err = s.spaces.ReplaceWindows(ctx, params.SpaceID, windows); err != nil {
		err = mapSpaceRepoError(err)
		return
	}

	s.onWindowsChanged()
	return
}

// ListWindows returns the configured windows for the given spaces.
func (s *SpaceService) ListWindows(ctx context.Context, spaceIDs []string) ([]AvailabilityWindow, error) {
	if s == nil || s.spaces == nil {
		return nil, nil
	}
	windows, err := s.spaces.ListWindows(ctx, spaceIDs)
	if err != nil {
		return nil, mapSpaceRepoError(err)
	}
	return windows, nil
}

func validateSpaceInput(input SpaceInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}

	return vErr
}

func validateWindowInputs(windows []WindowInput) *ValidationError {
	vErr := &ValidationError{}

	for i, window := range windows {
		field := fmt.Sprintf("windows[%d]", i)
		if window.Weekday < time.Sunday || window.Weekday > time.Saturday {
			vErr.add(field, "weekday must be between Sunday and Saturday")
			continue
		}
		if window.StartHour < 0 || window.StartHour > 23 {
			vErr.add(field, "start hour must be between 0 and 23")
			continue
		}
		if window.EndHour <= window.StartHour || window.EndHour > 24 {
			vErr.add(field, "end hour must follow the start hour and end by midnight")
		}
	}

	return vErr
}

func mapSpaceRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("space_id", "space still has reservations or rentals")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("capacity", "capacity must be positive")
		return vErr
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
