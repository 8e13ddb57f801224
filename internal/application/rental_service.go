package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/facility-scheduler/internal/persistence"
)

// RentalRepository captures the persistence operations needed by the service.
type RentalRepository interface {
	CreateRental(ctx context.Context, rental Rental) (Rental, error)
	GetRental(ctx context.Context, id string) (Rental, error)
	ListRentals(ctx context.Context, params ListRentalsParams) ([]Rental, error)
	DeleteRental(ctx context.Context, id string) error
}

// RentalService maintains the external rental ledger. Rentals block spaces
// exactly like internal reservations but are recorded as-is: the ledger
// mirrors agreements made outside this system, so no validation pipeline
// runs against them beyond basic field checks.
type RentalService struct {
	rentals     RentalRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRentalService constructs a rental service with the provided dependencies.
func NewRentalService(rentals RentalRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RentalService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RentalService{
		rentals:     rentals,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RentalService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RentalService", operation, attrs...)
}

// RecordRental validates input and persists a new ledger entry.
func (s *RentalService) RecordRental(ctx context.Context, principal Principal, input RentalInput) (rental Rental, err error) {
	if s == nil {
		err = fmt.Errorf("RentalService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RecordRental",
		"actor", principal.Actor,
		"space_id", input.SpaceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record rental", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("rental_id", rental.ID).InfoContext(ctx, "rental recorded")
	}()

	vErr := validateRentalInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	rental = Rental{
		ID:        s.idGenerator(),
		SpaceID:   strings.TrimSpace(input.SpaceID),
		Renter:    strings.TrimSpace(input.Renter),
		Date:      input.Date,
		StartHour: input.StartHour,
		EndHour:   input.EndHour,
		Memo:      normalizeOptionalString(input.Memo),
		CreatedAt: s.now(),
	}

	if s.rentals == nil {
		return
	}

	var persisted Rental
	persisted, err = s.rentals.CreateRental(ctx, rental)
	if err != nil {
		err = mapRentalRepoError(err)
		return
	}

	rental = persisted
	return
}

// ListRentals returns ledger entries matching the filter.
func (s *RentalService) ListRentals(ctx context.Context, params ListRentalsParams) ([]Rental, error) {
	if s == nil || s.rentals == nil {
		return nil, nil
	}
	rentals, err := s.rentals.ListRentals(ctx, params)
	if err != nil {
		return nil, mapRentalRepoError(err)
	}
	return rentals, nil
}

// CancelRental removes a ledger entry, freeing the blocked slots.
func (s *RentalService) CancelRental(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.rentals == nil {
		return fmt.Errorf("rental repository not configured")
	}

	logger := s.loggerWith(ctx, "CancelRental",
		"actor", principal.Actor,
		"rental_id", id,
	)

	if err := s.rentals.DeleteRental(ctx, id); err != nil {
		err = mapRentalRepoError(err)
		logger.ErrorContext(ctx, "failed to cancel rental", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "rental cancelled")
	return nil
}

func validateRentalInput(input RentalInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.SpaceID) == "" {
		vErr.add("space_id", "space_id is required")
	}
	if strings.TrimSpace(input.Renter) == "" {
		vErr.add("renter", "renter is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if input.StartHour < 0 || input.StartHour > 23 {
		vErr.add("start_hour", "start hour must be between 0 and 23")
	}
	if input.EndHour <= input.StartHour || input.EndHour > 24 {
		vErr.add("end_hour", "end hour must follow the start hour and end by midnight")
	}

	return vErr
}

func mapRentalRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("space_id", "space does not exist")
		return vErr
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}
