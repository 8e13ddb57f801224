package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/facility-scheduler/internal/booking"
	"github.com/example/facility-scheduler/internal/persistence"
	"github.com/example/facility-scheduler/internal/recurrence"
)

// ReservationRepository captures the persistence operations needed by the service.
type ReservationRepository interface {
	CreateBatch(ctx context.Context, reservations []Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, params ListReservationsParams) ([]Reservation, error)
	CancelReservation(ctx context.Context, id string) error
	CancelBatch(ctx context.Context, batchID string) error
}

// RentalReader exposes the external rental ledger to the snapshot loader.
type RentalReader interface {
	ListRentals(ctx context.Context, params ListRentalsParams) ([]Rental, error)
}

// WindowReader exposes configured availability windows to the snapshot loader.
type WindowReader interface {
	ListWindows(ctx context.Context, spaceIDs []string) ([]AvailabilityWindow, error)
}

// ReservationServiceConfig bundles the reservation service dependencies.
type ReservationServiceConfig struct {
	Reservations     ReservationRepository
	Rentals          RentalReader
	Windows          WindowReader
	Engine           *recurrence.Engine
	IDGenerator      func() string
	Now              func() time.Time
	DefaultOpenHour  int
	DefaultCloseHour int
	WindowCacheTTL   time.Duration
	Logger           *slog.Logger
}

// ReservationService orchestrates snapshot loading, batch validation, and
// transactional persistence for reservation requests.
type ReservationService struct {
	reservations     ReservationRepository
	rentals          RentalReader
	windows          WindowReader
	validator        *booking.Validator
	idGenerator      func() string
	now              func() time.Time
	defaultOpenHour  int
	defaultCloseHour int
	cache            *windowCache
	logger           *slog.Logger
}

// NewReservationService constructs a reservation service.
func NewReservationService(cfg ReservationServiceConfig) *ReservationService {
	idGenerator := cfg.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	openHour, closeHour := cfg.DefaultOpenHour, cfg.DefaultCloseHour
	if closeHour <= openHour {
		openHour = booking.DefaultOpenHour
		closeHour = booking.DefaultCloseHour
	}
	return &ReservationService{
		reservations:     cfg.Reservations,
		rentals:          cfg.Rentals,
		windows:          cfg.Windows,
		validator:        booking.NewValidator(cfg.Engine),
		idGenerator:      idGenerator,
		now:              now,
		defaultOpenHour:  openHour,
		defaultCloseHour: closeHour,
		cache:            newWindowCache(cfg.WindowCacheTTL, 0, now),
		logger:           defaultLogger(cfg.Logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// InvalidateWindowCache drops cached availability windows. Wiring calls this
// whenever the space service mutates a window set.
func (s *ReservationService) InvalidateWindowCache() {
	if s == nil {
		return
	}
	s.cache.Invalidate()
}

// CreateReservation validates a batch request against a fresh snapshot and
// persists every placement in one transaction when the verdict accepts. A
// rejected verdict is returned as a normal outcome; the database uniqueness
// index remains the final arbiter and its violation surfaces as
// ErrSlotUnavailable.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (outcome ReservationOutcome, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"actor", params.Principal.Actor,
		"space_count", len(params.Input.SpaceIDs),
	)
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
		case !outcome.Accepted():
			logger.With("reason", string(outcome.Verdict.Reason)).InfoContext(ctx, "reservation rejected")
		default:
			logger.With(
				"batch_id", outcome.BatchID,
				"occurrence_count", len(outcome.Reservations),
			).InfoContext(ctx, "reservation created")
		}
	}()

	outcome, err = s.evaluate(ctx, params.Input)
	if err != nil || !outcome.Accepted() {
		return
	}

	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	batchID := s.idGenerator()
	reservations := make([]Reservation, 0, len(outcome.Verdict.Placements))
	for _, placement := range outcome.Verdict.Placements {
		reservations = append(reservations, Reservation{
			ID:         s.idGenerator(),
			BatchID:    batchID,
			SpaceID:    placement.SpaceID,
			Title:      strings.TrimSpace(params.Input.Title),
			ReservedBy: strings.TrimSpace(params.Input.ReservedBy),
			Date:       placement.Occurrence.Date,
			StartHour:  placement.Occurrence.StartHour,
			EndHour:    placement.Occurrence.EndHour,
			Status:     persistence.ReservationStatusConfirmed,
			Memo:       normalizeOptionalString(params.Input.Memo),
			CreatedAt:  s.now(),
		})
	}

	if err = s.reservations.CreateBatch(ctx, reservations); err != nil {
		err = mapReservationRepoError(err)
		return
	}

	outcome.BatchID = batchID
	outcome.Reservations = reservations
	return
}

// PreviewReservation runs the full validation pipeline against a fresh
// snapshot without persisting anything.
func (s *ReservationService) PreviewReservation(ctx context.Context, params CreateReservationParams) (outcome ReservationOutcome, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "PreviewReservation",
		"actor", params.Principal.Actor,
		"space_count", len(params.Input.SpaceIDs),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to preview reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("accepted", outcome.Accepted()).InfoContext(ctx, "reservation previewed")
	}()

	outcome, err = s.evaluate(ctx, params.Input)
	return
}

// PreviewDates expands a recurrence rule standalone for calendar previews.
func (s *ReservationService) PreviewDates(ctx context.Context, seed time.Time, rule recurrence.Rule) ([]time.Time, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}

	dates, err := s.validator.Engine().Generate(seed, rule)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("rule", err.Error())
		return nil, vErr
	}
	return dates, nil
}

// ListReservations returns committed reservations matching the filter.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) ([]Reservation, error) {
	if s == nil || s.reservations == nil {
		return nil, nil
	}
	reservations, err := s.reservations.ListReservations(ctx, params)
	if err != nil {
		return nil, mapReservationRepoError(err)
	}
	return reservations, nil
}

// CancelReservation cancels one occurrence, freeing its slot.
func (s *ReservationService) CancelReservation(ctx context.Context, principal Principal, id string) error {
	return s.cancel(ctx, principal, "CancelReservation", "reservation_id", id, func(ctx context.Context) error {
		return s.reservations.CancelReservation(ctx, id)
	})
}

// CancelBatch cancels every confirmed occurrence created by one request.
func (s *ReservationService) CancelBatch(ctx context.Context, principal Principal, batchID string) error {
	return s.cancel(ctx, principal, "CancelBatch", "batch_id", batchID, func(ctx context.Context) error {
		return s.reservations.CancelBatch(ctx, batchID)
	})
}

func (s *ReservationService) cancel(ctx context.Context, principal Principal, operation, idKey, id string, fn func(context.Context) error) error {
	if s == nil || s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, operation, "actor", principal.Actor, idKey, id)
	if err := fn(ctx); err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to cancel", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "reservation cancelled")
	return nil
}

// evaluate runs service-level input validation, snapshot loading, and the
// engine pipeline. Engine-level time semantics stay inside the validator;
// only fields the engine never sees are checked here.
func (s *ReservationService) evaluate(ctx context.Context, input ReservationInput) (ReservationOutcome, error) {
	vErr := validateReservationInput(input)
	if vErr.HasErrors() {
		return ReservationOutcome{}, vErr
	}

	snapshot, err := s.loadSnapshot(ctx, input)
	if err != nil {
		return ReservationOutcome{}, err
	}

	request := booking.Request{
		SpaceIDs:      input.SpaceIDs,
		Date:          input.Date,
		StartHour:     input.StartHour,
		DurationHours: input.DurationHours,
		Rule:          input.Rule,
	}
	for _, extra := range input.Extras {
		request.Extras = append(request.Extras, booking.OccurrenceInput{
			Date:          extra.Date,
			StartHour:     extra.StartHour,
			DurationHours: extra.DurationHours,
		})
	}

	return ReservationOutcome{Verdict: s.validator.Validate(request, snapshot)}, nil
}

func (s *ReservationService) loadSnapshot(ctx context.Context, input ReservationInput) (booking.Snapshot, error) {
	index := booking.NewWindowIndex(s.defaultOpenHour, s.defaultCloseHour)

	if s.windows != nil {
		windows, err := s.loadWindows(ctx, input.SpaceIDs)
		if err != nil {
			return booking.Snapshot{}, fmt.Errorf("failed to load availability windows: %w", err)
		}
		for _, window := range windows {
			index.Add(window.SpaceID, booking.Window{
				Weekday:   window.Weekday,
				StartHour: window.StartHour,
				EndHour:   window.EndHour,
			})
		}
	}

	from, to := requestDateRange(input)
	var commitments []booking.Commitment

	if s.reservations != nil {
		reserved, err := s.reservations.ListReservations(ctx, ListReservationsParams{
			SpaceIDs: input.SpaceIDs,
			From:     &from,
			To:       &to,
		})
		if err != nil {
			return booking.Snapshot{}, fmt.Errorf("failed to load reservations: %w", err)
		}
		for _, reservation := range reserved {
			commitments = append(commitments, booking.Commitment{
				SpaceID:   reservation.SpaceID,
				Date:      recurrence.DateOnly(reservation.Date),
				StartHour: reservation.StartHour,
				EndHour:   reservation.EndHour,
				Source:    booking.SourceReservation,
			})
		}
	}

	if s.rentals != nil {
		rented, err := s.rentals.ListRentals(ctx, ListRentalsParams{
			SpaceIDs: input.SpaceIDs,
			From:     &from,
			To:       &to,
		})
		if err != nil {
			return booking.Snapshot{}, fmt.Errorf("failed to load rentals: %w", err)
		}
		for _, rental := range rented {
			commitments = append(commitments, booking.Commitment{
				SpaceID:   rental.SpaceID,
				Date:      recurrence.DateOnly(rental.Date),
				StartHour: rental.StartHour,
				EndHour:   rental.EndHour,
				Source:    booking.SourceExternalRental,
			})
		}
	}

	return booking.Snapshot{Windows: index, Commitments: commitments}, nil
}

func (s *ReservationService) loadWindows(ctx context.Context, spaceIDs []string) ([]AvailabilityWindow, error) {
	key := buildWindowCacheKey(spaceIDs)
	if windows, ok := s.cache.Get(key); ok {
		return windows, nil
	}

	windows, err := s.windows.ListWindows(ctx, spaceIDs)
	if err != nil {
		return nil, err
	}

	s.cache.Store(key, windows)
	return windows, nil
}

// requestDateRange bounds the commitment snapshot query to the dates the
// request can possibly touch.
func requestDateRange(input ReservationInput) (time.Time, time.Time) {
	from := recurrence.DateOnly(input.Date)
	to := from

	if input.Rule.Frequency != recurrence.FrequencyNone && input.Rule.EndsOn != nil {
		if end := recurrence.DateOnly(*input.Rule.EndsOn); end.After(to) {
			to = end
		}
	}
	for _, extra := range input.Extras {
		date := recurrence.DateOnly(extra.Date)
		if date.Before(from) {
			from = date
		}
		if date.After(to) {
			to = date
		}
	}

	return from, to
}

func validateReservationInput(input ReservationInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if strings.TrimSpace(input.ReservedBy) == "" {
		vErr.add("reserved_by", "reserved_by is required")
	}

	return vErr
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrSlotUnavailable
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("space_ids", "one or more spaces do not exist")
		return vErr
	}
	return err
}
