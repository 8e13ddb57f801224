package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/facility-scheduler/internal/persistence"
)

var (
	spaceCounter       uint64
	windowCounter      uint64
	reservationCounter uint64
	rentalCounter      uint64
)

var referenceTime = time.Date(2025, time.June, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the baseline calendar date used by fixtures, a Monday.
func ReferenceDate() time.Time {
	return time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
}

// ----------------------------- Space fixtures -----------------------------

// SpaceOption configures a generated space fixture.
type SpaceOption func(*persistence.Space)

// NewSpace returns a deterministic space record with optional overrides.
func NewSpace(opts ...SpaceOption) persistence.Space {
	idx := atomic.AddUint64(&spaceCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	space := persistence.Space{
		ID:        fmt.Sprintf("space-%03d", idx),
		Name:      fmt.Sprintf("Space %03d", idx),
		Location:  "main building",
		Capacity:  20,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&space)
	}
	return space
}

// WithSpaceID overrides the generated space ID.
func WithSpaceID(id string) SpaceOption {
	return func(s *persistence.Space) {
		s.ID = id
	}
}

// WithSpaceName overrides the generated space name.
func WithSpaceName(name string) SpaceOption {
	return func(s *persistence.Space) {
		s.Name = name
	}
}

// WithCapacity overrides the generated capacity.
func WithCapacity(capacity int) SpaceOption {
	return func(s *persistence.Space) {
		s.Capacity = capacity
	}
}

// ----------------------------- Window fixtures -----------------------------

// WindowOption configures a generated availability window fixture.
type WindowOption func(*persistence.AvailabilityWindow)

// NewWindow returns a deterministic availability window for the given space.
func NewWindow(spaceID string, opts ...WindowOption) persistence.AvailabilityWindow {
	idx := atomic.AddUint64(&windowCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	window := persistence.AvailabilityWindow{
		ID:        fmt.Sprintf("window-%03d", idx),
		SpaceID:   spaceID,
		Weekday:   time.Monday,
		StartHour: 9,
		EndHour:   17,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&window)
	}
	return window
}

// OnWeekday overrides the window weekday.
func OnWeekday(weekday time.Weekday) WindowOption {
	return func(w *persistence.AvailabilityWindow) {
		w.Weekday = weekday
	}
}

// BetweenHours overrides the window bounds.
func BetweenHours(start, end int) WindowOption {
	return func(w *persistence.AvailabilityWindow) {
		w.StartHour = start
		w.EndHour = end
	}
}

// -------------------------- Reservation fixtures --------------------------

// ReservationOption configures a generated reservation fixture.
type ReservationOption func(*persistence.Reservation)

// NewReservation returns a deterministic confirmed reservation occurrence for
// the given space.
func NewReservation(spaceID string, opts ...ReservationOption) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	reservation := persistence.Reservation{
		ID:         fmt.Sprintf("reservation-%03d", idx),
		BatchID:    fmt.Sprintf("batch-%03d", idx),
		SpaceID:    spaceID,
		Title:      fmt.Sprintf("Booking %03d", idx),
		ReservedBy: fmt.Sprintf("member-%03d", idx),
		Date:       ReferenceDate(),
		StartHour:  10,
		EndHour:    12,
		Status:     persistence.ReservationStatusConfirmed,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&reservation)
	}
	return reservation
}

// InBatch places the reservation in the given batch.
func InBatch(batchID string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.BatchID = batchID
	}
}

// OnDate overrides the reservation date.
func OnDate(date time.Time) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Date = date
	}
}

// DuringHours overrides the reservation interval.
func DuringHours(start, end int) ReservationOption {
	return func(r *persistence.Reservation) {
		r.StartHour = start
		r.EndHour = end
	}
}

// Cancelled marks the reservation cancelled.
func Cancelled() ReservationOption {
	return func(r *persistence.Reservation) {
		r.Status = persistence.ReservationStatusCancelled
	}
}

// ----------------------------- Rental fixtures -----------------------------

// RentalOption configures a generated external rental fixture.
type RentalOption func(*persistence.Rental)

// NewRental returns a deterministic external rental for the given space.
func NewRental(spaceID string, opts ...RentalOption) persistence.Rental {
	idx := atomic.AddUint64(&rentalCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	rental := persistence.Rental{
		ID:        fmt.Sprintf("rental-%03d", idx),
		SpaceID:   spaceID,
		Renter:    fmt.Sprintf("renter-%03d", idx),
		Date:      ReferenceDate(),
		StartHour: 13,
		EndHour:   15,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&rental)
	}
	return rental
}

// RentalOnDate overrides the rental date.
func RentalOnDate(date time.Time) RentalOption {
	return func(r *persistence.Rental) {
		r.Date = date
	}
}

// RentalDuringHours overrides the rental interval.
func RentalDuringHours(start, end int) RentalOption {
	return func(r *persistence.Rental) {
		r.StartHour = start
		r.EndHour = end
	}
}
