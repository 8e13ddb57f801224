package application

import (
	"time"

	"github.com/example/facility-scheduler/internal/booking"
	"github.com/example/facility-scheduler/internal/recurrence"
)

// Principal represents the caller invoking a service method. IsAdmin is set
// by the transport layer after admin token verification.
type Principal struct {
	Actor   string
	IsAdmin bool
}

// SpaceInput captures caller provided space fields.
type SpaceInput struct {
	Name        string
	Location    string
	Capacity    int
	Description *string
}

// Space represents a catalog entry for a reservable space.
type Space struct {
	ID          string
	Name        string
	Location    string
	Capacity    int
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WindowInput captures one caller provided availability window.
type WindowInput struct {
	Weekday   time.Weekday
	StartHour int
	EndHour   int
}

// AvailabilityWindow represents a persisted availability window.
type AvailabilityWindow struct {
	ID        string
	SpaceID   string
	Weekday   time.Weekday
	StartHour int
	EndHour   int
}

// ExtraOccurrence is one caller supplied one-off occurrence added to a
// reservation request alongside the recurrence expansion.
type ExtraOccurrence struct {
	Date          time.Time
	StartHour     int
	DurationHours int
}

// ReservationInput captures a full batch reservation request.
type ReservationInput struct {
	SpaceIDs      []string
	Title         string
	ReservedBy    string
	Date          time.Time
	StartHour     int
	DurationHours int
	Memo          *string
	Rule          recurrence.Rule
	Extras        []ExtraOccurrence
}

// Reservation represents one committed occurrence.
type Reservation struct {
	ID         string
	BatchID    string
	SpaceID    string
	Title      string
	ReservedBy string
	Date       time.Time
	StartHour  int
	EndHour    int
	Status     string
	Memo       *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReservationOutcome is the result of validating (and possibly persisting)
// a batch request. A rejected request is a normal outcome, not an error:
// Verdict carries the reason and offender list for the caller to render.
type ReservationOutcome struct {
	Verdict      booking.Verdict
	BatchID      string
	Reservations []Reservation
}

// Accepted reports whether the request passed the validation pipeline.
func (o ReservationOutcome) Accepted() bool {
	return o.Verdict.Accepted
}

// CreateReservationParams wraps the data required to create a reservation batch.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// ListReservationsParams narrows reservation listings.
type ListReservationsParams struct {
	SpaceIDs []string
	From     *time.Time
	To       *time.Time
}

// RentalInput captures caller provided external rental fields.
type RentalInput struct {
	SpaceID   string
	Renter    string
	Date      time.Time
	StartHour int
	EndHour   int
	Memo      *string
}

// Rental represents an external rental ledger entry.
type Rental struct {
	ID        string
	SpaceID   string
	Renter    string
	Date      time.Time
	StartHour int
	EndHour   int
	Memo      *string
	CreatedAt time.Time
}

// ListRentalsParams narrows rental listings.
type ListRentalsParams struct {
	SpaceIDs []string
	From     *time.Time
	To       *time.Time
}

// CreateSpaceParams wraps the data required to create a space.
type CreateSpaceParams struct {
	Principal Principal
	Input     SpaceInput
}

// UpdateSpaceParams wraps the data required to update a space.
type UpdateSpaceParams struct {
	Principal Principal
	SpaceID   string
	Input     SpaceInput
}

// ReplaceWindowsParams wraps the data required to swap a space's window set.
type ReplaceWindowsParams struct {
	Principal Principal
	SpaceID   string
	Windows   []WindowInput
}
