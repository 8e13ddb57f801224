package persistence

import "time"

// Space represents a reservable space catalog entry.
type Space struct {
	ID          string
	Name        string
	Location    string
	Capacity    int
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailabilityWindow represents one configured open interval for a space on
// a weekday. Hours are whole-hour bounds of a half-open interval.
type AvailabilityWindow struct {
	ID        string
	SpaceID   string
	Weekday   time.Weekday
	StartHour int
	EndHour   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation status values stored in persistence.
const (
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
)

// Reservation represents one committed occurrence of a reservation batch.
// Occurrences created by a single request share a BatchID.
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

// Rental represents an externally ledgered booking that blocks a space the
// same way an internal reservation does.
type Rental struct {
	ID        string
	SpaceID   string
	Renter    string
	Date      time.Time
	StartHour int
	EndHour   int
	Memo      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
