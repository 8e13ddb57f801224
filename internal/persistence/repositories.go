package persistence

import "context"
import "time"

// SpaceRepository exposes CRUD operations for spaces and their availability
// windows.
type SpaceRepository interface {
	CreateSpace(ctx context.Context, space Space) error
	UpdateSpace(ctx context.Context, space Space) error
	GetSpace(ctx context.Context, id string) (Space, error)
	ListSpaces(ctx context.Context) ([]Space, error)
	DeleteSpace(ctx context.Context, id string) error
	ReplaceWindows(ctx context.Context, spaceID string, windows []AvailabilityWindow) error
	ListWindows(ctx context.Context, spaceIDs []string) ([]AvailabilityWindow, error)
}

// ReservationFilter narrows reservation queries.
type ReservationFilter struct {
	SpaceIDs         []string
	BatchID          string
	From             *time.Time
	To               *time.Time
	IncludeCancelled bool
}

// ReservationRepository stores reservation occurrences. CreateBatch persists
// every occurrence of a request in one transaction; a constraint failure on
// any row leaves nothing committed.
type ReservationRepository interface {
	CreateBatch(ctx context.Context, reservations []Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	CancelReservation(ctx context.Context, id string) error
	CancelBatch(ctx context.Context, batchID string) error
}

// RentalFilter narrows external rental queries.
type RentalFilter struct {
	SpaceIDs []string
	From     *time.Time
	To       *time.Time
}

// RentalRepository stores the external rental ledger.
type RentalRepository interface {
	CreateRental(ctx context.Context, rental Rental) error
	GetRental(ctx context.Context, id string) (Rental, error)
	ListRentals(ctx context.Context, filter RentalFilter) ([]Rental, error)
	DeleteRental(ctx context.Context, id string) error
}
