package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/facility-scheduler/internal/persistence"
)

type stubRentalRepo struct {
	rentals   map[string]Rental
	createErr error
}

func newStubRentalRepo() *stubRentalRepo {
	return &stubRentalRepo{rentals: make(map[string]Rental)}
}

func (s *stubRentalRepo) CreateRental(ctx context.Context, rental Rental) (Rental, error) {
	if s.createErr != nil {
		return Rental{}, s.createErr
	}
	s.rentals[rental.ID] = rental
	return rental, nil
}

func (s *stubRentalRepo) GetRental(ctx context.Context, id string) (Rental, error) {
	rental, ok := s.rentals[id]
	if !ok {
		return Rental{}, persistence.ErrNotFound
	}
	return rental, nil
}

func (s *stubRentalRepo) ListRentals(ctx context.Context, params ListRentalsParams) ([]Rental, error) {
	var out []Rental
	for _, rental := range s.rentals {
		out = append(out, rental)
	}
	return out, nil
}

func (s *stubRentalRepo) DeleteRental(ctx context.Context, id string) error {
	if _, ok := s.rentals[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.rentals, id)
	return nil
}

func TestRentalService_RecordRental(t *testing.T) {
	t.Parallel()

	repo := newStubRentalRepo()
	service := NewRentalService(repo, sequentialIDs("x-"), fixedClock(testDay(2025, time.June, 1)), nil)

	rental, err := service.RecordRental(context.Background(), Principal{Actor: "staff"}, RentalInput{
		SpaceID:   "hall-1",
		Renter:    "  City Chess Club  ",
		Date:      testDay(2025, time.June, 21),
		StartHour: 9,
		EndHour:   11,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rental.Renter != "City Chess Club" {
		t.Fatalf("expected trimmed renter, got %q", rental.Renter)
	}
	if _, ok := repo.rentals[rental.ID]; !ok {
		t.Fatal("expected rental persisted")
	}
}

func TestRentalService_RecordRental_ValidationErrors(t *testing.T) {
	t.Parallel()

	service := NewRentalService(newStubRentalRepo(), sequentialIDs("x-"), nil, nil)

	_, err := service.RecordRental(context.Background(), Principal{Actor: "staff"}, RentalInput{
		SpaceID:   "",
		Renter:    "",
		StartHour: 12,
		EndHour:   10,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"space_id", "renter", "date", "end_hour"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Errorf("expected %s error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestRentalService_RecordRental_UnknownSpaceMapsToValidation(t *testing.T) {
	t.Parallel()

	repo := newStubRentalRepo()
	repo.createErr = persistence.ErrForeignKeyViolation
	service := NewRentalService(repo, sequentialIDs("x-"), nil, nil)

	_, err := service.RecordRental(context.Background(), Principal{Actor: "staff"}, RentalInput{
		SpaceID:   "missing",
		Renter:    "Club",
		Date:      testDay(2025, time.June, 21),
		StartHour: 9,
		EndHour:   11,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRentalService_CancelRental(t *testing.T) {
	t.Parallel()

	repo := newStubRentalRepo()
	repo.rentals["x1"] = Rental{ID: "x1", SpaceID: "hall-1", Renter: "Club"}
	service := NewRentalService(repo, sequentialIDs("x-"), nil, nil)

	if err := service.CancelRental(context.Background(), Principal{Actor: "staff"}, "x1"); err != nil {
		t.Fatalf("CancelRental failed: %v", err)
	}
	if _, ok := repo.rentals["x1"]; ok {
		t.Fatal("expected rental removed")
	}

	if err := service.CancelRental(context.Background(), Principal{Actor: "staff"}, "x1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second cancel, got %v", err)
	}
}
