package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/facility-scheduler/internal/persistence"
)

func setupReservationTest(t *testing.T) (*ReservationRepository, *SpaceRepository) {
	t.Helper()
	pool := setupTestPool(t)
	spaces := NewSpaceRepository(pool)
	if err := spaces.CreateSpace(context.Background(), persistence.Space{ID: "hall-1", Name: "Main Hall", Capacity: 120}); err != nil {
		t.Fatalf("CreateSpace failed: %v", err)
	}
	return NewReservationRepository(pool), spaces
}

func reservationFixture(t *testing.T, id, batchID, date string, startHour, endHour int) persistence.Reservation {
	t.Helper()
	return persistence.Reservation{
		ID:         id,
		BatchID:    batchID,
		SpaceID:    "hall-1",
		Title:      "Rehearsal",
		ReservedBy: "alice",
		Date:       testDate(t, date),
		StartHour:  startHour,
		EndHour:    endHour,
	}
}

func TestReservationRepository_CreateBatchAndList(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	batch := []persistence.Reservation{
		reservationFixture(t, "r1", "b1", "2025-06-07", 10, 12),
		reservationFixture(t, "r2", "b1", "2025-06-14", 10, 12),
	}
	if err := repo.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	listed, err := repo.ListReservations(ctx, persistence.ReservationFilter{BatchID: "b1"})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("Expected 2 reservations, got %d", len(listed))
	}
	if listed[0].Status != persistence.ReservationStatusConfirmed {
		t.Errorf("Expected confirmed status, got %q", listed[0].Status)
	}
	if !listed[0].Date.Equal(testDate(t, "2025-06-07")) {
		t.Errorf("Expected date ordering, got %v first", listed[0].Date)
	}
}

func TestReservationRepository_CreateBatch_SlotCollisionRollsBackBatch(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	if err := repo.CreateBatch(ctx, []persistence.Reservation{
		reservationFixture(t, "r1", "b1", "2025-06-14", 10, 12),
	}); err != nil {
		t.Fatalf("First CreateBatch failed: %v", err)
	}

	// Second batch collides on its second row; the first row must not survive.
	err := repo.CreateBatch(ctx, []persistence.Reservation{
		reservationFixture(t, "r2", "b2", "2025-06-07", 10, 12),
		reservationFixture(t, "r3", "b2", "2025-06-14", 10, 12),
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}

	listed, err := repo.ListReservations(ctx, persistence.ReservationFilter{BatchID: "b2"})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("Expected the whole batch rolled back, found %d rows", len(listed))
	}
}

func TestReservationRepository_CancelReservationFreesSlot(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	if err := repo.CreateBatch(ctx, []persistence.Reservation{
		reservationFixture(t, "r1", "b1", "2025-06-07", 10, 12),
	}); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	if err := repo.CancelReservation(ctx, "r1"); err != nil {
		t.Fatalf("CancelReservation failed: %v", err)
	}

	// A cancelled row leaves the unique slot index, so the slot is free again.
	if err := repo.CreateBatch(ctx, []persistence.Reservation{
		reservationFixture(t, "r2", "b2", "2025-06-07", 10, 12),
	}); err != nil {
		t.Fatalf("Expected freed slot to accept a new reservation, got %v", err)
	}

	cancelled, err := repo.GetReservation(ctx, "r1")
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if cancelled.Status != persistence.ReservationStatusCancelled {
		t.Errorf("Expected cancelled status, got %q", cancelled.Status)
	}
}

func TestReservationRepository_CancelBatch(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	if err := repo.CreateBatch(ctx, []persistence.Reservation{
		reservationFixture(t, "r1", "b1", "2025-06-07", 10, 12),
		reservationFixture(t, "r2", "b1", "2025-06-14", 10, 12),
	}); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	if err := repo.CancelBatch(ctx, "b1"); err != nil {
		t.Fatalf("CancelBatch failed: %v", err)
	}

	active, err := repo.ListReservations(ctx, persistence.ReservationFilter{BatchID: "b1"})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("Expected no confirmed reservations after batch cancel, got %d", len(active))
	}

	all, err := repo.ListReservations(ctx, persistence.ReservationFilter{BatchID: "b1", IncludeCancelled: true})
	if err != nil {
		t.Fatalf("ListReservations with cancelled failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected both rows retained as cancelled, got %d", len(all))
	}
}

func TestReservationRepository_CancelBatch_AlreadyCancelled(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	if err := repo.CreateBatch(ctx, []persistence.Reservation{
		reservationFixture(t, "r1", "b1", "2025-06-07", 10, 12),
	}); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	if err := repo.CancelBatch(ctx, "b1"); err != nil {
		t.Fatalf("CancelBatch failed: %v", err)
	}

	if err := repo.CancelBatch(ctx, "b1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for already cancelled batch, got %v", err)
	}
}

func TestReservationRepository_ListReservations_DateRangeFilter(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	if err := repo.CreateBatch(ctx, []persistence.Reservation{
		reservationFixture(t, "r1", "b1", "2025-06-07", 10, 12),
		reservationFixture(t, "r2", "b1", "2025-06-14", 10, 12),
		reservationFixture(t, "r3", "b1", "2025-06-21", 10, 12),
	}); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	from := testDate(t, "2025-06-10")
	to := testDate(t, "2025-06-20")
	listed, err := repo.ListReservations(ctx, persistence.ReservationFilter{
		SpaceIDs: []string{"hall-1"},
		From:     &from,
		To:       &to,
	})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "r2" {
		t.Fatalf("Expected only r2 inside the range, got %+v", listed)
	}
}

func TestReservationRepository_CreateBatch_UnknownSpace(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	batch := []persistence.Reservation{
		{
			ID:         "r1",
			BatchID:    "b1",
			SpaceID:    "missing",
			Title:      "Rehearsal",
			ReservedBy: "alice",
			Date:       testDate(t, "2025-06-07"),
			StartHour:  10,
			EndHour:    12,
		},
	}
	err := repo.CreateBatch(ctx, batch)
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("Expected ErrForeignKeyViolation, got %v", err)
	}
}
