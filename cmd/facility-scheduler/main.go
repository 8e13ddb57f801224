package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/config"
	httptransport "github.com/example/facility-scheduler/internal/http"
	"github.com/example/facility-scheduler/internal/persistence"
	"github.com/example/facility-scheduler/internal/persistence/sqlite"
	"github.com/example/facility-scheduler/internal/recurrence"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.NewMigrator(pool).RunMigrations(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	spaceRepo := newSpaceRepositoryAdapter(sqlite.NewSpaceRepository(pool))
	reservationRepo := newReservationRepositoryAdapter(sqlite.NewReservationRepository(pool))
	rentalRepo := newRentalRepositoryAdapter(sqlite.NewRentalRepository(pool))

	reservationService := application.NewReservationService(application.ReservationServiceConfig{
		Reservations:     reservationRepo,
		Rentals:          rentalRepo,
		Windows:          spaceRepo,
		Engine:           recurrence.NewEngine(cfg.MaxOccurrences),
		IDGenerator:      idGenerator,
		Now:              now,
		DefaultOpenHour:  cfg.DefaultOpenHour,
		DefaultCloseHour: cfg.DefaultCloseHour,
		WindowCacheTTL:   cfg.WindowCacheTTL,
		Logger:           logger,
	})
	spaceService := application.NewSpaceService(spaceRepo, idGenerator, now, reservationService.InvalidateWindowCache, logger)
	rentalService := application.NewRentalService(rentalRepo, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Spaces:       httptransport.NewSpaceHandler(spaceService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Rentals:      httptransport.NewRentalHandler(rentalService, logger),
		AdminGuard:   httptransport.RequireAdminToken([]byte(cfg.AdminTokenHash), logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("facility scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type spaceRepositoryAdapter struct {
	repo *sqlite.SpaceRepository
}

func newSpaceRepositoryAdapter(repo *sqlite.SpaceRepository) *spaceRepositoryAdapter {
	return &spaceRepositoryAdapter{repo: repo}
}

func (a *spaceRepositoryAdapter) CreateSpace(ctx context.Context, space application.Space) (application.Space, error) {
	if err := a.repo.CreateSpace(ctx, toPersistenceSpace(space)); err != nil {
		return application.Space{}, err
	}
	stored, err := a.repo.GetSpace(ctx, space.ID)
	if err != nil {
		return application.Space{}, err
	}
	return toApplicationSpace(stored), nil
}

func (a *spaceRepositoryAdapter) GetSpace(ctx context.Context, id string) (application.Space, error) {
	stored, err := a.repo.GetSpace(ctx, id)
	if err != nil {
		return application.Space{}, err
	}
	return toApplicationSpace(stored), nil
}

func (a *spaceRepositoryAdapter) UpdateSpace(ctx context.Context, space application.Space) (application.Space, error) {
	if err := a.repo.UpdateSpace(ctx, toPersistenceSpace(space)); err != nil {
		return application.Space{}, err
	}
	stored, err := a.repo.GetSpace(ctx, space.ID)
	if err != nil {
		return application.Space{}, err
	}
	return toApplicationSpace(stored), nil
}

func (a *spaceRepositoryAdapter) DeleteSpace(ctx context.Context, id string) error {
	return a.repo.DeleteSpace(ctx, id)
}

func (a *spaceRepositoryAdapter) ListSpaces(ctx context.Context) ([]application.Space, error) {
	models, err := a.repo.ListSpaces(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	spaces := make([]application.Space, 0, len(models))
	for _, model := range models {
		spaces = append(spaces, toApplicationSpace(model))
	}
	return spaces, nil
}

func (a *spaceRepositoryAdapter) ReplaceWindows(ctx context.Context, spaceID string, windows []application.AvailabilityWindow) error {
	models := make([]persistence.AvailabilityWindow, 0, len(windows))
	for _, window := range windows {
		models = append(models, persistence.AvailabilityWindow{
			ID:        window.ID,
			SpaceID:   window.SpaceID,
			Weekday:   window.Weekday,
			StartHour: window.StartHour,
			EndHour:   window.EndHour,
		})
	}
	return a.repo.ReplaceWindows(ctx, spaceID, models)
}

func (a *spaceRepositoryAdapter) ListWindows(ctx context.Context, spaceIDs []string) ([]application.AvailabilityWindow, error) {
	models, err := a.repo.ListWindows(ctx, spaceIDs)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	windows := make([]application.AvailabilityWindow, 0, len(models))
	for _, model := range models {
		windows = append(windows, application.AvailabilityWindow{
			ID:        model.ID,
			SpaceID:   model.SpaceID,
			Weekday:   model.Weekday,
			StartHour: model.StartHour,
			EndHour:   model.EndHour,
		})
	}
	return windows, nil
}

type reservationRepositoryAdapter struct {
	repo *sqlite.ReservationRepository
}

func newReservationRepositoryAdapter(repo *sqlite.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateBatch(ctx context.Context, reservations []application.Reservation) error {
	models := make([]persistence.Reservation, 0, len(reservations))
	for _, reservation := range reservations {
		models = append(models, toPersistenceReservation(reservation))
	}
	return a.repo.CreateBatch(ctx, models)
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error) {
	models, err := a.repo.ListReservations(ctx, persistence.ReservationFilter{
		SpaceIDs: append([]string(nil), params.SpaceIDs...),
		From:     params.From,
		To:       params.To,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) CancelReservation(ctx context.Context, id string) error {
	return a.repo.CancelReservation(ctx, id)
}

func (a *reservationRepositoryAdapter) CancelBatch(ctx context.Context, batchID string) error {
	return a.repo.CancelBatch(ctx, batchID)
}

type rentalRepositoryAdapter struct {
	repo *sqlite.RentalRepository
}

func newRentalRepositoryAdapter(repo *sqlite.RentalRepository) *rentalRepositoryAdapter {
	return &rentalRepositoryAdapter{repo: repo}
}

func (a *rentalRepositoryAdapter) CreateRental(ctx context.Context, rental application.Rental) (application.Rental, error) {
	if err := a.repo.CreateRental(ctx, toPersistenceRental(rental)); err != nil {
		return application.Rental{}, err
	}
	stored, err := a.repo.GetRental(ctx, rental.ID)
	if err != nil {
		return application.Rental{}, err
	}
	return toApplicationRental(stored), nil
}

func (a *rentalRepositoryAdapter) GetRental(ctx context.Context, id string) (application.Rental, error) {
	stored, err := a.repo.GetRental(ctx, id)
	if err != nil {
		return application.Rental{}, err
	}
	return toApplicationRental(stored), nil
}

func (a *rentalRepositoryAdapter) ListRentals(ctx context.Context, params application.ListRentalsParams) ([]application.Rental, error) {
	models, err := a.repo.ListRentals(ctx, persistence.RentalFilter{
		SpaceIDs: append([]string(nil), params.SpaceIDs...),
		From:     params.From,
		To:       params.To,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rentals := make([]application.Rental, 0, len(models))
	for _, model := range models {
		rentals = append(rentals, toApplicationRental(model))
	}
	return rentals, nil
}

func (a *rentalRepositoryAdapter) DeleteRental(ctx context.Context, id string) error {
	return a.repo.DeleteRental(ctx, id)
}

func toPersistenceSpace(space application.Space) persistence.Space {
	return persistence.Space{
		ID:          space.ID,
		Name:        space.Name,
		Location:    space.Location,
		Capacity:    space.Capacity,
		Description: cloneString(space.Description),
		CreatedAt:   space.CreatedAt,
		UpdatedAt:   space.UpdatedAt,
	}
}

func toApplicationSpace(model persistence.Space) application.Space {
	return application.Space{
		ID:          model.ID,
		Name:        model.Name,
		Location:    model.Location,
		Capacity:    model.Capacity,
		Description: cloneString(model.Description),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:         reservation.ID,
		BatchID:    reservation.BatchID,
		SpaceID:    reservation.SpaceID,
		Title:      reservation.Title,
		ReservedBy: reservation.ReservedBy,
		Date:       reservation.Date,
		StartHour:  reservation.StartHour,
		EndHour:    reservation.EndHour,
		Status:     reservation.Status,
		Memo:       cloneString(reservation.Memo),
		CreatedAt:  reservation.CreatedAt,
		UpdatedAt:  reservation.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:         model.ID,
		BatchID:    model.BatchID,
		SpaceID:    model.SpaceID,
		Title:      model.Title,
		ReservedBy: model.ReservedBy,
		Date:       model.Date,
		StartHour:  model.StartHour,
		EndHour:    model.EndHour,
		Status:     model.Status,
		Memo:       cloneString(model.Memo),
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toPersistenceRental(rental application.Rental) persistence.Rental {
	return persistence.Rental{
		ID:        rental.ID,
		SpaceID:   rental.SpaceID,
		Renter:    rental.Renter,
		Date:      rental.Date,
		StartHour: rental.StartHour,
		EndHour:   rental.EndHour,
		Memo:      cloneString(rental.Memo),
		CreatedAt: rental.CreatedAt,
	}
}

func toApplicationRental(model persistence.Rental) application.Rental {
	return application.Rental{
		ID:        model.ID,
		SpaceID:   model.SpaceID,
		Renter:    model.Renter,
		Date:      model.Date,
		StartHour: model.StartHour,
		EndHour:   model.EndHour,
		Memo:      cloneString(model.Memo),
		CreatedAt: model.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
