package http

import (
	"context"
	"log/slog"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/logging"
)

type contextKey string

const (
	principalContextKey     contextKey = "principal"
	spaceIDContextKey       contextKey = "space_id"
	reservationIDContextKey contextKey = "reservation_id"
	rentalIDContextKey      contextKey = "rental_id"
)

// ContextWithPrincipal returns a derived context containing the verified principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the verified principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithSpaceID injects the space identifier resolved from the request path.
func ContextWithSpaceID(ctx context.Context, spaceID string) context.Context {
	return context.WithValue(ctx, spaceIDContextKey, spaceID)
}

// SpaceIDFromContext extracts a space identifier previously associated with the context.
func SpaceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(spaceIDContextKey).(string)
	return id, ok
}

// ContextWithReservationID injects the reservation identifier resolved from the request path.
func ContextWithReservationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reservationIDContextKey, id)
}

// ReservationIDFromContext extracts a reservation identifier previously associated with the context.
func ReservationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(reservationIDContextKey).(string)
	return id, ok
}

// ContextWithRentalID injects the rental identifier resolved from the request path.
func ContextWithRentalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, rentalIDContextKey, id)
}

// RentalIDFromContext extracts a rental identifier previously associated with the context.
func RentalIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(rentalIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request-scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request-scoped logger if one is attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
