package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/booking"
)

var (
	errBadRequestBody    = errors.New("the request body is not valid JSON")
	errInvalidSpaceID    = errors.New("the space id is not valid")
	errInvalidRentalID   = errors.New("the rental id is not valid")
	errMissingAdminToken = errors.New("an admin token is required for this operation")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "you are not allowed to perform this operation",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "a resource with the same identity already exists"})
	case errors.Is(err, application.ErrSlotUnavailable):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_UNAVAILABLE",
			Message:   "one of the requested slots is no longer available",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the request contains invalid fields",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

// writeVerdict renders a validation outcome: accepted verdicts render the
// given payload with the given status, rejected ones render 422 with the
// reason kind and the bounded offender list.
func (r responder) writeVerdict(ctx context.Context, w http.ResponseWriter, verdict booking.Verdict, status int, payload any) {
	if verdict.Accepted {
		r.writeJSON(ctx, w, status, payload)
		return
	}

	offending := make([]offenceDTO, 0, len(verdict.Offending))
	for _, offence := range verdict.Offending {
		offending = append(offending, offenceDTO{
			SpaceID:   offence.SpaceID,
			Date:      offence.Date.Format(dateLayout),
			StartHour: offence.StartHour,
			Source:    string(offence.Source),
		})
	}

	r.writeJSON(ctx, w, http.StatusUnprocessableEntity, rejectionResponse{
		Accepted:  false,
		Reason:    string(verdict.Reason),
		Message:   verdict.Detail,
		Offending: offending,
	})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

const dateLayout = "2006-01-02"

func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(value))
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type offenceDTO struct {
	SpaceID   string `json:"space_id,omitempty"`
	Date      string `json:"date"`
	StartHour int    `json:"start_hour"`
	Source    string `json:"source,omitempty"`
}

type rejectionResponse struct {
	Accepted  bool         `json:"accepted"`
	Reason    string       `json:"reason"`
	Message   string       `json:"message"`
	Offending []offenceDTO `json:"offending,omitempty"`
}
