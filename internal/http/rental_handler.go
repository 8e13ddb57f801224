package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/facility-scheduler/internal/application"
)

type rentalService interface {
	RecordRental(ctx context.Context, principal application.Principal, input application.RentalInput) (application.Rental, error)
	ListRentals(ctx context.Context, params application.ListRentalsParams) ([]application.Rental, error)
	CancelRental(ctx context.Context, principal application.Principal, id string) error
}

type RentalHandler struct {
	service   rentalService
	responder responder
	logger    *slog.Logger
}

func NewRentalHandler(service rentalService, logger *slog.Logger) *RentalHandler {
	base := defaultLogger(logger)
	return &RentalHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RentalHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RentalHandler", operation, attrs...)
}

func (h *RentalHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal := requestPrincipal(r)

	var req rentalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode rental request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "actor", principal.Actor, "space_id", input.SpaceID)

	rental, err := h.service.RecordRental(r.Context(), principal, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "rental record failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("rental_id", rental.ID).InfoContext(r.Context(), "rental recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, rentalResponse{Rental: toRentalDTO(rental)})
}

func (h *RentalHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params := application.ListRentalsParams{}
	query := r.URL.Query()

	for _, space := range query["space"] {
		if space = strings.TrimSpace(space); space != "" {
			params.SpaceIDs = append(params.SpaceIDs, space)
		}
	}
	if from := strings.TrimSpace(query.Get("from")); from != "" {
		date, err := parseDate(from)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("from: %w", err))
			return
		}
		params.From = &date
	}
	if to := strings.TrimSpace(query.Get("to")); to != "" {
		date, err := parseDate(to)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("to: %w", err))
			return
		}
		params.To = &date
	}

	rentals, err := h.service.ListRentals(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	items := make([]rentalDTO, 0, len(rentals))
	for _, rental := range rentals {
		items = append(items, toRentalDTO(rental))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, rentalListResponse{Rentals: items})
}

func (h *RentalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := RentalIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRentalID)
		return
	}

	principal := requestPrincipal(r)
	logger := h.log(r.Context(), "Cancel", "actor", principal.Actor, "rental_id", id)

	if err := h.service.CancelRental(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "rental cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rental cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type rentalRequest struct {
	SpaceID   string  `json:"space_id"`
	Renter    string  `json:"renter"`
	Date      string  `json:"date"`
	StartHour int     `json:"start_hour"`
	EndHour   int     `json:"end_hour"`
	Memo      *string `json:"memo,omitempty"`
}

func (req rentalRequest) toInput() (application.RentalInput, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return application.RentalInput{}, fmt.Errorf("date: %w", err)
	}
	return application.RentalInput{
		SpaceID:   req.SpaceID,
		Renter:    req.Renter,
		Date:      date,
		StartHour: req.StartHour,
		EndHour:   req.EndHour,
		Memo:      req.Memo,
	}, nil
}

type rentalDTO struct {
	ID        string  `json:"id"`
	SpaceID   string  `json:"space_id"`
	Renter    string  `json:"renter"`
	Date      string  `json:"date"`
	StartHour int     `json:"start_hour"`
	EndHour   int     `json:"end_hour"`
	Memo      *string `json:"memo,omitempty"`
}

func toRentalDTO(rental application.Rental) rentalDTO {
	return rentalDTO{
		ID:        rental.ID,
		SpaceID:   rental.SpaceID,
		Renter:    rental.Renter,
		Date:      rental.Date.Format(dateLayout),
		StartHour: rental.StartHour,
		EndHour:   rental.EndHour,
		Memo:      rental.Memo,
	}
}

type rentalResponse struct {
	Rental rentalDTO `json:"rental"`
}

type rentalListResponse struct {
	Rentals []rentalDTO `json:"rentals"`
}
