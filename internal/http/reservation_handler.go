package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/recurrence"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.ReservationOutcome, error)
	PreviewReservation(ctx context.Context, params application.CreateReservationParams) (application.ReservationOutcome, error)
	PreviewDates(ctx context.Context, seed time.Time, rule recurrence.Rule) ([]time.Time, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
	CancelReservation(ctx context.Context, principal application.Principal, id string) error
	CancelBatch(ctx context.Context, principal application.Principal, batchID string) error
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "Create", false)
}

func (h *ReservationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "Preview", true)
}

func (h *ReservationHandler) submit(w http.ResponseWriter, r *http.Request, operation string, preview bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal := requestPrincipal(r)

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), operation, "actor", principal.Actor, "space_count", len(input.SpaceIDs))

	params := application.CreateReservationParams{Principal: principal, Input: input}
	var outcome application.ReservationOutcome
	if preview {
		outcome, err = h.service.PreviewReservation(r.Context(), params)
	} else {
		outcome, err = h.service.CreateReservation(r.Context(), params)
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusCreated
	if preview {
		status = http.StatusOK
	}
	h.responder.writeVerdict(r.Context(), w, outcome.Verdict, status, toOutcomeResponse(outcome))
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params := application.ListReservationsParams{}
	query := r.URL.Query()

	if spaces := query["space"]; len(spaces) > 0 {
		for _, space := range spaces {
			if space = strings.TrimSpace(space); space != "" {
				params.SpaceIDs = append(params.SpaceIDs, space)
			}
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

	reservations, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	items := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		items = append(items, toReservationDTO(reservation))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationListResponse{Reservations: items})
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("the reservation id is not valid"))
		return
	}

	principal := requestPrincipal(r)
	logger := h.log(r.Context(), "Cancel", "actor", principal.Actor, "reservation_id", id)

	if err := h.service.CancelReservation(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "reservation cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ReservationHandler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	batchID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(batchID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("the batch id is not valid"))
		return
	}

	principal := requestPrincipal(r)
	logger := h.log(r.Context(), "CancelBatch", "actor", principal.Actor, "batch_id", batchID)

	if err := h.service.CancelBatch(r.Context(), principal, batchID); err != nil {
		logger.ErrorContext(r.Context(), "batch cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "batch cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// PreviewDates expands a recurrence rule from query parameters without
// touching any space, for calendar pre-flight in clients.
func (h *ReservationHandler) PreviewDates(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()

	seed, err := parseDate(query.Get("seed"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("seed: %w", err))
		return
	}

	rule, err := ruleFromQuery(query.Get("frequency"), query.Get("interval"), query.Get("ends_on"), query.Get("ordinals"), query.Get("weekdays"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	dates, err := h.service.PreviewDates(r.Context(), seed, rule)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	formatted := make([]string, 0, len(dates))
	for _, date := range dates {
		formatted = append(formatted, date.Format(dateLayout))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, datePreviewResponse{Dates: formatted})
}

// requestPrincipal returns the verified principal when admin middleware ran,
// or an unprivileged principal derived from request headers otherwise.
func requestPrincipal(r *http.Request) application.Principal {
	if principal, ok := PrincipalFromContext(r.Context()); ok {
		return principal
	}
	actor := strings.TrimSpace(r.Header.Get("X-Actor"))
	if actor == "" {
		actor = "anonymous"
	}
	return application.Principal{Actor: actor}
}

type recurrenceRequest struct {
	Frequency string   `json:"frequency"`
	Interval  int      `json:"interval"`
	EndsOn    *string  `json:"ends_on,omitempty"`
	Ordinals  []string `json:"ordinals,omitempty"`
	Weekdays  []string `json:"weekdays,omitempty"`
}

func (req *recurrenceRequest) toRule() (recurrence.Rule, error) {
	if req == nil {
		return recurrence.Rule{}, nil
	}

	frequency, err := parseFrequency(req.Frequency)
	if err != nil {
		return recurrence.Rule{}, err
	}

	rule := recurrence.Rule{Frequency: frequency, Interval: req.Interval}
	if rule.Frequency != recurrence.FrequencyNone && rule.Interval == 0 {
		rule.Interval = 1
	}

	if req.EndsOn != nil {
		endsOn, err := parseDate(*req.EndsOn)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("recurrence.ends_on: %w", err)
		}
		rule.EndsOn = &endsOn
	}

	for _, name := range req.Ordinals {
		ordinal, err := parseOrdinal(name)
		if err != nil {
			return recurrence.Rule{}, err
		}
		rule.Ordinals = append(rule.Ordinals, ordinal)
	}
	for _, name := range req.Weekdays {
		weekday, err := parseWeekday(name)
		if err != nil {
			return recurrence.Rule{}, err
		}
		rule.Weekdays = append(rule.Weekdays, weekday)
	}

	return rule, nil
}

func parseFrequency(name string) (recurrence.Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return recurrence.FrequencyNone, nil
	case "daily":
		return recurrence.FrequencyDaily, nil
	case "weekly":
		return recurrence.FrequencyWeekly, nil
	case "monthly_by_date":
		return recurrence.FrequencyMonthlyByDate, nil
	case "monthly_by_weekday":
		return recurrence.FrequencyMonthlyByWeekday, nil
	default:
		return recurrence.FrequencyNone, fmt.Errorf("unknown frequency %q", name)
	}
}

func parseOrdinal(name string) (recurrence.Ordinal, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "first":
		return recurrence.OrdinalFirst, nil
	case "second":
		return recurrence.OrdinalSecond, nil
	case "third":
		return recurrence.OrdinalThird, nil
	case "fourth":
		return recurrence.OrdinalFourth, nil
	case "last":
		return recurrence.OrdinalLast, nil
	default:
		return 0, fmt.Errorf("unknown ordinal %q", name)
	}
}

func ruleFromQuery(frequency, interval, endsOn, ordinals, weekdays string) (recurrence.Rule, error) {
	req := recurrenceRequest{Frequency: frequency}

	if interval = strings.TrimSpace(interval); interval != "" {
		if _, err := fmt.Sscanf(interval, "%d", &req.Interval); err != nil {
			return recurrence.Rule{}, fmt.Errorf("interval: %w", err)
		}
	}
	if endsOn = strings.TrimSpace(endsOn); endsOn != "" {
		req.EndsOn = &endsOn
	}
	if ordinals = strings.TrimSpace(ordinals); ordinals != "" {
		req.Ordinals = strings.Split(ordinals, ",")
	}
	if weekdays = strings.TrimSpace(weekdays); weekdays != "" {
		req.Weekdays = strings.Split(weekdays, ",")
	}

	return req.toRule()
}

type extraOccurrenceRequest struct {
	Date          string `json:"date"`
	StartHour     int    `json:"start_hour"`
	DurationHours int    `json:"duration_hours"`
}

type reservationRequest struct {
	SpaceIDs      []string                 `json:"space_ids"`
	Title         string                   `json:"title"`
	ReservedBy    string                   `json:"reserved_by"`
	Date          string                   `json:"date"`
	StartHour     int                      `json:"start_hour"`
	DurationHours int                      `json:"duration_hours"`
	Memo          *string                  `json:"memo,omitempty"`
	Recurrence    *recurrenceRequest       `json:"recurrence,omitempty"`
	Extras        []extraOccurrenceRequest `json:"extras,omitempty"`
}

func (req reservationRequest) toInput() (application.ReservationInput, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return application.ReservationInput{}, fmt.Errorf("date: %w", err)
	}

	rule, err := req.Recurrence.toRule()
	if err != nil {
		return application.ReservationInput{}, err
	}

	input := application.ReservationInput{
		SpaceIDs:      req.SpaceIDs,
		Title:         req.Title,
		ReservedBy:    req.ReservedBy,
		Date:          date,
		StartHour:     req.StartHour,
		DurationHours: req.DurationHours,
		Memo:          req.Memo,
		Rule:          rule,
	}

	for i, extra := range req.Extras {
		extraDate, err := parseDate(extra.Date)
		if err != nil {
			return application.ReservationInput{}, fmt.Errorf("extras[%d].date: %w", i, err)
		}
		input.Extras = append(input.Extras, application.ExtraOccurrence{
			Date:          extraDate,
			StartHour:     extra.StartHour,
			DurationHours: extra.DurationHours,
		})
	}

	return input, nil
}

type reservationDTO struct {
	ID         string  `json:"id"`
	BatchID    string  `json:"batch_id"`
	SpaceID    string  `json:"space_id"`
	Title      string  `json:"title"`
	ReservedBy string  `json:"reserved_by"`
	Date       string  `json:"date"`
	StartHour  int     `json:"start_hour"`
	EndHour    int     `json:"end_hour"`
	Status     string  `json:"status"`
	Memo       *string `json:"memo,omitempty"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:         reservation.ID,
		BatchID:    reservation.BatchID,
		SpaceID:    reservation.SpaceID,
		Title:      reservation.Title,
		ReservedBy: reservation.ReservedBy,
		Date:       reservation.Date.Format(dateLayout),
		StartHour:  reservation.StartHour,
		EndHour:    reservation.EndHour,
		Status:     reservation.Status,
		Memo:       reservation.Memo,
	}
}

type placementDTO struct {
	SpaceID   string `json:"space_id"`
	Date      string `json:"date"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

type outcomeResponse struct {
	Accepted     bool             `json:"accepted"`
	BatchID      string           `json:"batch_id,omitempty"`
	Placements   []placementDTO   `json:"placements"`
	Reservations []reservationDTO `json:"reservations,omitempty"`
}

func toOutcomeResponse(outcome application.ReservationOutcome) outcomeResponse {
	resp := outcomeResponse{
		Accepted: outcome.Accepted(),
		BatchID:  outcome.BatchID,
	}

	resp.Placements = make([]placementDTO, 0, len(outcome.Verdict.Placements))
	for _, placement := range outcome.Verdict.Placements {
		resp.Placements = append(resp.Placements, placementDTO{
			SpaceID:   placement.SpaceID,
			Date:      placement.Occurrence.Date.Format(dateLayout),
			StartHour: placement.Occurrence.StartHour,
			EndHour:   placement.Occurrence.EndHour,
		})
	}

	for _, reservation := range outcome.Reservations {
		resp.Reservations = append(resp.Reservations, toReservationDTO(reservation))
	}

	return resp
}

type reservationListResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type datePreviewResponse struct {
	Dates []string `json:"dates"`
}
