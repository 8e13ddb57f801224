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
)

type spaceService interface {
	CreateSpace(ctx context.Context, params application.CreateSpaceParams) (application.Space, error)
	UpdateSpace(ctx context.Context, params application.UpdateSpaceParams) (application.Space, error)
	DeleteSpace(ctx context.Context, principal application.Principal, spaceID string) error
	GetSpace(ctx context.Context, id string) (application.Space, error)
	ListSpaces(ctx context.Context) ([]application.Space, error)
	ReplaceWindows(ctx context.Context, params application.ReplaceWindowsParams) error
	ListWindows(ctx context.Context, spaceIDs []string) ([]application.AvailabilityWindow, error)
}

type SpaceHandler struct {
	service   spaceService
	responder responder
	logger    *slog.Logger
}

func NewSpaceHandler(service spaceService, logger *slog.Logger) *SpaceHandler {
	base := defaultLogger(logger)
	return &SpaceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SpaceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SpaceHandler", operation, attrs...)
}

func (h *SpaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req spaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode space request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "actor", principal.Actor)

	space, err := h.service.CreateSpace(r.Context(), application.CreateSpaceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "space creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("space_id", space.ID).InfoContext(r.Context(), "space created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, spaceResponse{Space: toSpaceDTO(space)})
}

func (h *SpaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaceID, ok := SpaceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(spaceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpaceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req spaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "space_id", spaceID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode space update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "actor", principal.Actor, "space_id", spaceID)

	space, err := h.service.UpdateSpace(r.Context(), application.UpdateSpaceParams{
		Principal: principal,
		SpaceID:   spaceID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "space update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "space updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, spaceResponse{Space: toSpaceDTO(space)})
}

func (h *SpaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaceID, ok := SpaceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(spaceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpaceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "actor", principal.Actor, "space_id", spaceID)

	if err := h.service.DeleteSpace(r.Context(), principal, spaceID); err != nil {
		logger.ErrorContext(r.Context(), "space delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "space deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SpaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaceID, ok := SpaceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(spaceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpaceID)
		return
	}

	space, err := h.service.GetSpace(r.Context(), spaceID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, spaceResponse{Space: toSpaceDTO(space)})
}

func (h *SpaceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaces, err := h.service.ListSpaces(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	items := make([]spaceDTO, 0, len(spaces))
	for _, space := range spaces {
		items = append(items, toSpaceDTO(space))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, spaceListResponse{Spaces: items})
}

func (h *SpaceHandler) ReplaceWindows(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaceID, ok := SpaceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(spaceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpaceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req windowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "ReplaceWindows", "space_id", spaceID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode windows request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	windows, err := req.toInputs()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "ReplaceWindows", "actor", principal.Actor, "space_id", spaceID)

	if err := h.service.ReplaceWindows(r.Context(), application.ReplaceWindowsParams{
		Principal: principal,
		SpaceID:   spaceID,
		Windows:   windows,
	}); err != nil {
		logger.ErrorContext(r.Context(), "window replacement failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "availability windows replaced")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SpaceHandler) ListWindows(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaceID, ok := SpaceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(spaceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpaceID)
		return
	}

	windows, err := h.service.ListWindows(r.Context(), []string{spaceID})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	items := make([]windowDTO, 0, len(windows))
	for _, window := range windows {
		items = append(items, windowDTO{
			Weekday:   strings.ToLower(window.Weekday.String()),
			StartHour: window.StartHour,
			EndHour:   window.EndHour,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, windowListResponse{Windows: items})
}

type spaceRequest struct {
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Capacity    int     `json:"capacity"`
	Description *string `json:"description,omitempty"`
}

func (req spaceRequest) toInput() application.SpaceInput {
	return application.SpaceInput{
		Name:        req.Name,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Description: req.Description,
	}
}

type windowRequest struct {
	Weekday   string `json:"weekday"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

type windowsRequest struct {
	Windows []windowRequest `json:"windows"`
}

func (req windowsRequest) toInputs() ([]application.WindowInput, error) {
	windows := make([]application.WindowInput, 0, len(req.Windows))
	for i, window := range req.Windows {
		weekday, err := parseWeekday(window.Weekday)
		if err != nil {
			return nil, fmt.Errorf("windows[%d]: %w", i, err)
		}
		windows = append(windows, application.WindowInput{
			Weekday:   weekday,
			StartHour: window.StartHour,
			EndHour:   window.EndHour,
		})
	}
	return windows, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	default:
		return time.Sunday, fmt.Errorf("unknown weekday %q", name)
	}
}

type spaceDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Location    string  `json:"location,omitempty"`
	Capacity    int     `json:"capacity"`
	Description *string `json:"description,omitempty"`
}

func toSpaceDTO(space application.Space) spaceDTO {
	return spaceDTO{
		ID:          space.ID,
		Name:        space.Name,
		Location:    space.Location,
		Capacity:    space.Capacity,
		Description: space.Description,
	}
}

type spaceResponse struct {
	Space spaceDTO `json:"space"`
}

type spaceListResponse struct {
	Spaces []spaceDTO `json:"spaces"`
}

type windowDTO struct {
	Weekday   string `json:"weekday"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

type windowListResponse struct {
	Windows []windowDTO `json:"windows"`
}
