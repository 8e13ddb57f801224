package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/booking"
	"github.com/example/facility-scheduler/internal/recurrence"
)

type stubSpaceService struct {
	spaces     []application.Space
	created    []application.CreateSpaceParams
	createErr  error
	replaced   []application.ReplaceWindowsParams
	replaceErr error
	windows    []application.AvailabilityWindow
	deleted    []string
}

func (s *stubSpaceService) CreateSpace(_ context.Context, params application.CreateSpaceParams) (application.Space, error) {
	s.created = append(s.created, params)
	if s.createErr != nil {
		return application.Space{}, s.createErr
	}
	return application.Space{ID: "space-1", Name: params.Input.Name, Capacity: params.Input.Capacity}, nil
}

func (s *stubSpaceService) UpdateSpace(_ context.Context, params application.UpdateSpaceParams) (application.Space, error) {
	return application.Space{ID: params.SpaceID, Name: params.Input.Name, Capacity: params.Input.Capacity}, nil
}

func (s *stubSpaceService) DeleteSpace(_ context.Context, _ application.Principal, spaceID string) error {
	s.deleted = append(s.deleted, spaceID)
	return nil
}

func (s *stubSpaceService) GetSpace(_ context.Context, id string) (application.Space, error) {
	for _, space := range s.spaces {
		if space.ID == id {
			return space, nil
		}
	}
	return application.Space{}, application.ErrNotFound
}

func (s *stubSpaceService) ListSpaces(context.Context) ([]application.Space, error) {
	return s.spaces, nil
}

func (s *stubSpaceService) ReplaceWindows(_ context.Context, params application.ReplaceWindowsParams) error {
	s.replaced = append(s.replaced, params)
	return s.replaceErr
}

func (s *stubSpaceService) ListWindows(context.Context, []string) ([]application.AvailabilityWindow, error) {
	return s.windows, nil
}

type stubReservationService struct {
	outcome      application.ReservationOutcome
	outcomeErr   error
	lastInput    application.ReservationInput
	previewed    bool
	created      bool
	listed       []application.ListReservationsParams
	reservations []application.Reservation
	cancelled    []string
	cancelErr    error
	dates        []time.Time
	datesErr     error
	lastRule     recurrence.Rule
}

func (s *stubReservationService) CreateReservation(_ context.Context, params application.CreateReservationParams) (application.ReservationOutcome, error) {
	s.created = true
	s.lastInput = params.Input
	return s.outcome, s.outcomeErr
}

func (s *stubReservationService) PreviewReservation(_ context.Context, params application.CreateReservationParams) (application.ReservationOutcome, error) {
	s.previewed = true
	s.lastInput = params.Input
	return s.outcome, s.outcomeErr
}

func (s *stubReservationService) PreviewDates(_ context.Context, _ time.Time, rule recurrence.Rule) ([]time.Time, error) {
	s.lastRule = rule
	return s.dates, s.datesErr
}

func (s *stubReservationService) ListReservations(_ context.Context, params application.ListReservationsParams) ([]application.Reservation, error) {
	s.listed = append(s.listed, params)
	return s.reservations, nil
}

func (s *stubReservationService) CancelReservation(_ context.Context, _ application.Principal, id string) error {
	s.cancelled = append(s.cancelled, id)
	return s.cancelErr
}

func (s *stubReservationService) CancelBatch(_ context.Context, _ application.Principal, batchID string) error {
	s.cancelled = append(s.cancelled, "batch:"+batchID)
	return s.cancelErr
}

type stubRentalService struct {
	rental    application.Rental
	recordErr error
	inputs    []application.RentalInput
	rentals   []application.Rental
	cancelled []string
	cancelErr error
}

func (s *stubRentalService) RecordRental(_ context.Context, _ application.Principal, input application.RentalInput) (application.Rental, error) {
	s.inputs = append(s.inputs, input)
	if s.recordErr != nil {
		return application.Rental{}, s.recordErr
	}
	return s.rental, nil
}

func (s *stubRentalService) ListRentals(context.Context, application.ListRentalsParams) ([]application.Rental, error) {
	return s.rentals, nil
}

func (s *stubRentalService) CancelRental(_ context.Context, _ application.Principal, id string) error {
	s.cancelled = append(s.cancelled, id)
	return s.cancelErr
}

func newTestRouter(spaces *stubSpaceService, reservations *stubReservationService, rentals *stubRentalService) http.Handler {
	cfg := RouterConfig{}
	if spaces != nil {
		cfg.Spaces = NewSpaceHandler(spaces, nil)
	}
	if reservations != nil {
		cfg.Reservations = NewReservationHandler(reservations, nil)
	}
	if rentals != nil {
		cfg.Rentals = NewRentalHandler(rentals, nil)
	}
	return NewRouter(cfg)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestReservationHandlers(t *testing.T) {
	t.Parallel()

	acceptedOutcome := func() application.ReservationOutcome {
		date := time.Date(2025, time.June, 7, 0, 0, 0, 0, time.UTC)
		return application.ReservationOutcome{
			Verdict: booking.Verdict{
				Accepted: true,
				Placements: []booking.Placement{
					{SpaceID: "space-1", Occurrence: booking.Occurrence{Date: date, StartHour: 10, EndHour: 12}},
				},
			},
			BatchID: "batch-1",
			Reservations: []application.Reservation{
				{ID: "res-1", BatchID: "batch-1", SpaceID: "space-1", Title: "Choir", ReservedBy: "dana", Date: date, StartHour: 10, EndHour: 12, Status: "confirmed"},
			},
		}
	}

	t.Run("create parses recurrence request and returns 201 with batch", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{outcome: acceptedOutcome()}
		router := newTestRouter(nil, service, nil)

		body := `{
			"space_ids": ["space-1"],
			"title": "Choir",
			"reserved_by": "dana",
			"date": "2025-06-07",
			"start_hour": 10,
			"duration_hours": 2,
			"recurrence": {"frequency": "weekly", "interval": 1, "ends_on": "2025-06-28"},
			"extras": [{"date": "2025-07-01", "start_hour": 9, "duration_hours": 1}]
		}`
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !service.created || service.previewed {
			t.Fatalf("expected CreateReservation to be called")
		}
		if service.lastInput.Rule.Frequency != recurrence.FrequencyWeekly {
			t.Fatalf("expected weekly rule, got %v", service.lastInput.Rule.Frequency)
		}
		if service.lastInput.Rule.EndsOn == nil || service.lastInput.Rule.EndsOn.Format("2006-01-02") != "2025-06-28" {
			t.Fatalf("expected ends_on to parse, got %v", service.lastInput.Rule.EndsOn)
		}
		if len(service.lastInput.Extras) != 1 || service.lastInput.Extras[0].StartHour != 9 {
			t.Fatalf("expected one extra occurrence, got %+v", service.lastInput.Extras)
		}

		var resp outcomeResponse
		decodeBody(t, rec, &resp)
		if !resp.Accepted || resp.BatchID != "batch-1" {
			t.Fatalf("unexpected outcome response: %+v", resp)
		}
		if len(resp.Reservations) != 1 || resp.Reservations[0].Date != "2025-06-07" {
			t.Fatalf("unexpected reservations payload: %+v", resp.Reservations)
		}
	})

	t.Run("rejected verdict renders 422 with reason and offenders", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{outcome: application.ReservationOutcome{
			Verdict: booking.Verdict{
				Accepted: false,
				Reason:   booking.ReasonConflictRejected,
				Detail:   "conflicts with existing reservations on 2025-06-21 10:00 (space-1)",
				Offending: []booking.Offence{
					{SpaceID: "space-1", Date: time.Date(2025, time.June, 21, 0, 0, 0, 0, time.UTC), StartHour: 10, Source: "external_rental"},
				},
			},
		}}
		router := newTestRouter(nil, service, nil)

		body := `{"space_ids":["space-1"],"title":"Choir","reserved_by":"dana","date":"2025-06-07","start_hour":10,"duration_hours":2}`
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp rejectionResponse
		decodeBody(t, rec, &resp)
		if resp.Accepted {
			t.Fatalf("expected rejection payload, got %+v", resp)
		}
		if resp.Reason != string(booking.ReasonConflictRejected) {
			t.Fatalf("unexpected reason %q", resp.Reason)
		}
		if len(resp.Offending) != 1 || resp.Offending[0].Date != "2025-06-21" || resp.Offending[0].Source != "external_rental" {
			t.Fatalf("unexpected offenders: %+v", resp.Offending)
		}
	})

	t.Run("preview hits the preview path and returns 200", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{outcome: acceptedOutcome()}
		router := newTestRouter(nil, service, nil)

		body := `{"space_ids":["space-1"],"title":"Choir","reserved_by":"dana","date":"2025-06-07","start_hour":10,"duration_hours":2}`
		req := httptest.NewRequest(http.MethodPost, "/reservations/preview", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !service.previewed || service.created {
			t.Fatalf("expected PreviewReservation to be called")
		}
	})

	t.Run("malformed date returns 400 without calling the service", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{}
		router := newTestRouter(nil, service, nil)

		body := `{"space_ids":["space-1"],"title":"Choir","reserved_by":"dana","date":"June 7","start_hour":10,"duration_hours":2}`
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if service.created || service.previewed {
			t.Fatalf("service should not be called on a malformed request")
		}
	})

	t.Run("slot conflict maps to 409 SLOT_UNAVAILABLE", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{outcomeErr: application.ErrSlotUnavailable}
		router := newTestRouter(nil, service, nil)

		body := `{"space_ids":["space-1"],"title":"Choir","reserved_by":"dana","date":"2025-06-07","start_hour":10,"duration_hours":2}`
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.ErrorCode != "SLOT_UNAVAILABLE" {
			t.Fatalf("expected SLOT_UNAVAILABLE, got %q", resp.ErrorCode)
		}
	})

	t.Run("list maps query parameters to the filter", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{}
		router := newTestRouter(nil, service, nil)

		req := httptest.NewRequest(http.MethodGet, "/reservations?space=space-1&space=space-2&from=2025-06-01&to=2025-06-30", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(service.listed) != 1 {
			t.Fatalf("expected one list call, got %d", len(service.listed))
		}
		params := service.listed[0]
		if len(params.SpaceIDs) != 2 || params.SpaceIDs[1] != "space-2" {
			t.Fatalf("unexpected space filter: %+v", params.SpaceIDs)
		}
		if params.From == nil || params.From.Day() != 1 || params.To == nil || params.To.Day() != 30 {
			t.Fatalf("unexpected date range: %+v %+v", params.From, params.To)
		}
	})

	t.Run("delete routes to occurrence and batch cancellation", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{}
		router := newTestRouter(nil, service, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/reservations/res-1", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204 for occurrence cancel, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/reservations/batches/batch-1", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204 for batch cancel, got %d", rec.Code)
		}

		if len(service.cancelled) != 2 || service.cancelled[0] != "res-1" || service.cancelled[1] != "batch:batch-1" {
			t.Fatalf("unexpected cancel calls: %+v", service.cancelled)
		}
	})

	t.Run("date preview parses the rule from query parameters", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{dates: []time.Time{
			time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
		}}
		router := newTestRouter(nil, service, nil)

		target := "/recurrence/preview?seed=2025-06-02&frequency=monthly_by_weekday&ordinals=first,last&weekdays=monday&ends_on=2025-06-30"
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if service.lastRule.Frequency != recurrence.FrequencyMonthlyByWeekday {
			t.Fatalf("unexpected frequency: %v", service.lastRule.Frequency)
		}
		if len(service.lastRule.Ordinals) != 2 || service.lastRule.Ordinals[1] != recurrence.OrdinalLast {
			t.Fatalf("unexpected ordinals: %+v", service.lastRule.Ordinals)
		}
		if len(service.lastRule.Weekdays) != 1 || service.lastRule.Weekdays[0] != time.Monday {
			t.Fatalf("unexpected weekdays: %+v", service.lastRule.Weekdays)
		}

		var resp datePreviewResponse
		decodeBody(t, rec, &resp)
		if len(resp.Dates) != 2 || resp.Dates[0] != "2025-06-02" {
			t.Fatalf("unexpected dates payload: %+v", resp.Dates)
		}
	})

	t.Run("validation error surfaces field errors with 422", func(t *testing.T) {
		t.Parallel()

		vErr := &application.ValidationError{FieldErrors: map[string]string{"title": "title is required"}}
		service := &stubReservationService{outcomeErr: vErr}
		router := newTestRouter(nil, service, nil)

		body := `{"space_ids":["space-1"],"reserved_by":"dana","date":"2025-06-07","start_hour":10,"duration_hours":2}`
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.Errors["title"] != "title is required" {
			t.Fatalf("expected field error for title, got %+v", resp.Errors)
		}
	})
}

func TestSpaceHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create decodes payload and returns 201", func(t *testing.T) {
		t.Parallel()

		service := &stubSpaceService{}
		router := newTestRouter(service, nil, nil)

		body := `{"name":"Hall A","location":"north wing","capacity":40}`
		req := httptest.NewRequest(http.MethodPost, "/spaces", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(service.created) != 1 || service.created[0].Input.Name != "Hall A" {
			t.Fatalf("unexpected create params: %+v", service.created)
		}
	})

	t.Run("duplicate space name maps to 409", func(t *testing.T) {
		t.Parallel()

		service := &stubSpaceService{createErr: application.ErrAlreadyExists}
		router := newTestRouter(service, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/spaces", strings.NewReader(`{"name":"Hall A","capacity":40}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("get unknown space maps to 404", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&stubSpaceService{}, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/spaces/ghost", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("replace windows parses weekday names", func(t *testing.T) {
		t.Parallel()

		service := &stubSpaceService{}
		router := newTestRouter(service, nil, nil)

		body := `{"windows":[{"weekday":"saturday","start_hour":9,"end_hour":17},{"weekday":"Sunday","start_hour":10,"end_hour":14}]}`
		req := httptest.NewRequest(http.MethodPut, "/spaces/space-1/windows", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(service.replaced) != 1 {
			t.Fatalf("expected one replace call, got %d", len(service.replaced))
		}
		windows := service.replaced[0].Windows
		if len(windows) != 2 || windows[0].Weekday != time.Saturday || windows[1].Weekday != time.Sunday {
			t.Fatalf("unexpected windows: %+v", windows)
		}
	})

	t.Run("unknown weekday name returns 400", func(t *testing.T) {
		t.Parallel()

		service := &stubSpaceService{}
		router := newTestRouter(service, nil, nil)

		body := `{"windows":[{"weekday":"caturday","start_hour":9,"end_hour":17}]}`
		req := httptest.NewRequest(http.MethodPut, "/spaces/space-1/windows", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if len(service.replaced) != 0 {
			t.Fatalf("service should not be called for an unknown weekday")
		}
	})

	t.Run("unsupported method returns 405 with Allow header", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&stubSpaceService{}, nil, nil)

		req := httptest.NewRequest(http.MethodPatch, "/spaces", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
			t.Fatalf("expected Allow header to list POST, got %q", allow)
		}
	})
}

func TestRentalHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create decodes payload and returns 201", func(t *testing.T) {
		t.Parallel()

		service := &stubRentalService{rental: application.Rental{
			ID: "rental-1", SpaceID: "space-1", Renter: "city orchestra",
			Date: time.Date(2025, time.June, 21, 0, 0, 0, 0, time.UTC), StartHour: 9, EndHour: 13,
		}}
		router := newTestRouter(nil, nil, service)

		body := `{"space_id":"space-1","renter":"city orchestra","date":"2025-06-21","start_hour":9,"end_hour":13}`
		req := httptest.NewRequest(http.MethodPost, "/rentals", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(service.inputs) != 1 || service.inputs[0].Renter != "city orchestra" {
			t.Fatalf("unexpected record input: %+v", service.inputs)
		}

		var resp rentalResponse
		decodeBody(t, rec, &resp)
		if resp.Rental.ID != "rental-1" || resp.Rental.Date != "2025-06-21" {
			t.Fatalf("unexpected rental payload: %+v", resp.Rental)
		}
	})

	t.Run("delete cancels by path id", func(t *testing.T) {
		t.Parallel()

		service := &stubRentalService{}
		router := newTestRouter(nil, nil, service)

		req := httptest.NewRequest(http.MethodDelete, "/rentals/rental-9", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if len(service.cancelled) != 1 || service.cancelled[0] != "rental-9" {
			t.Fatalf("unexpected cancel calls: %+v", service.cancelled)
		}
	})

	t.Run("cancel unknown rental maps to 404", func(t *testing.T) {
		t.Parallel()

		service := &stubRentalService{cancelErr: application.ErrNotFound}
		router := newTestRouter(nil, nil, service)

		req := httptest.NewRequest(http.MethodDelete, "/rentals/ghost", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
