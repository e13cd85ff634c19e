package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"banya/internal/scheduling/service"
	apperrors "banya/pkg/errors"
	"banya/pkg/logger"
	"banya/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockSchedulingService struct {
	availabilityFunc        func(ctx context.Context, locationUID, serviceUID, targetDate string) ([]string, error)
	packageAvailabilityFunc func(ctx context.Context, req *model.PackageAvailabilityRequest) ([]string, error)
	bookFunc                func(ctx context.Context, customerUID string, req *model.AppointmentCreate) (*model.Appointment, error)
	planShiftsFunc          func(ctx context.Context, technicianUID string, items []model.ShiftCreateItem) (*service.ShiftPlanResult, error)
	shiftCalendarFunc       func(ctx context.Context, technicianUID string, days int, includeCancelled bool) (*service.Calendar, error)
}

func (m *mockSchedulingService) Availability(ctx context.Context, locationUID, serviceUID, targetDate string) ([]string, error) {
	return m.availabilityFunc(ctx, locationUID, serviceUID, targetDate)
}

func (m *mockSchedulingService) PackageAvailability(ctx context.Context, req *model.PackageAvailabilityRequest) ([]string, error) {
	return m.packageAvailabilityFunc(ctx, req)
}

func (m *mockSchedulingService) Book(ctx context.Context, customerUID string, req *model.AppointmentCreate) (*model.Appointment, error) {
	return m.bookFunc(ctx, customerUID, req)
}

func (m *mockSchedulingService) PlanShifts(ctx context.Context, technicianUID string, items []model.ShiftCreateItem) (*service.ShiftPlanResult, error) {
	return m.planShiftsFunc(ctx, technicianUID, items)
}

func (m *mockSchedulingService) ShiftCalendar(ctx context.Context, technicianUID string, days int, includeCancelled bool) (*service.Calendar, error) {
	return m.shiftCalendarFunc(ctx, technicianUID, days, includeCancelled)
}

func newTestRouter(mock *mockSchedulingService) *httprouter.Router {
	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
	router := httprouter.New()
	NewScheduleHandler(mock, log).RegisterRoutes(router)
	return router
}

func TestGetAvailability(t *testing.T) {
	var gotLocation, gotService, gotDate string
	mock := &mockSchedulingService{
		availabilityFunc: func(_ context.Context, locationUID, serviceUID, targetDate string) ([]string, error) {
			gotLocation, gotService, gotDate = locationUID, serviceUID, targetDate
			return []string{"08:30", "08:40"}, nil
		},
	}
	router := newTestRouter(mock)

	req := httptest.NewRequest(http.MethodGet, "/schedule/availability?location_uid=loc-1&service_uid=svc-1&target_date=2026-03-02", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotLocation != "loc-1" || gotService != "svc-1" || gotDate != "2026-03-02" {
		t.Errorf("query params not forwarded: %s %s %s", gotLocation, gotService, gotDate)
	}

	var body AvailabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.AvailableSlots) != 2 || body.AvailableSlots[0] != "08:30" {
		t.Errorf("body = %+v", body)
	}
}

func TestGetAvailabilityEmptySerializesAsArray(t *testing.T) {
	mock := &mockSchedulingService{
		availabilityFunc: func(context.Context, string, string, string) ([]string, error) {
			return nil, nil
		},
	}
	router := newTestRouter(mock)

	req := httptest.NewRequest(http.MethodGet, "/schedule/availability?location_uid=l&service_uid=s&target_date=2026-03-02", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"available_slots":[]`) {
		t.Errorf("empty availability must serialize as [], got %s", rec.Body.String())
	}
}

func TestGetAvailabilityErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"not found", apperrors.NotFoundWithID("location", "loc-x"), 404, "location"},
		{"validation", apperrors.Validation("target_date must be in YYYY-MM-DD format", nil), 400, "target_date"},
		{"internal is masked", apperrors.Internal("mongo exploded", nil), 500, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockSchedulingService{
				availabilityFunc: func(context.Context, string, string, string) ([]string, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(mock)

			req := httptest.NewRequest(http.MethodGet, "/schedule/availability?location_uid=l&service_uid=s&target_date=x", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if !strings.Contains(body["detail"], tt.wantDetail) {
				t.Errorf("detail = %q, want it to contain %q", body["detail"], tt.wantDetail)
			}
		})
	}
}

func TestGetPackageAvailability(t *testing.T) {
	var got *model.PackageAvailabilityRequest
	mock := &mockSchedulingService{
		packageAvailabilityFunc: func(_ context.Context, req *model.PackageAvailabilityRequest) ([]string, error) {
			got = req
			return []string{"09:00", "09:10"}, nil
		},
	}
	router := newTestRouter(mock)

	payload := `{"location_uid":"loc-1","ordered_service_uids":["svc-1","svc-2"],"target_date":"2026-03-02","preferred_technician_uid":"tech-1"}`
	req := httptest.NewRequest(http.MethodPost, "/schedule/package-availability", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if got == nil || got.LocationUID != "loc-1" || len(got.OrderedServiceUIDs) != 2 || got.PreferredTechnicianUID != "tech-1" {
		t.Errorf("request not forwarded: %+v", got)
	}

	var body AvailabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.AvailableSlots) != 2 || body.AvailableSlots[0] != "09:00" {
		t.Errorf("body = %+v", body)
	}
}

func TestGetPackageAvailabilityErrors(t *testing.T) {
	mock := &mockSchedulingService{
		packageAvailabilityFunc: func(context.Context, *model.PackageAvailabilityRequest) ([]string, error) {
			return nil, apperrors.NotFoundWithID("service", "svc-x")
		},
	}
	router := newTestRouter(mock)

	req := httptest.NewRequest(http.MethodPost, "/schedule/package-availability", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d, want 400", rec.Code)
	}

	payload := `{"location_uid":"loc-1","ordered_service_uids":["svc-x"],"target_date":"2026-03-02"}`
	req = httptest.NewRequest(http.MethodPost, "/schedule/package-availability", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown service: status = %d, want 404", rec.Code)
	}
}

func TestCreateAppointment(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock := &mockSchedulingService{
		bookFunc: func(_ context.Context, customerUID string, req *model.AppointmentCreate) (*model.Appointment, error) {
			if customerUID != "cust-7" {
				t.Errorf("customer uid = %s, want cust-7", customerUID)
			}
			return &model.Appointment{
				UID:         "appt-1",
				CustomerUID: customerUID,
				ServiceUID:  req.ServiceUID,
				LocationUID: req.LocationUID,
				StartTime:   req.StartTime,
				Status:      model.StatusConfirmed,
			}, nil
		},
	}
	router := newTestRouter(mock)

	payload := `{"service_uid":"svc-1","location_uid":"loc-1","start_time":"2026-03-02T09:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/schedule/appointments", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderCustomerUID, "cust-7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var body AppointmentPublic
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.UID != "appt-1" || body.Status != "confirmed" {
		t.Errorf("body = %+v", body)
	}
	if !body.StartTime.Equal(start) {
		t.Errorf("start_time = %v, want %v", body.StartTime, start)
	}
	if body.ServiceUID != "svc-1" || body.LocationUID != "loc-1" {
		t.Errorf("echoed identifiers wrong: %+v", body)
	}
}

func TestCreateAppointmentConflict(t *testing.T) {
	mock := &mockSchedulingService{
		bookFunc: func(context.Context, string, *model.AppointmentCreate) (*model.Appointment, error) {
			return nil, apperrors.Conflict("the requested slot was taken by a concurrent booking")
		},
	}
	router := newTestRouter(mock)

	payload := `{"service_uid":"svc-1","location_uid":"loc-1","start_time":"2026-03-02T09:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/schedule/appointments", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["detail"] == "" {
		t.Error("conflict body must carry a detail reason")
	}
}

func TestCreateAppointmentBadBody(t *testing.T) {
	mock := &mockSchedulingService{}
	router := newTestRouter(mock)

	req := httptest.NewRequest(http.MethodPost, "/schedule/appointments", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestShiftEndpointsRequireTechnicianHeader(t *testing.T) {
	mock := &mockSchedulingService{}
	router := newTestRouter(mock)

	req := httptest.NewRequest(http.MethodGet, "/schedule/my-shifts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET without header: status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/schedule/my-shifts", strings.NewReader(`{"shifts":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST without header: status = %d, want 400", rec.Code)
	}
}

func TestCreateMyShifts(t *testing.T) {
	mock := &mockSchedulingService{
		planShiftsFunc: func(_ context.Context, technicianUID string, items []model.ShiftCreateItem) (*service.ShiftPlanResult, error) {
			if technicianUID != "tech-1" {
				t.Errorf("technician uid = %s, want tech-1", technicianUID)
			}
			if len(items) != 1 || items[0].Period != model.PeriodMorning {
				t.Errorf("items not forwarded: %+v", items)
			}
			return &service.ShiftPlanResult{
				Created: []*model.Shift{{UID: "shift-1", TechnicianUID: technicianUID}},
				Skipped: []service.SkippedShift{},
			}, nil
		},
	}
	router := newTestRouter(mock)

	payload := `{"shifts":[{"date":"2026-03-02","period":"morning","location_uid":"loc-1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/schedule/my-shifts", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTechnicianUID, "tech-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
}

func TestGetMyShifts(t *testing.T) {
	var gotDays int
	var gotIncludeCancelled bool
	mock := &mockSchedulingService{
		shiftCalendarFunc: func(_ context.Context, technicianUID string, days int, includeCancelled bool) (*service.Calendar, error) {
			gotDays, gotIncludeCancelled = days, includeCancelled
			return &service.Calendar{
				TechnicianUID: technicianUID,
				Days: []service.CalendarDay{
					{Date: "2026-03-02", Morning: &service.CalendarSlot{ShiftUID: "shift-1", LocationUID: "loc-1", StartTime: "08:30", EndTime: "12:30"}},
				},
			}, nil
		},
	}
	router := newTestRouter(mock)

	req := httptest.NewRequest(http.MethodGet, "/schedule/my-shifts?days=7&include_cancelled=true", nil)
	req.Header.Set(HeaderTechnicianUID, "tech-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotDays != 7 || !gotIncludeCancelled {
		t.Errorf("query params not forwarded: days=%d include_cancelled=%v", gotDays, gotIncludeCancelled)
	}
	var calendar service.Calendar
	if err := json.NewDecoder(rec.Body).Decode(&calendar); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if calendar.TechnicianUID != "tech-1" || len(calendar.Days) != 1 {
		t.Errorf("calendar = %+v", calendar)
	}
	if calendar.Days[0].Morning == nil || calendar.Days[0].Morning.StartTime != "08:30" {
		t.Errorf("morning slot = %+v", calendar.Days[0].Morning)
	}
}
