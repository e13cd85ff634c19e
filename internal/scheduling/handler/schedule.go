package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"banya/internal/scheduling/service"
	apperrors "banya/pkg/errors"
	apphttp "banya/pkg/http"
	"banya/pkg/logger"
	"banya/pkg/middleware"
	"banya/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Caller identity headers. Authentication itself lives at the gateway; the
// scheduling surface only reads the propagated identities.
const (
	HeaderCustomerUID   = "X-Customer-UID"
	HeaderTechnicianUID = "X-Technician-UID"
)

// AvailabilityResponse always carries a non-nil slot list so an empty day
// serializes as [] rather than null.
type AvailabilityResponse struct {
	AvailableSlots []string `json:"available_slots"`
}

// AppointmentPublic is the booking confirmation body.
type AppointmentPublic struct {
	UID         string    `json:"uid"`
	Status      string    `json:"status"`
	StartTime   time.Time `json:"start_time"`
	ServiceUID  string    `json:"service_uid"`
	LocationUID string    `json:"location_uid"`
}

type ShiftPlanRequest struct {
	Shifts []model.ShiftCreateItem `json:"shifts"`
}

type ScheduleHandler struct {
	service service.SchedulingService
	logger  *logger.Logger
}

func NewScheduleHandler(svc service.SchedulingService, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: svc,
		logger:  log,
	}
}

func (h *ScheduleHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/schedule/availability", h.GetAvailability)
	router.POST("/schedule/package-availability", h.GetPackageAvailability)
	router.POST("/schedule/appointments", h.CreateAppointment)
	router.GET("/schedule/my-shifts", h.GetMyShifts)
	router.POST("/schedule/my-shifts", h.CreateMyShifts)
}

func (h *ScheduleHandler) GetAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	locationUID := query.Get("location_uid")
	serviceUID := query.Get("service_uid")
	targetDate := query.Get("target_date")

	slots, err := h.service.Availability(r.Context(), locationUID, serviceUID, targetDate)
	if err != nil {
		h.logError(r, "Availability lookup failed", err)
		apphttp.WriteDetailError(w, err)
		return
	}

	if slots == nil {
		slots = []string{}
	}
	apphttp.WriteSuccess(w, AvailabilityResponse{AvailableSlots: slots})
}

func (h *ScheduleHandler) GetPackageAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PackageAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apphttp.WriteDetailError(w, apperrors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	slots, err := h.service.PackageAvailability(r.Context(), &req)
	if err != nil {
		h.logError(r, "Package availability lookup failed", err)
		apphttp.WriteDetailError(w, err)
		return
	}

	if slots == nil {
		slots = []string{}
	}
	apphttp.WriteSuccess(w, AvailabilityResponse{AvailableSlots: slots})
}

func (h *ScheduleHandler) CreateAppointment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.AppointmentCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apphttp.WriteDetailError(w, apperrors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	customerUID := r.Header.Get(HeaderCustomerUID)

	appt, err := h.service.Book(r.Context(), customerUID, &req)
	if err != nil {
		h.logError(r, "Booking failed", err)
		apphttp.WriteDetailError(w, err)
		return
	}

	apphttp.WriteCreated(w, AppointmentPublic{
		UID:         appt.UID,
		Status:      appt.Status,
		StartTime:   appt.StartTime,
		ServiceUID:  appt.ServiceUID,
		LocationUID: appt.LocationUID,
	})
}

func (h *ScheduleHandler) GetMyShifts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	technicianUID := r.Header.Get(HeaderTechnicianUID)
	if technicianUID == "" {
		apphttp.WriteDetailError(w, apperrors.InvalidInput("X-Technician-UID header is required"))
		return
	}

	query := r.URL.Query()
	days := 0
	if raw := query.Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			apphttp.WriteDetailError(w, apperrors.InvalidInput("days must be a positive integer"))
			return
		}
		days = parsed
	}
	includeCancelled := query.Get("include_cancelled") == "true"

	calendar, err := h.service.ShiftCalendar(r.Context(), technicianUID, days, includeCancelled)
	if err != nil {
		h.logError(r, "Shift calendar lookup failed", err)
		apphttp.WriteDetailError(w, err)
		return
	}
	apphttp.WriteSuccess(w, calendar)
}

func (h *ScheduleHandler) CreateMyShifts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	technicianUID := r.Header.Get(HeaderTechnicianUID)
	if technicianUID == "" {
		apphttp.WriteDetailError(w, apperrors.InvalidInput("X-Technician-UID header is required"))
		return
	}

	var req ShiftPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apphttp.WriteDetailError(w, apperrors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	result, err := h.service.PlanShifts(r.Context(), technicianUID, req.Shifts)
	if err != nil {
		h.logError(r, "Shift plan failed", err)
		apphttp.WriteDetailError(w, err)
		return
	}
	apphttp.WriteCreated(w, result)
}

func (h *ScheduleHandler) logError(r *http.Request, msg string, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.Code == apperrors.CodeInternal {
		h.logger.Error(msg, "request_id", middleware.RequestID(r.Context()), "error", err)
		return
	}
	h.logger.Debug(msg, "request_id", middleware.RequestID(r.Context()), "code", appErr.Code, "error", err)
}
