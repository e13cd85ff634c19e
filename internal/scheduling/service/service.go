package service

import (
	"context"
	"time"

	"banya/internal/scheduling/repository"
	"banya/internal/scheduling/validator"
	"banya/pkg/config"
	"banya/pkg/logger"
	"banya/pkg/model"
)

// SchedulingService is the appointment scheduling core: slot discovery,
// race-safe booking, and technician shift planning.
type SchedulingService interface {
	Availability(ctx context.Context, locationUID, serviceUID, targetDate string) ([]string, error)
	PackageAvailability(ctx context.Context, req *model.PackageAvailabilityRequest) ([]string, error)
	Book(ctx context.Context, customerUID string, req *model.AppointmentCreate) (*model.Appointment, error)
	PlanShifts(ctx context.Context, technicianUID string, items []model.ShiftCreateItem) (*ShiftPlanResult, error)
	ShiftCalendar(ctx context.Context, technicianUID string, days int, includeCancelled bool) (*Calendar, error)
}

type schedulingService struct {
	repo      repository.Repository
	validator *validator.ScheduleValidator
	cache     *AvailabilityCache
	events    EventPublisher
	cfg       *config.Config
	log       *logger.Logger

	// now is swapped out in tests.
	now func() time.Time
}

func NewSchedulingService(
	repo repository.Repository,
	v *validator.ScheduleValidator,
	cache *AvailabilityCache,
	events EventPublisher,
	cfg *config.Config,
) SchedulingService {
	if events == nil {
		events = NopEventPublisher{}
	}
	return &schedulingService{
		repo:      repo,
		validator: v,
		cache:     cache,
		events:    events,
		cfg:       cfg,
		log:       cfg.Log,
		now:       time.Now,
	}
}
