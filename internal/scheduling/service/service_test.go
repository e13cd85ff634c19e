package service

import (
	"io"
	"time"

	"banya/internal/scheduling/repository"
	"banya/internal/scheduling/validator"
	"banya/pkg/config"
	"banya/pkg/logger"
	"banya/pkg/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Format: logger.JSON, Output: io.Discard})
}

func testConfig() *config.Config {
	return &config.Config{
		SlotGranularityMin: 10,
		TimeZone:           "UTC",
		Location:           time.UTC,

		MorningStart:   "08:30",
		MorningEnd:     "12:30",
		AfternoonStart: "14:00",
		AfternoonEnd:   "18:00",

		MaxShiftPlanDays:  30,
		ShiftCalendarDays: 14,

		SlotLockTTL:        10 * time.Second,
		LockAcquireTimeout: 250 * time.Millisecond,

		Log: testLogger(),
	}
}

func newTestService(repo *repository.MemoryRepository, cfg *config.Config) *schedulingService {
	svc := NewSchedulingService(
		repo,
		validator.NewScheduleValidator(cfg.Log),
		NewAvailabilityCache(nil, 0, cfg.Log),
		NopEventPublisher{},
		cfg,
	)
	return svc.(*schedulingService)
}

func intPtr(v int) *int { return &v }

// seedClinic loads one location, one service (30m technician, 20m room,
// 15m buffer), one qualified technician, and one compatible bed.
func seedClinic(repo *repository.MemoryRepository) {
	repo.SeedLocation(&model.Location{UID: "loc-1", Name: "Downtown"})
	repo.SeedService(&model.Service{
		UID:                   "svc-1",
		Name:                  "Deep Tissue Massage",
		TechnicianDurationMin: 30,
		RoomDurationMin:       20,
		BufferMin:             intPtr(15),
	})
	repo.SeedTechnician(&model.Technician{UID: "tech-1", Name: "Ana", ServiceUIDs: []string{"svc-1"}})
	repo.SeedResource(&model.Resource{UID: "bed-1", Name: "Bed 1", LocationUID: "loc-1", ServiceUIDs: []string{"svc-1"}})
}

func seedShift(repo *repository.MemoryRepository, uid, technicianUID, locationUID, start, end string) {
	s, _ := time.Parse(time.RFC3339, start)
	e, _ := time.Parse(time.RFC3339, end)
	repo.SeedShift(&model.Shift{
		UID:           uid,
		TechnicianUID: technicianUID,
		LocationUID:   locationUID,
		StartTime:     s,
		EndTime:       e,
	})
}
