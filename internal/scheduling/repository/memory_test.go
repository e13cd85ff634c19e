package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	schederrors "banya/internal/scheduling/errors"
	"banya/pkg/model"
)

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo := NewMemoryRepository()

	if _, err := repo.GetLocation(context.Background(), "nope"); !errors.Is(err, schederrors.ErrNotFound) {
		t.Errorf("GetLocation error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetService(context.Background(), "nope"); !errors.Is(err, schederrors.ErrNotFound) {
		t.Errorf("GetService error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetTechnician(context.Background(), "nope"); !errors.Is(err, schederrors.ErrNotFound) {
		t.Errorf("GetTechnician error = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepositoryFiltersByQualification(t *testing.T) {
	repo := NewMemoryRepository()
	repo.SeedTechnician(&model.Technician{UID: "t-1", Name: "Ana", ServiceUIDs: []string{"svc-1"}})
	repo.SeedTechnician(&model.Technician{UID: "t-2", Name: "Bo", ServiceUIDs: []string{"svc-2"}})
	repo.SeedResource(&model.Resource{UID: "r-1", Name: "Bed", LocationUID: "loc-1", ServiceUIDs: []string{"svc-1"}})
	repo.SeedResource(&model.Resource{UID: "r-2", Name: "Bed", LocationUID: "loc-2", ServiceUIDs: []string{"svc-1"}})

	techs, err := repo.TechniciansForService(context.Background(), "svc-1")
	if err != nil {
		t.Fatalf("TechniciansForService returned error: %v", err)
	}
	if len(techs) != 1 || techs[0].UID != "t-1" {
		t.Errorf("expected only t-1, got %v", techs)
	}

	resources, err := repo.ResourcesForService(context.Background(), "loc-1", "svc-1")
	if err != nil {
		t.Fatalf("ResourcesForService returned error: %v", err)
	}
	if len(resources) != 1 || resources[0].UID != "r-1" {
		t.Errorf("expected only r-1, got %v", resources)
	}
}

func TestMemoryRepositoryBusyFiltersStatus(t *testing.T) {
	repo := NewMemoryRepository()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	window := model.Interval{Start: start.Add(-time.Hour), End: start.Add(time.Hour)}

	confirmed := &model.Appointment{UID: "a-1", ServiceUID: "svc-1", LocationUID: "loc-1", StartTime: start, Status: model.StatusConfirmed}
	if err := repo.CreateAppointment(context.Background(), confirmed,
		&model.TechnicianLink{AppointmentUID: "a-1", TechnicianUID: "t-1", StartTime: start, EndTime: start.Add(45 * time.Minute)},
		&model.ResourceLink{AppointmentUID: "a-1", ResourceUID: "r-1", StartTime: start, EndTime: start.Add(35 * time.Minute)},
	); err != nil {
		t.Fatalf("CreateAppointment returned error: %v", err)
	}

	cancelled := &model.Appointment{UID: "a-2", ServiceUID: "svc-1", LocationUID: "loc-1", StartTime: start, Status: model.StatusCancelled}
	if err := repo.CreateAppointment(context.Background(), cancelled,
		&model.TechnicianLink{AppointmentUID: "a-2", TechnicianUID: "t-2", StartTime: start, EndTime: start.Add(45 * time.Minute)},
		&model.ResourceLink{AppointmentUID: "a-2", ResourceUID: "r-2", StartTime: start, EndTime: start.Add(35 * time.Minute)},
	); err != nil {
		t.Fatalf("CreateAppointment returned error: %v", err)
	}

	busy, err := repo.TechnicianBusy(context.Background(), []string{"t-1", "t-2"}, window)
	if err != nil {
		t.Fatalf("TechnicianBusy returned error: %v", err)
	}
	if len(busy["t-1"]) != 1 {
		t.Errorf("confirmed link missing from occupancy: %v", busy)
	}
	if len(busy["t-2"]) != 0 {
		t.Errorf("cancelled appointment must not occupy the technician: %v", busy)
	}

	resBusy, err := repo.ResourceBusy(context.Background(), []string{"r-1", "r-2"}, window)
	if err != nil {
		t.Fatalf("ResourceBusy returned error: %v", err)
	}
	if len(resBusy["r-1"]) != 1 || len(resBusy["r-2"]) != 0 {
		t.Errorf("resource occupancy must follow appointment status: %v", resBusy)
	}
}

func TestMemoryRepositoryLocks(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.AcquireLocks(ctx, []string{"technician:t-1", "resource:r-1"}, time.Second); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	err := repo.AcquireLocks(shortCtx, []string{"technician:t-1"}, time.Second)
	if !errors.Is(err, schederrors.ErrLockTimeout) {
		t.Fatalf("contended acquire error = %v, want ErrLockTimeout", err)
	}

	if err := repo.ReleaseLocks(ctx, []string{"technician:t-1", "resource:r-1"}); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := repo.AcquireLocks(ctx, []string{"technician:t-1"}, time.Second); err != nil {
		t.Errorf("acquire after release failed: %v", err)
	}
}

func TestMemoryRepositoryLockTimeoutLeavesNothingHeld(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	// Hold the second key so a two-key acquire times out halfway through.
	if err := repo.AcquireLocks(ctx, []string{"resource:r-1"}, time.Second); err != nil {
		t.Fatalf("setup acquire failed: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	err := repo.AcquireLocks(shortCtx, []string{"technician:t-1", "resource:r-1"}, time.Second)
	if !errors.Is(err, schederrors.ErrLockTimeout) {
		t.Fatalf("acquire error = %v, want ErrLockTimeout", err)
	}

	// The first key must have been rolled back.
	if err := repo.AcquireLocks(ctx, []string{"technician:t-1"}, time.Second); err != nil {
		t.Errorf("first key still held after failed acquire: %v", err)
	}
}

func TestMemoryRepositoryLockExpiry(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.AcquireLocks(ctx, []string{"technician:t-1"}, 10*time.Millisecond); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := repo.AcquireLocks(ctx, []string{"technician:t-1"}, time.Second); err != nil {
		t.Errorf("expired lock must be reclaimable: %v", err)
	}
}

func TestMemoryRepositoryShiftWindows(t *testing.T) {
	repo := NewMemoryRepository()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	repo.SeedShift(&model.Shift{UID: "s-1", TechnicianUID: "t-1", LocationUID: "loc-1",
		StartTime: day.Add(8 * time.Hour), EndTime: day.Add(12 * time.Hour)})
	repo.SeedShift(&model.Shift{UID: "s-2", TechnicianUID: "t-1", LocationUID: "loc-1",
		StartTime: day.Add(14 * time.Hour), EndTime: day.Add(18 * time.Hour), Cancelled: true})
	repo.SeedShift(&model.Shift{UID: "s-3", TechnicianUID: "t-1", LocationUID: "loc-2",
		StartTime: day.Add(8 * time.Hour), EndTime: day.Add(12 * time.Hour)})

	window := model.Interval{Start: day, End: day.AddDate(0, 0, 1)}

	shifts, err := repo.ShiftsForTechnicians(context.Background(), "loc-1", []string{"t-1"}, window)
	if err != nil {
		t.Fatalf("ShiftsForTechnicians returned error: %v", err)
	}
	if len(shifts) != 1 || shifts[0].UID != "s-1" {
		t.Errorf("expected only the active loc-1 shift, got %v", shifts)
	}

	all, err := repo.ShiftsForTechnician(context.Background(), "t-1", window, true)
	if err != nil {
		t.Fatalf("ShiftsForTechnician returned error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected all technician shifts with cancelled included, got %d", len(all))
	}
}
