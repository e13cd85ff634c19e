package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	schederrors "banya/internal/scheduling/errors"
	apperrors "banya/pkg/errors"
	"banya/pkg/model"

	"github.com/google/uuid"
)

// ShiftPlanResult reports which requested windows were persisted and which
// were skipped, with a reason per skip.
type ShiftPlanResult struct {
	Created []*model.Shift `json:"created"`
	Skipped []SkippedShift `json:"skipped"`
}

type SkippedShift struct {
	Date   string            `json:"date"`
	Period model.ShiftPeriod `json:"period"`
	Reason string            `json:"reason"`
}

// Calendar is the technician-facing view of upcoming days and which preset
// windows are claimed on each.
type Calendar struct {
	TechnicianUID string        `json:"technician_uid"`
	Days          []CalendarDay `json:"days"`
}

type CalendarDay struct {
	Date      string        `json:"date"`
	Morning   *CalendarSlot `json:"morning"`
	Afternoon *CalendarSlot `json:"afternoon"`
}

type CalendarSlot struct {
	ShiftUID    string `json:"shift_uid"`
	LocationUID string `json:"location_uid"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Cancelled   bool   `json:"cancelled,omitempty"`
}

// PlanShifts persists the requested working windows for one technician.
// Out-of-window dates, duplicate day+period claims, and overlaps with
// existing shifts are skipped rather than failing the whole submission.
func (s *schedulingService) PlanShifts(ctx context.Context, technicianUID string, items []model.ShiftCreateItem) (*ShiftPlanResult, error) {
	if err := s.validator.ValidateShiftPlan(items); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}

	if _, err := s.repo.GetTechnician(ctx, technicianUID); err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("technician", technicianUID)
		}
		return nil, apperrors.Internal("failed to load technician", err)
	}

	// The duplicate and overlap checks below read existing shifts before the
	// insert, so concurrent plans for one technician are serialized under an
	// advisory lock to keep those checks valid through the write.
	lockKeys := []string{"shift-plan:" + technicianUID}
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockAcquireTimeout)
	defer cancel()
	if err := s.repo.AcquireLocks(lockCtx, lockKeys, s.cfg.SlotLockTTL); err != nil {
		if errors.Is(err, schederrors.ErrLockTimeout) {
			return nil, apperrors.LockTimeout("could not reserve the shift plan in time")
		}
		return nil, apperrors.Internal("failed to acquire shift plan lock", err)
	}
	defer func() {
		if err := s.repo.ReleaseLocks(context.WithoutCancel(ctx), lockKeys); err != nil {
			s.log.Warn("Failed to release shift plan lock", "error", err)
		}
	}()

	today := s.todayStart()
	horizon := today.AddDate(0, 0, s.cfg.MaxShiftPlanDays)

	// One window covering the whole plannable range is enough to detect
	// duplicates and overlaps against what is already stored.
	existing, err := s.repo.ShiftsForTechnician(ctx, technicianUID, model.Interval{Start: today, End: horizon.AddDate(0, 0, 1)}, false)
	if err != nil {
		return nil, apperrors.Internal("failed to load existing shifts", err)
	}

	claimed := make(map[string]bool, len(existing))
	for _, shift := range existing {
		claimed[s.dayPeriodKey(shift.StartTime, shift.Period)] = true
	}

	result := &ShiftPlanResult{Skipped: []SkippedShift{}}
	var toCreate []*model.Shift

	for _, item := range items {
		day, err := time.ParseInLocation("2006-01-02", item.Date, s.cfg.Location)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid date: %s", item.Date))
		}
		if _, err := s.repo.GetLocation(ctx, item.LocationUID); err != nil {
			if errors.Is(err, schederrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("location", item.LocationUID)
			}
			return nil, apperrors.Internal("failed to load location", err)
		}

		if day.Before(today) || day.After(horizon) {
			result.Skipped = append(result.Skipped, SkippedShift{
				Date:   item.Date,
				Period: item.Period,
				Reason: fmt.Sprintf("date must be within the next %d days", s.cfg.MaxShiftPlanDays),
			})
			continue
		}

		key := item.Date + "|" + string(item.Period)
		if claimed[key] {
			result.Skipped = append(result.Skipped, SkippedShift{
				Date:   item.Date,
				Period: item.Period,
				Reason: "a shift already exists for this date and period",
			})
			continue
		}

		start, end, err := s.periodWindow(day, item.Period)
		if err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}

		overlaps := false
		for _, shift := range existing {
			if shift.StartTime.Before(end) && shift.EndTime.After(start) {
				overlaps = true
				break
			}
		}
		if overlaps {
			result.Skipped = append(result.Skipped, SkippedShift{
				Date:   item.Date,
				Period: item.Period,
				Reason: "overlaps an existing shift",
			})
			continue
		}

		shift := &model.Shift{
			UID:           uuid.NewString(),
			TechnicianUID: technicianUID,
			LocationUID:   item.LocationUID,
			StartTime:     start,
			EndTime:       end,
			Period:        item.Period,
		}
		claimed[key] = true
		existing = append(existing, shift)
		toCreate = append(toCreate, shift)
	}

	if len(toCreate) > 0 {
		err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			return s.repo.CreateShifts(txCtx, toCreate)
		})
		if err != nil {
			return nil, apperrors.Internal("failed to persist shifts", err)
		}
	}
	result.Created = toCreate
	if result.Created == nil {
		result.Created = []*model.Shift{}
	}

	s.log.Info("Shift plan processed",
		"technician_uid", technicianUID,
		"created", len(result.Created),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// ShiftCalendar returns the technician's next days with the claimed morning
// and afternoon windows filled in. days <= 0 falls back to the configured
// default and is capped at the plannable horizon.
func (s *schedulingService) ShiftCalendar(ctx context.Context, technicianUID string, days int, includeCancelled bool) (*Calendar, error) {
	if _, err := s.repo.GetTechnician(ctx, technicianUID); err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("technician", technicianUID)
		}
		return nil, apperrors.Internal("failed to load technician", err)
	}

	if days <= 0 {
		days = s.cfg.ShiftCalendarDays
	}
	if days > s.cfg.MaxShiftPlanDays {
		days = s.cfg.MaxShiftPlanDays
	}

	today := s.todayStart()
	window := model.Interval{Start: today, End: today.AddDate(0, 0, days)}

	shifts, err := s.repo.ShiftsForTechnician(ctx, technicianUID, window, includeCancelled)
	if err != nil {
		return nil, apperrors.Internal("failed to load shifts", err)
	}

	byDay := make(map[string][]*model.Shift)
	for _, shift := range shifts {
		date := shift.StartTime.In(s.cfg.Location).Format("2006-01-02")
		byDay[date] = append(byDay[date], shift)
	}

	calendar := &Calendar{TechnicianUID: technicianUID, Days: make([]CalendarDay, 0, days)}
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i).Format("2006-01-02")
		day := CalendarDay{Date: date}
		for _, shift := range byDay[date] {
			slot := &CalendarSlot{
				ShiftUID:    shift.UID,
				LocationUID: shift.LocationUID,
				StartTime:   shift.StartTime.In(s.cfg.Location).Format("15:04"),
				EndTime:     shift.EndTime.In(s.cfg.Location).Format("15:04"),
				Cancelled:   shift.Cancelled,
			}
			switch shift.Period {
			case model.PeriodMorning:
				day.Morning = slot
			case model.PeriodAfternoon:
				day.Afternoon = slot
			}
		}
		calendar.Days = append(calendar.Days, day)
	}
	return calendar, nil
}

func (s *schedulingService) todayStart() time.Time {
	now := s.now().In(s.cfg.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
}

func (s *schedulingService) dayPeriodKey(start time.Time, period model.ShiftPeriod) string {
	return start.In(s.cfg.Location).Format("2006-01-02") + "|" + string(period)
}

// periodWindow resolves a preset period name into concrete bounds on the
// given day, in the business time zone.
func (s *schedulingService) periodWindow(day time.Time, period model.ShiftPeriod) (time.Time, time.Time, error) {
	var startHHMM, endHHMM string
	switch period {
	case model.PeriodMorning:
		startHHMM, endHHMM = s.cfg.MorningStart, s.cfg.MorningEnd
	case model.PeriodAfternoon:
		startHHMM, endHHMM = s.cfg.AfternoonStart, s.cfg.AfternoonEnd
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown shift period: %s", period)
	}

	start, err := atTimeOfDay(day, startHHMM, s.cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := atTimeOfDay(day, endHHMM, s.cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func atTimeOfDay(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", hhmm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day: %s", hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
