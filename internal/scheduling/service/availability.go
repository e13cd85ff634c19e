package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	schederrors "banya/internal/scheduling/errors"
	apperrors "banya/pkg/errors"
	"banya/pkg/model"
)

// Availability returns the bookable start times of one service at one
// location on one calendar day, as sorted, deduplicated "HH:MM" strings.
// No availability is a successful empty result, never an error.
func (s *schedulingService) Availability(ctx context.Context, locationUID, serviceUID, targetDate string) ([]string, error) {
	if err := s.validator.ValidateAvailabilityQuery(locationUID, serviceUID, targetDate); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}

	if slots, ok := s.cache.Get(ctx, locationUID, serviceUID, targetDate); ok {
		return slots, nil
	}

	if _, err := s.repo.GetLocation(ctx, locationUID); err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("location", locationUID)
		}
		return nil, apperrors.Internal("failed to load location", err)
	}
	svc, err := s.repo.GetService(ctx, serviceUID)
	if err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("service", serviceUID)
		}
		return nil, apperrors.Internal("failed to load service", err)
	}

	day, err := time.ParseInLocation("2006-01-02", targetDate, s.cfg.Location)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid target_date: %s", targetDate))
	}

	technicians, err := s.repo.TechniciansForService(ctx, serviceUID)
	if err != nil {
		return nil, apperrors.Internal("failed to load technicians", err)
	}
	resources, err := s.repo.ResourcesForService(ctx, locationUID, serviceUID)
	if err != nil {
		return nil, apperrors.Internal("failed to load resources", err)
	}
	if len(technicians) == 0 || len(resources) == 0 {
		empty := []string{}
		s.cache.Set(ctx, locationUID, serviceUID, targetDate, empty)
		return empty, nil
	}

	dayWindow := model.Interval{Start: day, End: day.AddDate(0, 0, 1)}

	technicianUIDs := make([]string, 0, len(technicians))
	for _, technician := range technicians {
		technicianUIDs = append(technicianUIDs, technician.UID)
	}
	shifts, err := s.repo.ShiftsForTechnicians(ctx, locationUID, technicianUIDs, dayWindow)
	if err != nil {
		return nil, apperrors.Internal("failed to load shifts", err)
	}
	if len(shifts) == 0 {
		empty := []string{}
		s.cache.Set(ctx, locationUID, serviceUID, targetDate, empty)
		return empty, nil
	}

	// Conflict checks read the full day plus the widest spillover a booking
	// can produce, so intervals that cross the day boundary are not missed.
	longest := svc.TechnicianSpan()
	if svc.RoomSpan() > longest {
		longest = svc.RoomSpan()
	}
	busyWindow := model.Interval{Start: day.Add(-longest), End: dayWindow.End.Add(longest)}

	techBusy, err := s.repo.TechnicianBusy(ctx, technicianUIDs, busyWindow)
	if err != nil {
		return nil, apperrors.Internal("failed to load technician occupancy", err)
	}
	resourceUIDs := make([]string, 0, len(resources))
	for _, resource := range resources {
		resourceUIDs = append(resourceUIDs, resource.UID)
	}
	resBusy, err := s.repo.ResourceBusy(ctx, resourceUIDs, busyWindow)
	if err != nil {
		return nil, apperrors.Internal("failed to load resource occupancy", err)
	}

	step := time.Duration(s.cfg.SlotGranularityMin) * time.Minute
	times := generateSlots(svc, shifts, resources, NewOccupancyIndex(techBusy), NewOccupancyIndex(resBusy), step, dayWindow)

	slots := make([]string, 0, len(times))
	for _, t := range times {
		slots = append(slots, t.In(s.cfg.Location).Format("15:04"))
	}

	s.cache.Set(ctx, locationUID, serviceUID, targetDate, slots)
	return slots, nil
}

// generateSlots walks every shift at the fixed granularity, starting at the
// shift start, and keeps candidates where the shift technician is free for
// the technician span, the span fits inside the shift, and at least one
// resource is free for the room span. The result is sorted and deduplicated
// across shifts.
func generateSlots(
	svc *model.Service,
	shifts []*model.Shift,
	resources []*model.Resource,
	techIdx, resIdx *OccupancyIndex,
	step time.Duration,
	day model.Interval,
) []time.Time {
	techSpan := svc.TechnicianSpan()
	roomSpan := svc.RoomSpan()

	seen := make(map[int64]bool)
	var out []time.Time

	for _, shift := range shifts {
		// Steps always align to the shift start. Candidates outside the
		// target day belong to another day's answer.
		for t := shift.StartTime; !t.Add(techSpan).After(shift.EndTime); t = t.Add(step) {
			if !t.Before(day.End) {
				break
			}
			if t.Before(day.Start) || seen[t.Unix()] {
				continue
			}

			techInterval := model.Interval{Start: t, End: t.Add(techSpan)}
			if !techIdx.IsFree(shift.TechnicianUID, techInterval) {
				continue
			}

			roomInterval := model.Interval{Start: t, End: t.Add(roomSpan)}
			for _, resource := range resources {
				if resIdx.IsFree(resource.UID, roomInterval) {
					seen[t.Unix()] = true
					out = append(out, t)
					break
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
