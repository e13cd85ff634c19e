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

// PackageAvailability returns the start times at which every service in the
// requested order can run back to back at one location on one day, as sorted,
// deduplicated "HH:MM" strings. Each segment starts when the previous
// technician treatment ends; buffers occupy the assigned technician and room
// but never delay the customer. A segment may switch technician and room, and
// every segment assignment follows the lowest-identifier pick so the answer
// is deterministic for a given occupancy snapshot.
func (s *schedulingService) PackageAvailability(ctx context.Context, req *model.PackageAvailabilityRequest) ([]string, error) {
	if err := s.validator.ValidatePackageAvailability(req); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}

	if _, err := s.repo.GetLocation(ctx, req.LocationUID); err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("location", req.LocationUID)
		}
		return nil, apperrors.Internal("failed to load location", err)
	}

	services := make([]*model.Service, 0, len(req.OrderedServiceUIDs))
	for _, serviceUID := range req.OrderedServiceUIDs {
		svc, err := s.repo.GetService(ctx, serviceUID)
		if err != nil {
			if errors.Is(err, schederrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("service", serviceUID)
			}
			return nil, apperrors.Internal("failed to load service", err)
		}
		services = append(services, svc)
	}

	if req.PreferredTechnicianUID != "" {
		if _, err := s.repo.GetTechnician(ctx, req.PreferredTechnicianUID); err != nil {
			if errors.Is(err, schederrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("technician", req.PreferredTechnicianUID)
			}
			return nil, apperrors.Internal("failed to load technician", err)
		}
	}

	day, err := time.ParseInLocation("2006-01-02", req.TargetDate, s.cfg.Location)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid target_date: %s", req.TargetDate))
	}
	dayWindow := model.Interval{Start: day, End: day.AddDate(0, 0, 1)}

	// Per-segment candidate pools. When the caller names a preferred
	// technician, segments that technician is qualified for consider nobody
	// else; unqualified segments fall back to the full pool.
	segmentTechs := make([][]string, len(services))
	segmentResources := make([][]string, len(services))
	allTechs := make(map[string]bool)
	allResources := make(map[string]bool)
	var total time.Duration
	for i, svc := range services {
		technicians, err := s.repo.TechniciansForService(ctx, svc.UID)
		if err != nil {
			return nil, apperrors.Internal("failed to load technicians", err)
		}
		uids := make([]string, 0, len(technicians))
		preferredQualified := false
		for _, technician := range technicians {
			uids = append(uids, technician.UID)
			if technician.UID == req.PreferredTechnicianUID {
				preferredQualified = true
			}
		}
		if preferredQualified {
			uids = []string{req.PreferredTechnicianUID}
		}
		sort.Strings(uids)
		segmentTechs[i] = uids
		for _, uid := range uids {
			allTechs[uid] = true
		}

		resources, err := s.repo.ResourcesForService(ctx, req.LocationUID, svc.UID)
		if err != nil {
			return nil, apperrors.Internal("failed to load resources", err)
		}
		resourceUIDs := make([]string, 0, len(resources))
		for _, resource := range resources {
			resourceUIDs = append(resourceUIDs, resource.UID)
			allResources[resource.UID] = true
		}
		sort.Strings(resourceUIDs)
		segmentResources[i] = resourceUIDs

		if len(uids) == 0 || len(resourceUIDs) == 0 {
			return []string{}, nil
		}

		span := svc.TechnicianSpan()
		if svc.RoomSpan() > span {
			span = svc.RoomSpan()
		}
		total += span
	}

	techUIDs := sortedKeys(allTechs)
	resourceUIDs := sortedKeys(allResources)

	// Later segments of a package starting near the end of the day spill
	// past midnight, so shifts and occupancy are read beyond the day bound.
	shiftWindow := model.Interval{Start: day, End: dayWindow.End.Add(total)}
	shifts, err := s.repo.ShiftsForTechnicians(ctx, req.LocationUID, techUIDs, shiftWindow)
	if err != nil {
		return nil, apperrors.Internal("failed to load shifts", err)
	}
	if len(shifts) == 0 {
		return []string{}, nil
	}
	techShifts := make(map[string][]*model.Shift)
	for _, shift := range shifts {
		techShifts[shift.TechnicianUID] = append(techShifts[shift.TechnicianUID], shift)
	}

	busyWindow := model.Interval{Start: day.Add(-total), End: dayWindow.End.Add(total)}
	techBusy, err := s.repo.TechnicianBusy(ctx, techUIDs, busyWindow)
	if err != nil {
		return nil, apperrors.Internal("failed to load technician occupancy", err)
	}
	resBusy, err := s.repo.ResourceBusy(ctx, resourceUIDs, busyWindow)
	if err != nil {
		return nil, apperrors.Internal("failed to load resource occupancy", err)
	}
	techIdx := NewOccupancyIndex(techBusy)
	resIdx := NewOccupancyIndex(resBusy)

	// Candidate starts come from the shifts of technicians qualified for the
	// first segment, on the granularity grid from each shift start.
	step := time.Duration(s.cfg.SlotGranularityMin) * time.Minute
	firstSpan := services[0].TechnicianSpan()
	firstQualified := make(map[string]bool, len(segmentTechs[0]))
	for _, uid := range segmentTechs[0] {
		firstQualified[uid] = true
	}

	seen := make(map[int64]bool)
	var starts []time.Time
	for _, shift := range shifts {
		if !firstQualified[shift.TechnicianUID] {
			continue
		}
		for t := shift.StartTime; !t.Add(firstSpan).After(shift.EndTime); t = t.Add(step) {
			if !t.Before(dayWindow.End) {
				break
			}
			if t.Before(dayWindow.Start) || seen[t.Unix()] {
				continue
			}
			if packageFits(t, services, segmentTechs, segmentResources, techShifts, techIdx, resIdx) {
				seen[t.Unix()] = true
				starts = append(starts, t)
			}
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	slots := make([]string, 0, len(starts))
	for _, t := range starts {
		slots = append(slots, t.In(s.cfg.Location).Format("15:04"))
	}
	return slots, nil
}

// packageFits reports whether every segment of the package starting at t can
// be assigned a technician and a resource. Assignments made for earlier
// segments are reserved so one technician or room never serves two
// overlapping segments of the same package.
func packageFits(
	t time.Time,
	services []*model.Service,
	segmentTechs, segmentResources [][]string,
	techShifts map[string][]*model.Shift,
	techIdx, resIdx *OccupancyIndex,
) bool {
	reservedTech := make(map[string][]model.Interval)
	reservedRes := make(map[string][]model.Interval)

	start := t
	for i, svc := range services {
		techInterval := model.Interval{Start: start, End: start.Add(svc.TechnicianSpan())}
		roomInterval := model.Interval{Start: start, End: start.Add(svc.RoomSpan())}

		var freeTechs []string
		for _, uid := range segmentTechs[i] {
			if !onShift(techShifts[uid], techInterval) {
				continue
			}
			if !techIdx.IsFree(uid, techInterval) || overlapsAny(reservedTech[uid], techInterval) {
				continue
			}
			freeTechs = append(freeTechs, uid)
		}
		technicianUID, ok := ChooseCandidate(freeTechs)
		if !ok {
			return false
		}
		reservedTech[technicianUID] = append(reservedTech[technicianUID], techInterval)

		var freeResources []string
		for _, uid := range segmentResources[i] {
			if !resIdx.IsFree(uid, roomInterval) || overlapsAny(reservedRes[uid], roomInterval) {
				continue
			}
			freeResources = append(freeResources, uid)
		}
		resourceUID, ok := ChooseCandidate(freeResources)
		if !ok {
			return false
		}
		reservedRes[resourceUID] = append(reservedRes[resourceUID], roomInterval)

		start = start.Add(time.Duration(svc.TechnicianDurationMin) * time.Minute)
	}
	return true
}

func onShift(shifts []*model.Shift, span model.Interval) bool {
	for _, shift := range shifts {
		if shift.Covers(span.Start, span.End) {
			return true
		}
	}
	return false
}

func overlapsAny(intervals []model.Interval, span model.Interval) bool {
	for _, interval := range intervals {
		if interval.Overlaps(span) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
