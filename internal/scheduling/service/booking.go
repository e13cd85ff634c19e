package service

import (
	"context"
	"errors"
	"sort"

	schederrors "banya/internal/scheduling/errors"
	apperrors "banya/pkg/errors"
	"banya/pkg/model"

	"github.com/google/uuid"
)

// LockSequence returns the advisory lock keys for a booking attempt in the
// one canonical order every writer must follow: all technician keys sorted
// ascending, then all resource keys sorted ascending. Two concurrent
// bookings over intersecting candidate sets therefore always collide on the
// first shared key instead of deadlocking.
func LockSequence(technicianUIDs, resourceUIDs []string) []string {
	techs := make([]string, len(technicianUIDs))
	copy(techs, technicianUIDs)
	sort.Strings(techs)

	resources := make([]string, len(resourceUIDs))
	copy(resources, resourceUIDs)
	sort.Strings(resources)

	keys := make([]string, 0, len(techs)+len(resources))
	for _, uid := range techs {
		keys = append(keys, "technician:"+uid)
	}
	for _, uid := range resources {
		keys = append(keys, "resource:"+uid)
	}
	return keys
}

// ChooseCandidate picks the assignment from the feasible candidates: the
// lowest identifier wins, so the same state always yields the same pick.
func ChooseCandidate(uids []string) (string, bool) {
	if len(uids) == 0 {
		return "", false
	}
	best := uids[0]
	for _, uid := range uids[1:] {
		if uid < best {
			best = uid
		}
	}
	return best, true
}

// Book places one appointment. Candidate technicians and resources are
// computed optimistically, then re-validated inside a transaction under
// advisory locks taken in LockSequence order. Losing any race surfaces as a
// retryable conflict, never as a double booking.
func (s *schedulingService) Book(ctx context.Context, customerUID string, req *model.AppointmentCreate) (*model.Appointment, error) {
	if err := s.validator.ValidateAppointmentCreate(req); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}

	if _, err := s.repo.GetLocation(ctx, req.LocationUID); err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("location", req.LocationUID)
		}
		return nil, apperrors.Internal("failed to load location", err)
	}
	svc, err := s.repo.GetService(ctx, req.ServiceUID)
	if err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("service", req.ServiceUID)
		}
		return nil, apperrors.Internal("failed to load service", err)
	}

	start := req.StartTime
	techInterval := model.Interval{Start: start, End: start.Add(svc.TechnicianSpan())}
	roomInterval := model.Interval{Start: start, End: start.Add(svc.RoomSpan())}

	candidateTechs, err := s.candidateTechnicians(ctx, req.LocationUID, req.ServiceUID, techInterval)
	if err != nil {
		return nil, err
	}
	if len(candidateTechs) == 0 {
		return nil, apperrors.Conflict("no technician is available at the requested time")
	}

	resources, err := s.repo.ResourcesForService(ctx, req.LocationUID, req.ServiceUID)
	if err != nil {
		return nil, apperrors.Internal("failed to load resources", err)
	}
	if len(resources) == 0 {
		return nil, apperrors.Conflict("no compatible resource exists at this location")
	}
	candidateResources := make([]string, 0, len(resources))
	for _, resource := range resources {
		candidateResources = append(candidateResources, resource.UID)
	}

	keys := LockSequence(candidateTechs, candidateResources)

	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockAcquireTimeout)
	defer cancel()
	if err := s.repo.AcquireLocks(lockCtx, keys, s.cfg.SlotLockTTL); err != nil {
		if errors.Is(err, schederrors.ErrLockTimeout) {
			return nil, apperrors.LockTimeout("could not reserve the requested slot in time")
		}
		return nil, apperrors.Internal("failed to acquire slot locks", err)
	}
	defer func() {
		if err := s.repo.ReleaseLocks(context.WithoutCancel(ctx), keys); err != nil {
			s.log.Warn("Failed to release slot locks", "error", err)
		}
	}()

	var (
		appt             *model.Appointment
		assignedTech     string
		assignedResource string
	)
	txErr := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		// Occupancy is stable under the held locks; the optimistic candidate
		// sets must be re-proven before anything is written.
		techBusy, err := s.repo.TechnicianBusy(txCtx, candidateTechs, techInterval)
		if err != nil {
			return err
		}
		techIdx := NewOccupancyIndex(techBusy)
		var freeTechs []string
		for _, uid := range candidateTechs {
			if techIdx.IsFree(uid, techInterval) {
				freeTechs = append(freeTechs, uid)
			}
		}
		technicianUID, ok := ChooseCandidate(freeTechs)
		if !ok {
			return schederrors.ErrTxConflict
		}

		resBusy, err := s.repo.ResourceBusy(txCtx, candidateResources, roomInterval)
		if err != nil {
			return err
		}
		resIdx := NewOccupancyIndex(resBusy)
		var freeResources []string
		for _, uid := range candidateResources {
			if resIdx.IsFree(uid, roomInterval) {
				freeResources = append(freeResources, uid)
			}
		}
		resourceUID, ok := ChooseCandidate(freeResources)
		if !ok {
			return schederrors.ErrTxConflict
		}
		assignedTech, assignedResource = technicianUID, resourceUID

		appt = &model.Appointment{
			UID:         uuid.NewString(),
			CustomerUID: customerUID,
			ServiceUID:  req.ServiceUID,
			LocationUID: req.LocationUID,
			StartTime:   start,
			Status:      model.StatusConfirmed,
		}
		techLink := &model.TechnicianLink{
			AppointmentUID: appt.UID,
			TechnicianUID:  technicianUID,
			StartTime:      techInterval.Start,
			EndTime:        techInterval.End,
		}
		resLink := &model.ResourceLink{
			AppointmentUID: appt.UID,
			ResourceUID:    resourceUID,
			StartTime:      roomInterval.Start,
			EndTime:        roomInterval.End,
		}
		return s.repo.CreateAppointment(txCtx, appt, techLink, resLink)
	})
	if txErr != nil {
		if errors.Is(txErr, schederrors.ErrTxConflict) {
			return nil, apperrors.Conflict("the requested slot was taken by a concurrent booking")
		}
		return nil, apperrors.Internal("failed to commit booking", txErr)
	}

	targetDate := start.In(s.cfg.Location).Format("2006-01-02")
	s.cache.Invalidate(ctx, req.LocationUID, req.ServiceUID, targetDate)
	s.events.AppointmentConfirmed(ctx, appt, assignedTech, assignedResource)

	s.log.Info("Appointment booked",
		"appointment_uid", appt.UID,
		"service_uid", appt.ServiceUID,
		"location_uid", appt.LocationUID,
		"start_time", appt.StartTime,
	)
	return appt, nil
}

// candidateTechnicians returns the qualified technicians whose working
// window at the location fully covers the technician interval.
func (s *schedulingService) candidateTechnicians(ctx context.Context, locationUID, serviceUID string, span model.Interval) ([]string, error) {
	technicians, err := s.repo.TechniciansForService(ctx, serviceUID)
	if err != nil {
		return nil, apperrors.Internal("failed to load technicians", err)
	}
	if len(technicians) == 0 {
		return nil, nil
	}

	uids := make([]string, 0, len(technicians))
	for _, technician := range technicians {
		uids = append(uids, technician.UID)
	}
	shifts, err := s.repo.ShiftsForTechnicians(ctx, locationUID, uids, span)
	if err != nil {
		return nil, apperrors.Internal("failed to load shifts", err)
	}

	covered := make(map[string]bool)
	for _, shift := range shifts {
		if shift.Covers(span.Start, span.End) {
			covered[shift.TechnicianUID] = true
		}
	}

	out := make([]string, 0, len(covered))
	for uid := range covered {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}
