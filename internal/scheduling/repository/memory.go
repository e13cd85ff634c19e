package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	schederrors "banya/internal/scheduling/errors"
	mongotx "banya/pkg/db/mongo"
	"banya/pkg/model"
)

// MemoryRepository is a Repository backed by in-process maps. It serializes
// transactions with a single mutex, which is enough to honor the same
// isolation the mongo implementation gets from multi-document transactions.
type MemoryRepository struct {
	mu sync.RWMutex
	tx sync.Mutex

	locations   map[string]*model.Location
	services    map[string]*model.Service
	technicians map[string]*model.Technician
	resources   map[string]*model.Resource
	shifts      []*model.Shift

	appointments map[string]*model.Appointment
	techLinks    []*model.TechnicianLink
	resLinks     []*model.ResourceLink

	lockMu sync.Mutex
	locks  map[string]time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		locations:    make(map[string]*model.Location),
		services:     make(map[string]*model.Service),
		technicians:  make(map[string]*model.Technician),
		resources:    make(map[string]*model.Resource),
		appointments: make(map[string]*model.Appointment),
		locks:        make(map[string]time.Time),
	}
}

func (r *MemoryRepository) SeedLocation(location *model.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[location.UID] = location
}

func (r *MemoryRepository) SeedService(service *model.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[service.UID] = service
}

func (r *MemoryRepository) SeedTechnician(technician *model.Technician) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.technicians[technician.UID] = technician
}

func (r *MemoryRepository) SeedResource(resource *model.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[resource.UID] = resource
}

func (r *MemoryRepository) SeedShift(shift *model.Shift) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shifts = append(r.shifts, shift)
}

func (r *MemoryRepository) GetLocation(_ context.Context, uid string) (*model.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	location, ok := r.locations[uid]
	if !ok {
		return nil, schederrors.ErrNotFound
	}
	return location, nil
}

func (r *MemoryRepository) GetService(_ context.Context, uid string) (*model.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	service, ok := r.services[uid]
	if !ok {
		return nil, schederrors.ErrNotFound
	}
	return service, nil
}

func (r *MemoryRepository) GetTechnician(_ context.Context, uid string) (*model.Technician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	technician, ok := r.technicians[uid]
	if !ok {
		return nil, schederrors.ErrNotFound
	}
	return technician, nil
}

func (r *MemoryRepository) TechniciansForService(_ context.Context, serviceUID string) ([]*model.Technician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Technician
	for _, technician := range r.technicians {
		if technician.Qualified(serviceUID) {
			out = append(out, technician)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (r *MemoryRepository) ResourcesForService(_ context.Context, locationUID, serviceUID string) ([]*model.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Resource
	for _, resource := range r.resources {
		if resource.LocationUID == locationUID && resource.Supports(serviceUID) {
			out = append(out, resource)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (r *MemoryRepository) ShiftsForTechnicians(_ context.Context, locationUID string, technicianUIDs []string, window model.Interval) ([]*model.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(technicianUIDs))
	for _, uid := range technicianUIDs {
		wanted[uid] = true
	}

	var out []*model.Shift
	for _, shift := range r.shifts {
		if shift.Cancelled || shift.LocationUID != locationUID || !wanted[shift.TechnicianUID] {
			continue
		}
		if shift.StartTime.Before(window.End) && shift.EndTime.After(window.Start) {
			out = append(out, shift)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *MemoryRepository) ShiftsForTechnician(_ context.Context, technicianUID string, window model.Interval, includeCancelled bool) ([]*model.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Shift
	for _, shift := range r.shifts {
		if shift.TechnicianUID != technicianUID {
			continue
		}
		if shift.Cancelled && !includeCancelled {
			continue
		}
		if shift.StartTime.Before(window.End) && shift.EndTime.After(window.Start) {
			out = append(out, shift)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *MemoryRepository) CreateShifts(_ context.Context, shifts []*model.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, shift := range shifts {
		shift.CreatedAt = now
		r.shifts = append(r.shifts, shift)
	}
	return nil
}

func (r *MemoryRepository) TechnicianBusy(_ context.Context, technicianUIDs []string, window model.Interval) (map[string][]model.Interval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(technicianUIDs))
	for _, uid := range technicianUIDs {
		wanted[uid] = true
	}

	busy := make(map[string][]model.Interval)
	for _, link := range r.techLinks {
		if !wanted[link.TechnicianUID] {
			continue
		}
		if !r.linkConfirmed(link.AppointmentUID) {
			continue
		}
		span := model.Interval{Start: link.StartTime, End: link.EndTime}
		if span.Overlaps(window) {
			busy[link.TechnicianUID] = append(busy[link.TechnicianUID], span)
		}
	}
	return busy, nil
}

func (r *MemoryRepository) ResourceBusy(_ context.Context, resourceUIDs []string, window model.Interval) (map[string][]model.Interval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(resourceUIDs))
	for _, uid := range resourceUIDs {
		wanted[uid] = true
	}

	busy := make(map[string][]model.Interval)
	for _, link := range r.resLinks {
		if !wanted[link.ResourceUID] {
			continue
		}
		if !r.linkConfirmed(link.AppointmentUID) {
			continue
		}
		span := model.Interval{Start: link.StartTime, End: link.EndTime}
		if span.Overlaps(window) {
			busy[link.ResourceUID] = append(busy[link.ResourceUID], span)
		}
	}
	return busy, nil
}

// linkConfirmed must be called with r.mu held.
func (r *MemoryRepository) linkConfirmed(appointmentUID string) bool {
	appt, ok := r.appointments[appointmentUID]
	return ok && appt.Status == model.StatusConfirmed
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, appt *model.Appointment, techLink *model.TechnicianLink, resLink *model.ResourceLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt.CreatedAt = time.Now().UTC()
	r.appointments[appt.UID] = appt
	r.techLinks = append(r.techLinks, techLink)
	r.resLinks = append(r.resLinks, resLink)
	return nil
}

func (r *MemoryRepository) AcquireLocks(ctx context.Context, keys []string, ttl time.Duration) error {
	acquired := make([]string, 0, len(keys))
	for _, key := range keys {
		for {
			if r.tryLock(key, ttl) {
				acquired = append(acquired, key)
				break
			}
			select {
			case <-ctx.Done():
				_ = r.ReleaseLocks(context.Background(), acquired)
				return schederrors.ErrLockTimeout
			case <-time.After(5 * time.Millisecond):
			}
		}
	}
	return nil
}

func (r *MemoryRepository) tryLock(key string, ttl time.Duration) bool {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	if expires, held := r.locks[key]; held && time.Now().Before(expires) {
		return false
	}
	r.locks[key] = time.Now().Add(ttl)
	return true
}

func (r *MemoryRepository) ReleaseLocks(_ context.Context, keys []string) error {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	for _, key := range keys {
		delete(r.locks, key)
	}
	return nil
}

func (r *MemoryRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.tx.Lock()
	defer r.tx.Unlock()
	return fn(ctx)
}

// Appointments returns a snapshot of everything booked, for tests.
func (r *MemoryRepository) Appointments() []*model.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Appointment, 0, len(r.appointments))
	for _, appt := range r.appointments {
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}
