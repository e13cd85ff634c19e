package repository

import (
	"context"
	"time"

	mongotx "banya/pkg/db/mongo"
	"banya/pkg/model"
)

// Repository is the transactional data-access capability the scheduling core
// consumes. Master data (locations, services, resources, technicians,
// shifts) is maintained elsewhere and only read here; appointments and
// their occupancy links are the only rows this core writes.
//
// Methods that run inside ExecuteTransaction must be called with the
// context the transaction function receives, so they join the transaction.
type Repository interface {
	GetLocation(ctx context.Context, uid string) (*model.Location, error)
	GetService(ctx context.Context, uid string) (*model.Service, error)
	GetTechnician(ctx context.Context, uid string) (*model.Technician, error)

	// TechniciansForService returns technicians qualified for the service.
	TechniciansForService(ctx context.Context, serviceUID string) ([]*model.Technician, error)

	// ResourcesForService returns the location's resources compatible with
	// the service.
	ResourcesForService(ctx context.Context, locationUID, serviceUID string) ([]*model.Resource, error)

	// ShiftsForTechnicians returns non-cancelled shifts at the location, for
	// the given technicians, overlapping the window.
	ShiftsForTechnicians(ctx context.Context, locationUID string, technicianUIDs []string, window model.Interval) ([]*model.Shift, error)

	// ShiftsForTechnician returns one technician's shifts overlapping the
	// window, at any location, optionally including cancelled ones.
	ShiftsForTechnician(ctx context.Context, technicianUID string, window model.Interval, includeCancelled bool) ([]*model.Shift, error)

	CreateShifts(ctx context.Context, shifts []*model.Shift) error

	// TechnicianBusy returns, per technician, the full occupancy intervals
	// of confirmed appointments overlapping the window. Intervals are never
	// clipped to the window; clipping is a display concern.
	TechnicianBusy(ctx context.Context, technicianUIDs []string, window model.Interval) (map[string][]model.Interval, error)

	// ResourceBusy is TechnicianBusy for resources.
	ResourceBusy(ctx context.Context, resourceUIDs []string, window model.Interval) (map[string][]model.Interval, error)

	// CreateAppointment inserts the appointment and both occupancy links.
	// Inside a transaction the three writes are atomic.
	CreateAppointment(ctx context.Context, appt *model.Appointment, techLink *model.TechnicianLink, resLink *model.ResourceLink) error

	// AcquireLocks takes the advisory locks named by keys, in the exact
	// order given. The caller is responsible for passing a deterministic
	// order. Acquisition respects the context deadline; on failure no locks
	// remain held. Returns schederrors.ErrLockTimeout when time runs out.
	AcquireLocks(ctx context.Context, keys []string, ttl time.Duration) error

	ReleaseLocks(ctx context.Context, keys []string) error

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}
