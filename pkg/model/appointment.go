package model

import "time"

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Appointment is the booking record. The scheduling core only ever writes
// confirmed appointments; cancellation and completion transitions belong to
// the surrounding system.
type Appointment struct {
	UID         string    `json:"uid" bson:"_id" validate:"required"`
	CustomerUID string    `json:"customer_uid,omitempty" bson:"customer_uid,omitempty"`
	ServiceUID  string    `json:"service_uid" bson:"service_uid" validate:"required"`
	LocationUID string    `json:"location_uid" bson:"location_uid" validate:"required"`
	StartTime   time.Time `json:"start_time" bson:"start_time" validate:"required"`
	Status      string    `json:"status" bson:"status" validate:"required,oneof=confirmed cancelled completed"`
	CreatedAt   time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

// TechnicianLink records the technician-time interval one appointment
// consumes. The interval carries its own bounds so occupancy reads never
// need to re-derive durations from the service.
type TechnicianLink struct {
	AppointmentUID string    `json:"appointment_uid" bson:"appointment_uid"`
	TechnicianUID  string    `json:"technician_uid" bson:"technician_uid"`
	StartTime      time.Time `json:"start_time" bson:"start_time"`
	EndTime        time.Time `json:"end_time" bson:"end_time"`
}

// ResourceLink records the room/bed-time interval one appointment consumes.
// Its length may differ from the technician link of the same appointment.
type ResourceLink struct {
	AppointmentUID string    `json:"appointment_uid" bson:"appointment_uid"`
	ResourceUID    string    `json:"resource_uid" bson:"resource_uid"`
	StartTime      time.Time `json:"start_time" bson:"start_time"`
	EndTime        time.Time `json:"end_time" bson:"end_time"`
}

// Interval is a half-open [Start, End) time range.
type Interval struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}
