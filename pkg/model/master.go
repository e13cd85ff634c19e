package model

import "time"

// Master data owned by the administration subsystem. The scheduling core
// only reads these collections.

type Location struct {
	UID  string `json:"uid" bson:"_id" validate:"required"`
	Name string `json:"name" bson:"name" validate:"required,min=2,max=100"`
}

// Service describes a bookable treatment. A technician is occupied for
// TechnicianDurationMin+buffer minutes, a room for RoomDurationMin+buffer.
type Service struct {
	UID                   string `json:"uid" bson:"_id" validate:"required"`
	Name                  string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	TechnicianDurationMin int    `json:"technician_duration_min" bson:"technician_duration_min" validate:"min=0"`
	RoomDurationMin       int    `json:"room_duration_min" bson:"room_duration_min" validate:"min=0"`
	BufferMin             *int   `json:"buffer_min,omitempty" bson:"buffer_min,omitempty" validate:"omitempty,min=0"`
}

// DefaultBufferMin applies when a service does not override its buffer.
const DefaultBufferMin = 15

func (s *Service) Buffer() time.Duration {
	if s.BufferMin != nil {
		return time.Duration(*s.BufferMin) * time.Minute
	}
	return DefaultBufferMin * time.Minute
}

// TechnicianSpan is the full interval length a booking consumes on the
// assigned technician.
func (s *Service) TechnicianSpan() time.Duration {
	return time.Duration(s.TechnicianDurationMin)*time.Minute + s.Buffer()
}

// RoomSpan is the full interval length a booking consumes on the assigned
// resource.
func (s *Service) RoomSpan() time.Duration {
	return time.Duration(s.RoomDurationMin)*time.Minute + s.Buffer()
}

type Resource struct {
	UID         string   `json:"uid" bson:"_id" validate:"required"`
	Name        string   `json:"name" bson:"name" validate:"required,min=1,max=100"`
	LocationUID string   `json:"location_uid" bson:"location_uid" validate:"required"`
	ServiceUIDs []string `json:"service_uids" bson:"service_uids"`
}

func (r *Resource) Supports(serviceUID string) bool {
	for _, uid := range r.ServiceUIDs {
		if uid == serviceUID {
			return true
		}
	}
	return false
}

type Technician struct {
	UID         string   `json:"uid" bson:"_id" validate:"required"`
	Name        string   `json:"name" bson:"name" validate:"required,min=1,max=100"`
	ServiceUIDs []string `json:"service_uids" bson:"service_uids"`
}

func (t *Technician) Qualified(serviceUID string) bool {
	for _, uid := range t.ServiceUIDs {
		if uid == serviceUID {
			return true
		}
	}
	return false
}
