package model

import "time"

// ShiftPeriod names a preset working window within a day.
type ShiftPeriod string

const (
	PeriodMorning   ShiftPeriod = "morning"
	PeriodAfternoon ShiftPeriod = "afternoon"
)

// Shift is one technician working window at one location. Shifts of the same
// technician never overlap; the invariant is enforced when shifts are
// created, not re-derived on every read.
type Shift struct {
	UID           string      `json:"uid" bson:"_id" validate:"required"`
	TechnicianUID string      `json:"technician_uid" bson:"technician_uid" validate:"required"`
	LocationUID   string      `json:"location_uid" bson:"location_uid" validate:"required"`
	StartTime     time.Time   `json:"start_time" bson:"start_time" validate:"required"`
	EndTime       time.Time   `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Period        ShiftPeriod `json:"period,omitempty" bson:"period,omitempty"`
	Cancelled     bool        `json:"cancelled" bson:"cancelled"`
	CreatedAt     time.Time   `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

// Covers reports whether the working window fully contains [start, end).
func (s *Shift) Covers(start, end time.Time) bool {
	return !s.Cancelled && !s.StartTime.After(start) && !s.EndTime.Before(end)
}
