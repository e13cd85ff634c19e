package model

import "time"

// AppointmentCreate is the booking request body.
type AppointmentCreate struct {
	ServiceUID  string    `json:"service_uid" validate:"required"`
	LocationUID string    `json:"location_uid" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
}

// PackageAvailabilityRequest asks for start times at which the listed
// services can run back to back, in the given order, at one location.
type PackageAvailabilityRequest struct {
	LocationUID            string   `json:"location_uid" validate:"required"`
	OrderedServiceUIDs     []string `json:"ordered_service_uids" validate:"required,min=1,dive,required"`
	TargetDate             string   `json:"target_date" validate:"required,datetime=2006-01-02"`
	PreferredTechnicianUID string   `json:"preferred_technician_uid,omitempty" validate:"omitempty"`
}

// ShiftCreateItem is one requested working window in a shift plan
// submission. Date is the calendar day in the business time zone.
type ShiftCreateItem struct {
	Date        string      `json:"date" validate:"required,datetime=2006-01-02"`
	Period      ShiftPeriod `json:"period" validate:"required,oneof=morning afternoon"`
	LocationUID string      `json:"location_uid" validate:"required"`
}
