package validator

import (
	"io"
	"strings"
	"testing"
	"time"

	"banya/pkg/logger"
	"banya/pkg/model"
)

func newTestValidator() *ScheduleValidator {
	return NewScheduleValidator(logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}))
}

func TestValidateAppointmentCreate(t *testing.T) {
	v := newTestValidator()

	valid := &model.AppointmentCreate{
		ServiceUID:  "svc-1",
		LocationUID: "loc-1",
		StartTime:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	if err := v.ValidateAppointmentCreate(valid); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	missing := &model.AppointmentCreate{LocationUID: "loc-1", StartTime: time.Now()}
	err := v.ValidateAppointmentCreate(missing)
	if err == nil {
		t.Fatal("missing service_uid accepted")
	}
	if !strings.Contains(err.Error(), "ServiceUID") {
		t.Errorf("error does not name the missing field: %v", err)
	}

	zeroTime := &model.AppointmentCreate{ServiceUID: "svc-1", LocationUID: "loc-1"}
	if err := v.ValidateAppointmentCreate(zeroTime); err == nil {
		t.Error("zero start_time accepted")
	}
}

func TestValidateShiftPlan(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateShiftPlan(nil); err == nil {
		t.Error("empty plan accepted")
	}

	valid := []model.ShiftCreateItem{
		{Date: "2026-03-02", Period: model.PeriodMorning, LocationUID: "loc-1"},
	}
	if err := v.ValidateShiftPlan(valid); err != nil {
		t.Errorf("valid plan rejected: %v", err)
	}

	badDate := []model.ShiftCreateItem{
		{Date: "03/02/2026", Period: model.PeriodMorning, LocationUID: "loc-1"},
	}
	err := v.ValidateShiftPlan(badDate)
	if err == nil {
		t.Fatal("bad date accepted")
	}
	if !strings.Contains(err.Error(), "shifts[0]") {
		t.Errorf("error does not carry the item index: %v", err)
	}

	badPeriod := []model.ShiftCreateItem{
		{Date: "2026-03-02", Period: "evening", LocationUID: "loc-1"},
	}
	if err := v.ValidateShiftPlan(badPeriod); err == nil {
		t.Error("unknown period accepted")
	}
}

func TestValidateAvailabilityQuery(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateAvailabilityQuery("loc-1", "svc-1", "2026-03-02"); err != nil {
		t.Errorf("valid query rejected: %v", err)
	}

	tests := []struct {
		name                              string
		location, service, date, wantPart string
	}{
		{"missing location", "", "svc-1", "2026-03-02", "location_uid"},
		{"missing service", "loc-1", "", "2026-03-02", "service_uid"},
		{"bad date", "loc-1", "svc-1", "yesterday", "target_date"},
		{"empty date", "loc-1", "svc-1", "", "target_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateAvailabilityQuery(tt.location, tt.service, tt.date)
			if err == nil {
				t.Fatal("invalid query accepted")
			}
			if !strings.Contains(err.Error(), tt.wantPart) {
				t.Errorf("error %v does not mention %s", err, tt.wantPart)
			}
		})
	}
}
