package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"banya/pkg/logger"
	"banya/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ScheduleValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewScheduleValidator(log *logger.Logger) *ScheduleValidator {
	v := validator.New()

	log.Info("Schedule validator initialized successfully")

	return &ScheduleValidator{
		validate: v,
		logger:   log,
	}
}

func (v *ScheduleValidator) ValidateAppointmentCreate(req *model.AppointmentCreate) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ScheduleValidator) ValidateShiftPlan(items []model.ShiftCreateItem) error {
	if len(items) == 0 {
		return ValidationErrors{{Field: "shifts", Message: "at least one shift is required"}}
	}
	for i, item := range items {
		if err := v.validate.Struct(item); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				translated := v.translateValidationErrors(validationErrs)
				for j := range translated {
					translated[j].Field = fmt.Sprintf("shifts[%d].%s", i, translated[j].Field)
				}
				return translated
			}
			return err
		}
	}
	return nil
}

func (v *ScheduleValidator) ValidatePackageAvailability(req *model.PackageAvailabilityRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateAvailabilityQuery checks the query parameters of an availability
// request. The date must be a plain calendar day.
func (v *ScheduleValidator) ValidateAvailabilityQuery(locationUID, serviceUID, targetDate string) error {
	var errs ValidationErrors
	if strings.TrimSpace(locationUID) == "" {
		errs = append(errs, ValidationError{Field: "location_uid", Message: "location_uid is required"})
	}
	if strings.TrimSpace(serviceUID) == "" {
		errs = append(errs, ValidationError{Field: "service_uid", Message: "service_uid is required"})
	}
	if _, err := time.Parse("2006-01-02", targetDate); err != nil {
		errs = append(errs, ValidationError{Field: "target_date", Message: "target_date must be in YYYY-MM-DD format"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *ScheduleValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must be in YYYY-MM-DD format", err.Field())
		case "min":
			message = fmt.Sprintf("%s must contain at least %s item(s)", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), strings.ReplaceAll(err.Param(), " ", ", "))
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
