package service

import (
	"context"
	"time"

	"banya/pkg/kafka"
	"banya/pkg/logger"
	"banya/pkg/model"
)

const eventAppointmentConfirmed = "appointment.confirmed"

// EventPublisher emits domain events after a booking commits.
type EventPublisher interface {
	AppointmentConfirmed(ctx context.Context, appt *model.Appointment, technicianUID, resourceUID string)
}

// appointmentConfirmedEvent is the payload shape consumers receive.
type appointmentConfirmedEvent struct {
	AppointmentUID string    `json:"appointment_uid"`
	CustomerUID    string    `json:"customer_uid,omitempty"`
	ServiceUID     string    `json:"service_uid"`
	LocationUID    string    `json:"location_uid"`
	TechnicianUID  string    `json:"technician_uid"`
	ResourceUID    string    `json:"resource_uid"`
	StartTime      time.Time `json:"start_time"`
	Status         string    `json:"status"`
}

type kafkaEventPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaEventPublisher(producer *kafka.Producer, log *logger.Logger) EventPublisher {
	return &kafkaEventPublisher{producer: producer, log: log}
}

// AppointmentConfirmed publishes best-effort: the appointment is already
// committed, so a broker failure is logged and swallowed.
func (p *kafkaEventPublisher) AppointmentConfirmed(ctx context.Context, appt *model.Appointment, technicianUID, resourceUID string) {
	msg, err := kafka.NewMessage().
		WithKey(appt.UID).
		WithEventType(eventAppointmentConfirmed).
		WithSource("scheduling").
		WithValue(appointmentConfirmedEvent{
			AppointmentUID: appt.UID,
			CustomerUID:    appt.CustomerUID,
			ServiceUID:     appt.ServiceUID,
			LocationUID:    appt.LocationUID,
			TechnicianUID:  technicianUID,
			ResourceUID:    resourceUID,
			StartTime:      appt.StartTime,
			Status:         appt.Status,
		}).
		Build()
	if err != nil {
		p.log.Error("Failed to build appointment event", "appointment_uid", appt.UID, "error", err)
		return
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish appointment event", "appointment_uid", appt.UID, "error", err)
	}
}

// NopEventPublisher satisfies EventPublisher when Kafka is not configured.
type NopEventPublisher struct{}

func (NopEventPublisher) AppointmentConfirmed(context.Context, *model.Appointment, string, string) {}
