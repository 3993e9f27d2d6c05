package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateAppointmentRequest struct {
	ServiceID       uuid.UUID `json:"service_id" validate:"required"`
	AppointmentDate string    `json:"appointment_date" validate:"omitempty"` // YYYY-MM-DD
	BookingSource   string    `json:"booking_source" validate:"omitempty,oneof=online walk-in phone"`
	Quantity        int       `json:"quantity" validate:"omitempty"`
}

// AdminUpdateAppointmentRequest carries the treatment-plan pricing update.
// Every field is independently optional; setting ServicePrice always moves the
// appointment to awaiting_payment regardless of the Status supplied here.
type AdminUpdateAppointmentRequest struct {
	ServicePrice    *decimal.Decimal `json:"service_price"`
	AppointmentDate *string          `json:"appointment_date"` // YYYY-MM-DD
	Status          *string          `json:"status"`
	Quantity        *int             `json:"quantity"`
}

type RescheduleAppointmentRequest struct {
	AppointmentDate string `json:"appointment_date" validate:"required"` // YYYY-MM-DD
}

// Response DTOs

type AppointmentResponse struct {
	ID              uuid.UUID        `json:"id"`
	Patient         *UserResponse    `json:"patient,omitempty"`
	Service         *ServiceResponse `json:"service,omitempty"`
	ServicePrice    *decimal.Decimal `json:"service_price"`
	Quantity        int              `json:"quantity"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	AppointmentDate *time.Time       `json:"appointment_date"`
	BookingSource   string           `json:"booking_source"`
	Status          string           `json:"status"`
	PaymentStatus   string           `json:"payment_status"`
	ReminderSent    bool             `json:"reminder_sent"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

// RescheduledAppointmentResponse is the reschedule result: the moved
// appointment together with its full payment breakdown.
type RescheduledAppointmentResponse struct {
	Appointment      AppointmentResponse `json:"appointment"`
	TotalPaid        decimal.Decimal     `json:"total_paid"`
	RemainingBalance decimal.Decimal     `json:"remaining_balance"`
	Payments         []PaymentResponse   `json:"payments"`
}
