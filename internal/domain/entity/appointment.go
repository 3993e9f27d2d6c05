package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending             AppointmentStatus = "pending"
	AppointmentStatusPendingConsultation AppointmentStatus = "pending_consultation"
	AppointmentStatusAwaitingPayment     AppointmentStatus = "awaiting_payment"
	AppointmentStatusConfirmed           AppointmentStatus = "confirmed"
	AppointmentStatusCompleted           AppointmentStatus = "completed"
	AppointmentStatusCancelled           AppointmentStatus = "cancelled"
)

// ValidAppointmentStatuses lists every status an admin may set directly
var ValidAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusPendingConsultation,
	AppointmentStatusAwaitingPayment,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
}

// IsValidAppointmentStatus reports whether s is one of the enumerated statuses
func IsValidAppointmentStatus(s AppointmentStatus) bool {
	for _, valid := range ValidAppointmentStatuses {
		if s == valid {
			return true
		}
	}
	return false
}

// PaymentState tracks how much of the appointment total has been settled
type PaymentState string

const (
	PaymentStateUnpaid  PaymentState = "unpaid"
	PaymentStatePartial PaymentState = "partial"
	PaymentStatePaid    PaymentState = "paid"
)

// BookingSource records how the appointment entered the system
type BookingSource string

const (
	BookingSourceOnline BookingSource = "online"
	BookingSourceWalkIn BookingSource = "walk-in"
	BookingSourcePhone  BookingSource = "phone"
)

// Appointment represents a patient booking for a catalog service.
//
// ServicePrice is a snapshot of the agreed price taken at booking (or set by an
// admin after a consultation); later catalog edits never change it. ServicePrice
// and AppointmentDate are both nil exactly while the appointment sits in
// pending_consultation.
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	ServiceID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"service_id"`
	ServicePrice    *decimal.Decimal  `gorm:"type:decimal(12,2)" json:"service_price"`
	Quantity        int               `gorm:"not null;default:1" json:"quantity"`
	AppointmentDate *time.Time        `gorm:"index" json:"appointment_date"`
	BookingSource   BookingSource     `gorm:"type:varchar(20);not null;default:'online'" json:"booking_source"`
	Status          AppointmentStatus `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	PaymentStatus   PaymentState      `gorm:"type:varchar(20);not null;default:'unpaid';index" json:"payment_status"`
	PaymentMethod   *PaymentMethod    `gorm:"type:varchar(20)" json:"payment_method"`
	ReminderSent    bool              `gorm:"not null;default:false" json:"reminder_sent"`
	CreatedByID     uuid.UUID         `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patient   User     `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Service   Service  `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	CreatedBy User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Payments  []Payment `gorm:"foreignKey:AppointmentID" json:"payments,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TotalAmount returns ServicePrice x Quantity, zero while unpriced
func (a *Appointment) TotalAmount() decimal.Decimal {
	if a.ServicePrice == nil {
		return decimal.Zero
	}
	return a.ServicePrice.Mul(decimal.NewFromInt(int64(a.Quantity)))
}

// DepositAmount returns the 50% deposit required to confirm, rounded to whole units
func (a *Appointment) DepositAmount() decimal.Decimal {
	return a.TotalAmount().Div(decimal.NewFromInt(2)).Round(0)
}

// IsPriced reports whether an agreed price has been set
func (a *Appointment) IsPriced() bool {
	return a.ServicePrice != nil
}

// IsCancelled checks if the appointment is cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// IsCompleted checks if the appointment is completed
func (a *Appointment) IsCompleted() bool {
	return a.Status == AppointmentStatusCompleted
}

// IsFullyPaid checks if the appointment has been settled in full
func (a *Appointment) IsFullyPaid() bool {
	return a.PaymentStatus == PaymentStatePaid
}
