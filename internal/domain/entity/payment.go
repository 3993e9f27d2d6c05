package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodOnline   PaymentMethod = "online"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodWalkIn   PaymentMethod = "walk-in"
)

// PaymentStatus represents the outcome of a payment attempt
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// Payment is an append-only ledger entry against an appointment.
// The sum of successful payments for an appointment never exceeds its total;
// the payment usecase enforces this under a per-appointment lock.
type Payment struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AppointmentID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"appointment_id"`
	PatientID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"patient_id"`
	AmountPaid           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_paid"`
	Method               PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Status               PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TransactionReference string          `gorm:"type:varchar(100);uniqueIndex" json:"transaction_reference"`
	ReceiptNumber        string          `gorm:"type:varchar(100)" json:"receipt_number"`
	RecordedByID         *uuid.UUID      `gorm:"type:uuid" json:"recorded_by_id"` // nil for webhook-originated payments
	PaidAt               time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Patient     User        `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	RecordedBy  *User       `gorm:"foreignKey:RecordedByID" json:"recorded_by,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now()
	}
	return nil
}

// IsSuccessful checks if the payment settled
func (p *Payment) IsSuccessful() bool {
	return p.Status == PaymentStatusSuccessful
}

// IsValidManualMethod reports whether m may be used for admin-recorded payments
func IsValidManualMethod(m PaymentMethod) bool {
	return m == PaymentMethodTransfer || m == PaymentMethodWalkIn
}
