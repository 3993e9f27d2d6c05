package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type RecordManualPaymentRequest struct {
	AppointmentID uuid.UUID       `json:"appointment_id" validate:"required"`
	AmountPaid    decimal.Decimal `json:"amount_paid" validate:"required"`
	Method        string          `json:"method" validate:"required,oneof=transfer walk-in"`
}

type InitializePaymentRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
}

// WebhookEvent is the Paystack event envelope. Amount arrives in minor
// currency units (kobo) and is converted at this boundary.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	Amount    int64           `json:"amount"`
	Reference string          `json:"reference"`
	PaidAt    string          `json:"paid_at"`
	Metadata  WebhookMetadata `json:"metadata"`
}

type WebhookMetadata struct {
	AppointmentID string `json:"appointmentId"`
	PatientID     string `json:"patientId"`
}

// Response DTOs

type PaymentResponse struct {
	ID                   uuid.UUID       `json:"id"`
	AppointmentID        uuid.UUID       `json:"appointment_id"`
	PatientID            uuid.UUID       `json:"patient_id"`
	AmountPaid           decimal.Decimal `json:"amount_paid"`
	Method               string          `json:"method"`
	Status               string          `json:"status"`
	TransactionReference string          `json:"transaction_reference"`
	ReceiptNumber        string          `json:"receipt_number"`
	RecordedBy           *UserResponse   `json:"recorded_by,omitempty"`
	PaidAt               time.Time       `json:"paid_at"`
	CreatedAt            time.Time       `json:"created_at"`
}

type PaymentListResponse struct {
	Payments []PaymentResponse `json:"payments"`
	Total    int               `json:"total"`
}

type RecordPaymentResponse struct {
	Payment          PaymentResponse `json:"payment"`
	PaymentStatus    string          `json:"payment_status"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

type InitializePaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type PaymentSummaryResponse struct {
	TotalAmount      decimal.Decimal            `json:"total_amount"`
	TotalPaid        decimal.Decimal            `json:"total_paid"`
	RemainingBalance decimal.Decimal            `json:"remaining_balance"`
	PaymentStatus    string                     `json:"payment_status"`
	Breakdown        map[string]decimal.Decimal `json:"breakdown"`
	Transactions     int                        `json:"transactions"`
}

type GlobalPaymentSummaryResponse struct {
	TotalRevenue      decimal.Decimal            `json:"total_revenue"`
	TotalTransactions int                        `json:"total_transactions"`
	Breakdown         map[string]decimal.Decimal `json:"breakdown"`
}
