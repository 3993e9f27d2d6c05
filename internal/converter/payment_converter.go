package converter

import (
	"dental-clinic-backend/internal/delivery/dto"
	"dental-clinic-backend/internal/domain/entity"
)

// PaymentToResponse converts a Payment entity to PaymentResponse DTO
func PaymentToResponse(payment *entity.Payment) *dto.PaymentResponse {
	if payment == nil {
		return nil
	}

	response := &dto.PaymentResponse{
		ID:                   payment.ID,
		AppointmentID:        payment.AppointmentID,
		PatientID:            payment.PatientID,
		AmountPaid:           payment.AmountPaid,
		Method:               string(payment.Method),
		Status:               string(payment.Status),
		TransactionReference: payment.TransactionReference,
		ReceiptNumber:        payment.ReceiptNumber,
		PaidAt:               payment.PaidAt,
		CreatedAt:            payment.CreatedAt,
	}

	if payment.RecordedBy != nil {
		response.RecordedBy = UserToResponse(payment.RecordedBy)
	}

	return response
}

// PaymentsToResponses converts a slice of Payment entities to PaymentResponse DTOs
func PaymentsToResponses(payments []entity.Payment) []dto.PaymentResponse {
	responses := make([]dto.PaymentResponse, len(payments))
	for i, payment := range payments {
		resp := PaymentToResponse(&payment)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
