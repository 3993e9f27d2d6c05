package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"dental-clinic-backend/internal/delivery/dto"
	"dental-clinic-backend/internal/delivery/http/middleware"
	"dental-clinic-backend/internal/service"
	"dental-clinic-backend/internal/usecase"
	"dental-clinic-backend/pkg/response"
	"dental-clinic-backend/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type PaymentHandler struct {
	paymentUsecase usecase.PaymentUsecase
	validator      *validator.CustomValidator
	log            *logrus.Logger
	webhookSecret  string
}

func NewPaymentHandler(paymentUsecase usecase.PaymentUsecase, validator *validator.CustomValidator, log *logrus.Logger, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		paymentUsecase: paymentUsecase,
		validator:      validator,
		log:            log,
		webhookSecret:  webhookSecret,
	}
}

// RecordManualPayment handles recording a transfer or walk-in payment (admin)
// @Summary Record manual payment
// @Description Record a transfer or walk-in payment against an appointment
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.RecordManualPaymentRequest true "Payment Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /payments/manual [post]
func (h *PaymentHandler) RecordManualPayment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	var req dto.RecordManualPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.paymentUsecase.RecordManualPayment(r.Context(), actorID, &req)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrAppointmentNotPriced, usecase.ErrAppointmentCancelled,
			usecase.ErrInvalidPaymentAmount, usecase.ErrInvalidPaymentMethod:
			response.Error(w, http.StatusBadRequest, err.Error(), nil)
		case usecase.ErrPaymentExceedsBalance, usecase.ErrAppointmentPaidInFull:
			response.Conflict(w, err.Error())
		case service.ErrAppointmentBusy:
			response.Conflict(w, err.Error())
		default:
			response.InternalServerError(w, "Failed to record payment")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Payment recorded successfully", result)
}

// InitializePayment handles starting an online payment
// @Summary Initialize online payment
// @Description Start a Paystack transaction for the deposit or the remaining balance
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.InitializePaymentRequest true "Initialize Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /payments/initialize [post]
func (h *PaymentHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}
	roleID, _ := middleware.GetRoleIDFromContext(r.Context())

	var req dto.InitializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.paymentUsecase.InitializeOnlinePayment(r.Context(), actorID, roleID, &req)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotAppointmentOwner:
			response.Forbidden(w, err.Error())
		case usecase.ErrAppointmentNotPriced, usecase.ErrAppointmentCancelled, usecase.ErrAppointmentPaidInFull:
			response.Error(w, http.StatusBadRequest, err.Error(), nil)
		default:
			response.InternalServerError(w, "Failed to initialize payment")
		}
		return
	}

	response.Success(w, http.StatusOK, "Payment initialized successfully", result)
}

// HandleWebhook handles Paystack charge notifications
// @Summary Paystack webhook
// @Description Receive charge events; the signature header authenticates the caller
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /payments/webhook [post]
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	// The signature covers the raw body, so it must be verified before decoding.
	signature := r.Header.Get("x-paystack-signature")
	if !service.VerifyWebhookSignature(h.webhookSecret, body, signature) {
		h.log.Warnf("Webhook rejected: bad signature from %s", r.RemoteAddr)
		response.Unauthorized(w, "Invalid signature")
		return
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid webhook payload", nil)
		return
	}

	// Business rejections are swallowed by the usecase and acknowledged here
	// with 200 so Paystack stops retrying; only infrastructure failures get a
	// retryable 500.
	if err := h.paymentUsecase.HandleWebhook(r.Context(), &event); err != nil {
		response.InternalServerError(w, "Failed to process webhook")
		return
	}

	response.Success(w, http.StatusOK, "Webhook processed", nil)
}

// GetAllPayments handles listing payments (admin)
// @Summary List payments
// @Description Get all payments, optionally filtered by appointment
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param appointment_id query string false "Appointment ID"
// @Success 200 {object} response.Response
// @Router /admin/payments [get]
func (h *PaymentHandler) GetAllPayments(w http.ResponseWriter, r *http.Request) {
	var appointmentID *uuid.UUID
	if raw := r.URL.Query().Get("appointment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
			return
		}
		appointmentID = &id
	}

	payments, err := h.paymentUsecase.GetAllPayments(r.Context(), appointmentID)
	if err != nil {
		response.InternalServerError(w, "Failed to get payments")
		return
	}

	response.Success(w, http.StatusOK, "Payments retrieved successfully", payments)
}

// GetAppointmentPayments handles listing one appointment's payments
// @Summary List appointment payments
// @Description Get the payment ledger for an appointment; patients only see their own
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /payments/appointment/{id} [get]
func (h *PaymentHandler) GetAppointmentPayments(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}
	roleID, _ := middleware.GetRoleIDFromContext(r.Context())

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	payments, err := h.paymentUsecase.GetAppointmentPayments(r.Context(), actorID, roleID, id)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotAppointmentOwner:
			response.Forbidden(w, err.Error())
		default:
			response.InternalServerError(w, "Failed to get payments")
		}
		return
	}

	response.Success(w, http.StatusOK, "Payments retrieved successfully", payments)
}

// GetPaymentSummary handles one appointment's payment summary
// @Summary Appointment payment summary
// @Description Get totals, remaining balance and a per-method breakdown
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /payments/appointment/{id}/summary [get]
func (h *PaymentHandler) GetPaymentSummary(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}
	roleID, _ := middleware.GetRoleIDFromContext(r.Context())

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	summary, err := h.paymentUsecase.GetPaymentSummary(r.Context(), actorID, roleID, id)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotAppointmentOwner:
			response.Forbidden(w, err.Error())
		default:
			response.InternalServerError(w, "Failed to get payment summary")
		}
		return
	}

	response.Success(w, http.StatusOK, "Payment summary retrieved successfully", summary)
}

// GetGlobalPaymentSummary handles the clinic-wide revenue summary (admin)
// @Summary Global payment summary
// @Description Get total revenue and a per-method breakdown across all appointments
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /admin/payments/summary [get]
func (h *PaymentHandler) GetGlobalPaymentSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.paymentUsecase.GetGlobalPaymentSummary(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get payment summary")
		return
	}

	response.Success(w, http.StatusOK, "Payment summary retrieved successfully", summary)
}
