package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"dental-clinic-backend/internal/converter"
	"dental-clinic-backend/internal/delivery/dto"
	"dental-clinic-backend/internal/domain/entity"
	"dental-clinic-backend/internal/domain/repository"
	"dental-clinic-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotPriced  = errors.New("appointment has not been priced yet")
	ErrAppointmentCancelled  = errors.New("cannot record payments against a cancelled appointment")
	ErrAppointmentPaidInFull = errors.New("appointment is already fully paid")
	ErrInvalidPaymentAmount  = errors.New("payment amount must be greater than zero")
	ErrPaymentExceedsBalance = errors.New("payment would exceed the remaining balance")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
)

type PaymentUsecase interface {
	RecordManualPayment(ctx context.Context, actorID uuid.UUID, req *dto.RecordManualPaymentRequest) (*dto.RecordPaymentResponse, error)
	InitializeOnlinePayment(ctx context.Context, actorID uuid.UUID, actorRoleID int, req *dto.InitializePaymentRequest) (*dto.InitializePaymentResponse, error)
	HandleWebhook(ctx context.Context, event *dto.WebhookEvent) error
	GetAllPayments(ctx context.Context, appointmentID *uuid.UUID) (*dto.PaymentListResponse, error)
	GetAppointmentPayments(ctx context.Context, actorID uuid.UUID, actorRoleID int, appointmentID uuid.UUID) (*dto.PaymentListResponse, error)
	GetPaymentSummary(ctx context.Context, actorID uuid.UUID, actorRoleID int, appointmentID uuid.UUID) (*dto.PaymentSummaryResponse, error)
	GetGlobalPaymentSummary(ctx context.Context) (*dto.GlobalPaymentSummaryResponse, error)
}

type paymentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	paymentRepo     repository.PaymentRepository
	appointmentRepo repository.AppointmentRepository
	locker          service.AppointmentLocker
	gateway         service.PaymentGateway
	notifier        service.Notifier
	auditService    service.AuditService
}

func NewPaymentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	paymentRepo repository.PaymentRepository,
	appointmentRepo repository.AppointmentRepository,
	locker service.AppointmentLocker,
	gateway service.PaymentGateway,
	notifier service.Notifier,
	auditService service.AuditService,
) PaymentUsecase {
	return &paymentUsecase{
		db:              db,
		log:             log,
		paymentRepo:     paymentRepo,
		appointmentRepo: appointmentRepo,
		locker:          locker,
		gateway:         gateway,
		notifier:        notifier,
		auditService:    auditService,
	}
}

// RecordManualPayment appends an admin-recorded transfer or walk-in payment.
//
// The whole read-check-append runs under the per-appointment lock so two
// concurrent payments cannot both read the same paid-so-far total and push the
// ledger past servicePrice x quantity. A payment that would overflow the
// balance is rejected outright, not clamped.
func (u *paymentUsecase) RecordManualPayment(ctx context.Context, actorID uuid.UUID, req *dto.RecordManualPaymentRequest) (*dto.RecordPaymentResponse, error) {
	method := entity.PaymentMethod(req.Method)
	if !entity.IsValidManualMethod(method) {
		return nil, ErrInvalidPaymentMethod
	}
	if req.AmountPaid.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPaymentAmount
	}

	var result *dto.RecordPaymentResponse
	var notifyAppointment *entity.Appointment
	var notifyTotalPaid, notifyRemaining decimal.Decimal

	err := u.locker.WithAppointmentLock(ctx, req.AppointmentID, func(ctx context.Context) error {
		tx := u.db.WithContext(ctx).Begin()
		defer tx.Rollback()

		appointment, err := u.appointmentRepo.FindByID(tx, req.AppointmentID)
		if err != nil {
			u.log.Warnf("Failed to find appointment %s: %+v", req.AppointmentID, err)
			return err
		}
		if appointment == nil {
			return ErrAppointmentNotFound
		}
		if appointment.IsCancelled() {
			return ErrAppointmentCancelled
		}
		if !appointment.IsPriced() {
			return ErrAppointmentNotPriced
		}

		existing, err := u.paymentRepo.FindSuccessfulByAppointmentID(tx, req.AppointmentID)
		if err != nil {
			u.log.Warnf("Failed to load payments for appointment %s: %+v", req.AppointmentID, err)
			return err
		}

		totalAmount := appointment.TotalAmount()
		paidSoFar := sumPayments(existing)
		if paidSoFar.GreaterThanOrEqual(totalAmount) {
			return ErrAppointmentPaidInFull
		}
		if paidSoFar.Add(req.AmountPaid).GreaterThan(totalAmount) {
			return ErrPaymentExceedsBalance
		}

		payment := &entity.Payment{
			AppointmentID:        appointment.ID,
			PatientID:            appointment.PatientID,
			AmountPaid:           req.AmountPaid,
			Method:               method,
			Status:               entity.PaymentStatusSuccessful,
			TransactionReference: generateTransactionReference(),
			ReceiptNumber:        generateReceiptNumber(),
			RecordedByID:         &actorID,
		}

		if err := u.paymentRepo.Create(tx, payment); err != nil {
			u.log.Warnf("Failed to create payment: %+v", err)
			return err
		}

		totalPaid := paidSoFar.Add(req.AmountPaid)
		u.settleLedger(appointment, totalPaid)

		if err := u.appointmentRepo.Update(tx, appointment); err != nil {
			u.log.Warnf("Failed to update appointment ledger state: %+v", err)
			return err
		}

		_ = u.auditService.LogCreate(ctx, tx, &actorID, entity.AuditActionPaymentRecord, "payment", payment.ID.String(), map[string]interface{}{
			"appointment_id": appointment.ID.String(),
			"amount_paid":    req.AmountPaid,
			"method":         string(method),
			"receipt_number": payment.ReceiptNumber,
		})

		if err := tx.Commit().Error; err != nil {
			u.log.Warnf("Failed commit transaction: %+v", err)
			return err
		}

		notifyAppointment = appointment
		notifyTotalPaid = totalPaid
		notifyRemaining = totalAmount.Sub(totalPaid)

		result = &dto.RecordPaymentResponse{
			Payment:          *converter.PaymentToResponse(payment),
			PaymentStatus:    string(appointment.PaymentStatus),
			TotalPaid:        totalPaid,
			TotalAmount:      totalAmount,
			RemainingBalance: notifyRemaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.notifyPayment(ctx, notifyAppointment, req.AmountPaid, notifyTotalPaid, notifyRemaining)

	return result, nil
}

// InitializeOnlinePayment starts a Paystack transaction for the appointment.
// An unpaid appointment is initialized for the 50% deposit; a partially paid
// one for the remaining balance.
func (u *paymentUsecase) InitializeOnlinePayment(ctx context.Context, actorID uuid.UUID, actorRoleID int, req *dto.InitializePaymentRequest) (*dto.InitializePaymentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), req.AppointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", req.AppointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if actorRoleID != entity.RoleIDAdmin && appointment.PatientID != actorID {
		return nil, ErrNotAppointmentOwner
	}
	if appointment.IsCancelled() {
		return nil, ErrAppointmentCancelled
	}
	if !appointment.IsPriced() {
		return nil, ErrAppointmentNotPriced
	}
	if appointment.IsFullyPaid() {
		return nil, ErrAppointmentPaidInFull
	}

	var amount decimal.Decimal
	if appointment.PaymentStatus == entity.PaymentStatePartial {
		payments, err := u.paymentRepo.FindSuccessfulByAppointmentID(u.db.WithContext(ctx), appointment.ID)
		if err != nil {
			u.log.Warnf("Failed to load payments for appointment %s: %+v", appointment.ID, err)
			return nil, err
		}
		amount = appointment.TotalAmount().Sub(sumPayments(payments))
	} else {
		amount = appointment.DepositAmount()
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrAppointmentPaidInFull
	}

	// Paystack expects kobo.
	amountMinor := amount.Mul(decimal.NewFromInt(100)).IntPart()

	initResult, err := u.gateway.InitializeTransaction(ctx, appointment.Patient.Email, amountMinor, map[string]interface{}{
		"appointmentId": appointment.ID.String(),
		"patientId":     appointment.PatientID.String(),
	})
	if err != nil {
		u.log.Warnf("Failed to initialize online payment: %+v", err)
		return nil, err
	}

	return &dto.InitializePaymentResponse{
		AuthorizationURL: initResult.AuthorizationURL,
		Reference:        initResult.Reference,
	}, nil
}

// HandleWebhook settles a confirmed Paystack charge into the ledger.
//
// Business rejections (unknown appointment, duplicate reference, amount past
// the balance) are logged and swallowed so the handler acknowledges with 200
// and Paystack stops retrying; only infrastructure failures propagate.
func (u *paymentUsecase) HandleWebhook(ctx context.Context, event *dto.WebhookEvent) error {
	if event.Event != "charge.success" {
		return nil
	}

	appointmentID, err := uuid.Parse(event.Data.Metadata.AppointmentID)
	if err != nil {
		u.log.Errorf("Webhook %s carries no valid appointment id: %+v", event.Data.Reference, err)
		return nil
	}

	amount := decimal.NewFromInt(event.Data.Amount).Div(decimal.NewFromInt(100))
	if amount.LessThanOrEqual(decimal.Zero) {
		u.log.Errorf("Webhook %s carries non-positive amount %s", event.Data.Reference, amount)
		return nil
	}

	var notifyAppointment *entity.Appointment
	var notifyTotalPaid, notifyRemaining decimal.Decimal

	err = u.locker.WithAppointmentLock(ctx, appointmentID, func(ctx context.Context) error {
		tx := u.db.WithContext(ctx).Begin()
		defer tx.Rollback()

		// Paystack retries webhooks; the reference is the idempotency key.
		existing, err := u.paymentRepo.FindByTransactionReference(tx, event.Data.Reference)
		if err != nil {
			u.log.Warnf("Failed to check reference %s: %+v", event.Data.Reference, err)
			return err
		}
		if existing != nil {
			return nil
		}

		appointment, err := u.appointmentRepo.FindByID(tx, appointmentID)
		if err != nil {
			u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
			return err
		}
		if appointment == nil {
			u.log.Errorf("Webhook %s references unknown appointment %s", event.Data.Reference, appointmentID)
			return nil
		}
		if appointment.IsCancelled() || !appointment.IsPriced() {
			u.log.Errorf("Webhook %s hit appointment %s in state %s, needs manual review",
				event.Data.Reference, appointmentID, appointment.Status)
			return nil
		}

		successful, err := u.paymentRepo.FindSuccessfulByAppointmentID(tx, appointmentID)
		if err != nil {
			u.log.Warnf("Failed to load payments for appointment %s: %+v", appointmentID, err)
			return err
		}

		totalAmount := appointment.TotalAmount()
		paidSoFar := sumPayments(successful)
		if paidSoFar.Add(amount).GreaterThan(totalAmount) {
			// The money is already with the processor. Do not record it;
			// flag for a manual refund instead.
			u.log.Errorf("Webhook %s would overpay appointment %s (%s paid of %s, charge %s), needs manual refund",
				event.Data.Reference, appointmentID, paidSoFar, totalAmount, amount)
			return nil
		}

		payment := &entity.Payment{
			AppointmentID:        appointment.ID,
			PatientID:            appointment.PatientID,
			AmountPaid:           amount,
			Method:               entity.PaymentMethodOnline,
			Status:               entity.PaymentStatusSuccessful,
			TransactionReference: event.Data.Reference,
			ReceiptNumber:        generateReceiptNumber(),
			PaidAt:               parseWebhookPaidAt(event.Data.PaidAt),
		}

		if err := u.paymentRepo.Create(tx, payment); err != nil {
			u.log.Warnf("Failed to create webhook payment: %+v", err)
			return err
		}

		totalPaid := paidSoFar.Add(amount)
		u.settleLedger(appointment, totalPaid)

		if err := u.appointmentRepo.Update(tx, appointment); err != nil {
			u.log.Warnf("Failed to update appointment ledger state: %+v", err)
			return err
		}

		_ = u.auditService.LogCreate(ctx, tx, nil, entity.AuditActionPaymentWebhook, "payment", payment.ID.String(), map[string]interface{}{
			"appointment_id": appointment.ID.String(),
			"amount_paid":    amount,
			"reference":      event.Data.Reference,
		})

		if err := tx.Commit().Error; err != nil {
			u.log.Warnf("Failed commit transaction: %+v", err)
			return err
		}

		notifyAppointment = appointment
		notifyTotalPaid = totalPaid
		notifyRemaining = totalAmount.Sub(totalPaid)
		return nil
	})
	if err != nil {
		return err
	}

	u.notifyPayment(ctx, notifyAppointment, amount, notifyTotalPaid, notifyRemaining)

	return nil
}

func (u *paymentUsecase) GetAllPayments(ctx context.Context, appointmentID *uuid.UUID) (*dto.PaymentListResponse, error) {
	payments, err := u.paymentRepo.FindAll(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find payments: %+v", err)
		return nil, err
	}

	return &dto.PaymentListResponse{
		Payments: converter.PaymentsToResponses(payments),
		Total:    len(payments),
	}, nil
}

func (u *paymentUsecase) GetAppointmentPayments(ctx context.Context, actorID uuid.UUID, actorRoleID int, appointmentID uuid.UUID) (*dto.PaymentListResponse, error) {
	if _, err := u.loadOwnedAppointment(ctx, actorID, actorRoleID, appointmentID); err != nil {
		return nil, err
	}

	payments, err := u.paymentRepo.FindByAppointmentID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find payments for appointment %s: %+v", appointmentID, err)
		return nil, err
	}

	return &dto.PaymentListResponse{
		Payments: converter.PaymentsToResponses(payments),
		Total:    len(payments),
	}, nil
}

func (u *paymentUsecase) GetPaymentSummary(ctx context.Context, actorID uuid.UUID, actorRoleID int, appointmentID uuid.UUID) (*dto.PaymentSummaryResponse, error) {
	appointment, err := u.loadOwnedAppointment(ctx, actorID, actorRoleID, appointmentID)
	if err != nil {
		return nil, err
	}

	payments, err := u.paymentRepo.FindSuccessfulByAppointmentID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find payments for appointment %s: %+v", appointmentID, err)
		return nil, err
	}

	totalPaid := decimal.Zero
	breakdown := map[string]decimal.Decimal{}
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.AmountPaid)
		breakdown[string(p.Method)] = breakdown[string(p.Method)].Add(p.AmountPaid)
	}

	return &dto.PaymentSummaryResponse{
		TotalAmount:      appointment.TotalAmount(),
		TotalPaid:        totalPaid,
		RemainingBalance: appointment.TotalAmount().Sub(totalPaid),
		PaymentStatus:    string(appointment.PaymentStatus),
		Breakdown:        breakdown,
		Transactions:     len(payments),
	}, nil
}

func (u *paymentUsecase) GetGlobalPaymentSummary(ctx context.Context) (*dto.GlobalPaymentSummaryResponse, error) {
	payments, err := u.paymentRepo.FindAllSuccessful(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find payments: %+v", err)
		return nil, err
	}

	totalRevenue := decimal.Zero
	breakdown := map[string]decimal.Decimal{}
	for _, p := range payments {
		totalRevenue = totalRevenue.Add(p.AmountPaid)
		breakdown[string(p.Method)] = breakdown[string(p.Method)].Add(p.AmountPaid)
	}

	return &dto.GlobalPaymentSummaryResponse{
		TotalRevenue:      totalRevenue,
		TotalTransactions: len(payments),
		Breakdown:         breakdown,
	}, nil
}

// settleLedger recomputes the payment state and confirms the appointment on
// its first payment. Confirmation is one way: a later partial payment never
// demotes a confirmed appointment.
func (u *paymentUsecase) settleLedger(appointment *entity.Appointment, totalPaid decimal.Decimal) {
	if totalPaid.GreaterThanOrEqual(appointment.TotalAmount()) {
		appointment.PaymentStatus = entity.PaymentStatePaid
	} else if totalPaid.GreaterThan(decimal.Zero) {
		appointment.PaymentStatus = entity.PaymentStatePartial
	}

	if appointment.Status == entity.AppointmentStatusPending ||
		appointment.Status == entity.AppointmentStatusAwaitingPayment {
		appointment.Status = entity.AppointmentStatusConfirmed
	}
}

func (u *paymentUsecase) loadOwnedAppointment(ctx context.Context, actorID uuid.UUID, actorRoleID int, appointmentID uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if actorRoleID != entity.RoleIDAdmin && appointment.PatientID != actorID {
		return nil, ErrNotAppointmentOwner
	}
	return appointment, nil
}

func (u *paymentUsecase) notifyPayment(ctx context.Context, appointment *entity.Appointment, amount, totalPaid, remaining decimal.Decimal) {
	if appointment == nil {
		return
	}

	// Reload with relations; the email needs the patient and service names.
	loaded, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointment.ID)
	if err != nil || loaded == nil {
		u.log.Warnf("Failed to reload appointment %s for notification: %+v", appointment.ID, err)
		return
	}

	u.notifier.PaymentReceived(loaded, amount, totalPaid, remaining)
}

func parseWebhookPaidAt(value string) time.Time {
	if value == "" {
		return time.Now()
	}
	paidAt, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Now()
	}
	return paidAt
}

const referenceCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode(length int) string {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceCharset))))
		if err != nil {
			// crypto/rand failing means the platform is broken; fall back to a
			// time-derived index rather than panicking mid-payment.
			code[i] = referenceCharset[time.Now().UnixNano()%int64(len(referenceCharset))]
			continue
		}
		code[i] = referenceCharset[n.Int64()]
	}
	return string(code)
}

// generateReceiptNumber returns a human-readable receipt number, e.g.
// RCPT-20260115-7KQ2MX
func generateReceiptNumber() string {
	return fmt.Sprintf("RCPT-%s-%s", time.Now().Format("20060102"), randomCode(6))
}

// generateTransactionReference returns a unique reference for manual payments.
// Online payments keep the processor's reference instead.
func generateTransactionReference() string {
	return fmt.Sprintf("REF-%s-%s", time.Now().Format("20060102"), randomCode(10))
}
