package usecase

import (
	"context"
	"errors"
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
	ErrAppointmentNotFound      = errors.New("appointment not found")
	ErrServiceNotBookable       = errors.New("this service is not available for online booking, please call the clinic")
	ErrInvalidAppointmentDate   = errors.New("appointment date must be a valid future date (YYYY-MM-DD)")
	ErrDateRequired             = errors.New("appointment date is required for this service")
	ErrInvalidQuantity          = errors.New("quantity must be at least 1")
	ErrInvalidStatus            = errors.New("invalid appointment status")
	ErrPatientMustCallClinic    = errors.New("please call the clinic to make changes to your appointment")
	ErrCompletedAppointment     = errors.New("completed appointments cannot be deleted")
	ErrAppointmentClosed        = errors.New("cannot reschedule a completed or cancelled appointment")
	ErrNotAppointmentOwner      = errors.New("you do not have access to this appointment")
)

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, patientID uuid.UUID, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, actorID uuid.UUID, actorRoleID int, id uuid.UUID) (*dto.AppointmentResponse, error)
	GetAllAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	GetMyAppointments(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error)
	AdminUpdateAppointment(ctx context.Context, actorID, id uuid.UUID, req *dto.AdminUpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	RescheduleAppointment(ctx context.Context, actorID uuid.UUID, actorRoleID int, id uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.RescheduledAppointmentResponse, error)
	DeleteAppointment(ctx context.Context, actorID uuid.UUID, actorRoleID int, id uuid.UUID) error
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	serviceRepo     repository.ServiceRepository
	paymentRepo     repository.PaymentRepository
	userRepo        repository.UserRepository
	notifier        service.Notifier
	auditService    service.AuditService
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	serviceRepo repository.ServiceRepository,
	paymentRepo repository.PaymentRepository,
	userRepo repository.UserRepository,
	notifier service.Notifier,
	auditService service.AuditService,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		serviceRepo:     serviceRepo,
		paymentRepo:     paymentRepo,
		userRepo:        userRepo,
		notifier:        notifier,
		auditService:    auditService,
	}
}

// CreateAppointment books a service for the authenticated patient.
//
// Services that require a consultation (or carry no catalog price) enter
// pending_consultation with no price and no date; the clinic prices them later
// through AdminUpdateAppointment. Everything else snapshots the catalog price
// at booking time and requires a future date.
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, patientID uuid.UUID, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	svc, err := u.serviceRepo.FindByID(tx, req.ServiceID)
	if err != nil {
		u.log.Warnf("Failed to find service %s: %+v", req.ServiceID, err)
		return nil, err
	}
	if svc == nil || !svc.IsActive {
		return nil, ErrServiceNotFound
	}

	bookingSource := entity.BookingSourceOnline
	if req.BookingSource != "" {
		bookingSource = entity.BookingSource(req.BookingSource)
	}
	// Call-only services can still be booked by the front desk on the
	// patient's behalf, just not through the online channel.
	if !svc.IsOnlineBookable && bookingSource == entity.BookingSourceOnline {
		return nil, ErrServiceNotBookable
	}

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	appointment := &entity.Appointment{
		PatientID:     patientID,
		ServiceID:     svc.ID,
		Quantity:      quantity,
		BookingSource: bookingSource,
		PaymentStatus: entity.PaymentStateUnpaid,
		CreatedByID:   patientID,
	}

	needsConsultation := svc.RequiresConsultation || svc.Price == nil
	if needsConsultation {
		// Price and date stay nil until the clinic prices the treatment plan.
		appointment.Status = entity.AppointmentStatusPendingConsultation
	} else {
		if req.AppointmentDate == "" {
			return nil, ErrDateRequired
		}
		date, err := parseFutureDate(req.AppointmentDate)
		if err != nil {
			return nil, err
		}
		price := *svc.Price
		appointment.ServicePrice = &price
		appointment.AppointmentDate = date
		appointment.Status = entity.AppointmentStatusPending
	}

	if err := u.appointmentRepo.Create(tx, appointment); err != nil {
		if isForeignKeyError(err, "patient") {
			return nil, ErrUserNotFound
		}
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	_ = u.auditService.LogCreate(ctx, tx, &patientID, entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), map[string]interface{}{
		"service_id": svc.ID.String(),
		"status":     string(appointment.Status),
	})

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	// Reload with relations for the response and the notification email.
	created, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointment.ID)
	if err != nil || created == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return converter.AppointmentToResponse(appointment), nil
	}

	if needsConsultation {
		u.notifier.ConsultationRequested(created)
	} else {
		u.notifier.AppointmentBooked(created)
	}

	return converter.AppointmentToResponse(created), nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, actorID uuid.UUID, actorRoleID int, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	if actorRoleID != entity.RoleIDAdmin && appointment.PatientID != actorID {
		return nil, ErrNotAppointmentOwner
	}

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) GetAllAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) GetMyAppointments(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindByPatientID(u.db.WithContext(ctx), patientID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", patientID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// AdminUpdateAppointment applies the clinic's pricing and scheduling decisions.
//
// Setting ServicePrice is the treatment-plan moment: the appointment always
// moves to awaiting_payment with an unpaid ledger, even when the request also
// carries an explicit status, and the patient gets the payment details email.
func (u *appointmentUsecase) AdminUpdateAppointment(ctx context.Context, actorID, id uuid.UUID, req *dto.AdminUpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	oldValue := map[string]interface{}{
		"service_price":    appointment.ServicePrice,
		"appointment_date": appointment.AppointmentDate,
		"status":           string(appointment.Status),
		"quantity":         appointment.Quantity,
	}

	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		appointment.Quantity = *req.Quantity
	}

	if req.AppointmentDate != nil {
		date, err := parseFutureDate(*req.AppointmentDate)
		if err != nil {
			return nil, err
		}
		appointment.AppointmentDate = date
		// The reminder sweep must fire again for the new date.
		appointment.ReminderSent = false
	}

	if req.Status != nil {
		status := entity.AppointmentStatus(*req.Status)
		if !entity.IsValidAppointmentStatus(status) {
			return nil, ErrInvalidStatus
		}
		appointment.Status = status
	}

	priceSet := req.ServicePrice != nil
	if priceSet {
		if req.ServicePrice.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidPaymentAmount
		}
		price := *req.ServicePrice
		appointment.ServicePrice = &price
		appointment.Status = entity.AppointmentStatusAwaitingPayment
		appointment.PaymentStatus = entity.PaymentStateUnpaid
	}

	if err := u.appointmentRepo.Update(tx, appointment); err != nil {
		u.log.Warnf("Failed to update appointment %s: %+v", id, err)
		return nil, err
	}

	_ = u.auditService.LogUpdate(ctx, tx, &actorID, entity.AuditActionAppointmentUpdate, "appointment", id.String(), oldValue, map[string]interface{}{
		"service_price":    appointment.ServicePrice,
		"appointment_date": appointment.AppointmentDate,
		"status":           string(appointment.Status),
		"quantity":         appointment.Quantity,
	})

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	updated, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil || updated == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", id, err)
		return converter.AppointmentToResponse(appointment), nil
	}

	// The payment-details email follows the resulting status, so moving an
	// already-priced appointment into awaiting_payment also triggers it.
	if updated.Status == entity.AppointmentStatusAwaitingPayment {
		u.notifier.TreatmentPlanReady(updated)
	}

	return converter.AppointmentToResponse(updated), nil
}

// RescheduleAppointment moves an appointment to a new future date.
// Patients cannot self-serve here; they are told to call the clinic.
func (u *appointmentUsecase) RescheduleAppointment(ctx context.Context, actorID uuid.UUID, actorRoleID int, id uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.RescheduledAppointmentResponse, error) {
	if actorRoleID != entity.RoleIDAdmin {
		return nil, ErrPatientMustCallClinic
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	if appointment.IsCancelled() || appointment.IsCompleted() {
		return nil, ErrAppointmentClosed
	}

	date, err := parseFutureDate(req.AppointmentDate)
	if err != nil {
		return nil, err
	}

	oldDate := appointment.AppointmentDate
	appointment.AppointmentDate = date
	// The reminder sweep must fire again for the new date.
	appointment.ReminderSent = false

	if err := u.appointmentRepo.Update(tx, appointment); err != nil {
		u.log.Warnf("Failed to reschedule appointment %s: %+v", id, err)
		return nil, err
	}

	_ = u.auditService.LogUpdate(ctx, tx, &actorID, entity.AuditActionAppointmentMove, "appointment", id.String(),
		map[string]interface{}{"appointment_date": oldDate},
		map[string]interface{}{"appointment_date": date},
	)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	moved, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil || moved == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", id, err)
		moved = appointment
	}

	payments, err := u.paymentRepo.FindSuccessfulByAppointmentID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to load payments for appointment %s: %+v", id, err)
		return nil, err
	}

	totalPaid := sumPayments(payments)
	remaining := moved.TotalAmount().Sub(totalPaid)

	u.notifier.AppointmentRescheduled(moved)

	return &dto.RescheduledAppointmentResponse{
		Appointment:      *converter.AppointmentToResponse(moved),
		TotalPaid:        totalPaid,
		RemainingBalance: remaining,
		Payments:         converter.PaymentsToResponses(payments),
	}, nil
}

// DeleteAppointment removes an appointment and its payment ledger.
// Completed appointments are financial history and stay.
func (u *appointmentUsecase) DeleteAppointment(ctx context.Context, actorID uuid.UUID, actorRoleID int, id uuid.UUID) error {
	if actorRoleID != entity.RoleIDAdmin {
		return ErrPatientMustCallClinic
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	if appointment.IsCompleted() {
		return ErrCompletedAppointment
	}

	if err := u.paymentRepo.DeleteByAppointmentID(tx, id); err != nil {
		u.log.Warnf("Failed to delete payments for appointment %s: %+v", id, err)
		return err
	}

	if err := u.appointmentRepo.Delete(tx, id); err != nil {
		u.log.Warnf("Failed to delete appointment %s: %+v", id, err)
		return err
	}

	_ = u.auditService.LogDelete(ctx, tx, &actorID, entity.AuditActionAppointmentDelete, "appointment", id.String(), map[string]interface{}{
		"patient_id":       appointment.PatientID.String(),
		"service_id":       appointment.ServiceID.String(),
		"status":           string(appointment.Status),
		"payment_status":   string(appointment.PaymentStatus),
		"appointment_date": appointment.AppointmentDate,
	})

	return tx.Commit().Error
}

// parseFutureDate parses a YYYY-MM-DD date and rejects anything before today.
// Dates are compared at day precision in UTC.
func parseFutureDate(value string) (*time.Time, error) {
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, ErrInvalidAppointmentDate
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return nil, ErrInvalidAppointmentDate
	}

	return &date, nil
}

func sumPayments(payments []entity.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountPaid)
	}
	return total
}
