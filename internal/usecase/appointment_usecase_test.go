package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"dental-clinic-backend/internal/delivery/dto"
	"dental-clinic-backend/internal/domain/entity"

	"github.com/shopspring/decimal"
)

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func TestCreateAppointment_PricedService(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	uc := newTestAppointmentUsecase(t, db, notifier)

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling and Polishing", decimalPtr("15000"), false)

	resp, err := uc.CreateAppointment(context.Background(), patient.ID, &dto.CreateAppointmentRequest{
		ServiceID:       svc.ID,
		AppointmentDate: futureDate(7),
	})
	if err != nil {
		t.Fatalf("CreateAppointment returned error: %v", err)
	}

	if resp.Status != string(entity.AppointmentStatusPending) {
		t.Errorf("status = %s, want pending", resp.Status)
	}
	if resp.ServicePrice == nil || !resp.ServicePrice.Equal(decimal.RequireFromString("15000")) {
		t.Errorf("service price not snapshotted: %v", resp.ServicePrice)
	}
	if resp.AppointmentDate == nil {
		t.Error("appointment date missing")
	}
	if len(notifier.booked) != 1 {
		t.Errorf("booked notifications = %d, want 1", len(notifier.booked))
	}
}

func TestCreateAppointment_PriceSnapshotSurvivesCatalogEdit(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	uc := newTestAppointmentUsecase(t, db, notifier)

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Tooth Whitening", decimalPtr("40000"), false)

	resp, err := uc.CreateAppointment(context.Background(), patient.ID, &dto.CreateAppointmentRequest{
		ServiceID:       svc.ID,
		AppointmentDate: futureDate(3),
	})
	if err != nil {
		t.Fatalf("CreateAppointment returned error: %v", err)
	}

	newPrice := decimal.RequireFromString("55000")
	if err := db.Model(&entity.Service{}).Where("id = ?", svc.ID).Update("price", newPrice).Error; err != nil {
		t.Fatalf("update catalog price: %v", err)
	}

	var stored entity.Appointment
	if err := db.First(&stored, "id = ?", resp.ID).Error; err != nil {
		t.Fatalf("reload appointment: %v", err)
	}
	if !stored.ServicePrice.Equal(decimal.RequireFromString("40000")) {
		t.Errorf("snapshot price = %s, want 40000", stored.ServicePrice)
	}
}

func TestCreateAppointment_ConsultationService(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	uc := newTestAppointmentUsecase(t, db, notifier)

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Braces Consultation", nil, true)

	// Date and price are ignored for consultation services even when supplied.
	resp, err := uc.CreateAppointment(context.Background(), patient.ID, &dto.CreateAppointmentRequest{
		ServiceID:       svc.ID,
		AppointmentDate: futureDate(7),
	})
	if err != nil {
		t.Fatalf("CreateAppointment returned error: %v", err)
	}

	if resp.Status != string(entity.AppointmentStatusPendingConsultation) {
		t.Errorf("status = %s, want pending_consultation", resp.Status)
	}
	if resp.ServicePrice != nil {
		t.Errorf("service price = %v, want nil", resp.ServicePrice)
	}
	if resp.AppointmentDate != nil {
		t.Errorf("appointment date = %v, want nil", resp.AppointmentDate)
	}
	if len(notifier.consultation) != 1 {
		t.Errorf("consultation notifications = %d, want 1", len(notifier.consultation))
	}
	if len(notifier.booked) != 0 {
		t.Errorf("booked notifications = %d, want 0", len(notifier.booked))
	}
}

func TestCreateAppointment_Validation(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestAppointmentUsecase(t, db, &fakeNotifier{})

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)

	callOnly := createTestService(t, db, "Implant Surgery", decimalPtr("250000"), false)
	callOnly.IsOnlineBookable = false
	if err := db.Save(callOnly).Error; err != nil {
		t.Fatalf("update service: %v", err)
	}

	tests := []struct {
		name    string
		req     *dto.CreateAppointmentRequest
		wantErr error
	}{
		{
			name:    "past date rejected",
			req:     &dto.CreateAppointmentRequest{ServiceID: svc.ID, AppointmentDate: "2020-01-01"},
			wantErr: ErrInvalidAppointmentDate,
		},
		{
			name:    "malformed date rejected",
			req:     &dto.CreateAppointmentRequest{ServiceID: svc.ID, AppointmentDate: "01/02/2026"},
			wantErr: ErrInvalidAppointmentDate,
		},
		{
			name:    "missing date rejected for priced service",
			req:     &dto.CreateAppointmentRequest{ServiceID: svc.ID},
			wantErr: ErrDateRequired,
		},
		{
			name:    "call-only service rejected online",
			req:     &dto.CreateAppointmentRequest{ServiceID: callOnly.ID, AppointmentDate: futureDate(7)},
			wantErr: ErrServiceNotBookable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateAppointment(context.Background(), patient.ID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateAppointment_CallOnlyServiceByPhone(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	uc := newTestAppointmentUsecase(t, db, notifier)

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	callOnly := createTestService(t, db, "Implant Surgery", decimalPtr("250000"), false)
	callOnly.IsOnlineBookable = false
	if err := db.Save(callOnly).Error; err != nil {
		t.Fatalf("update service: %v", err)
	}

	// The front desk books call-only services over the phone.
	resp, err := uc.CreateAppointment(context.Background(), patient.ID, &dto.CreateAppointmentRequest{
		ServiceID:       callOnly.ID,
		AppointmentDate: futureDate(7),
		BookingSource:   string(entity.BookingSourcePhone),
	})
	if err != nil {
		t.Fatalf("CreateAppointment returned error: %v", err)
	}

	if resp.Status != string(entity.AppointmentStatusPending) {
		t.Errorf("status = %s, want pending", resp.Status)
	}
	if resp.BookingSource != string(entity.BookingSourcePhone) {
		t.Errorf("booking source = %s, want phone", resp.BookingSource)
	}
}

func TestCreateAppointment_NonPositiveQuantityDefaultsToOne(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestAppointmentUsecase(t, db, &fakeNotifier{})

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)

	for _, quantity := range []int{0, -2} {
		resp, err := uc.CreateAppointment(context.Background(), patient.ID, &dto.CreateAppointmentRequest{
			ServiceID:       svc.ID,
			AppointmentDate: futureDate(7),
			Quantity:        quantity,
		})
		if err != nil {
			t.Fatalf("quantity %d: CreateAppointment returned error: %v", quantity, err)
		}
		if resp.Quantity != 1 {
			t.Errorf("quantity %d: stored quantity = %d, want 1", quantity, resp.Quantity)
		}
	}
}

func TestAdminUpdateAppointment_PricingForcesAwaitingPayment(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	uc := newTestAppointmentUsecase(t, db, notifier)

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Braces Consultation", nil, true)

	appointment := &entity.Appointment{
		PatientID:     patient.ID,
		ServiceID:     svc.ID,
		Quantity:      1,
		BookingSource: entity.BookingSourceOnline,
		Status:        entity.AppointmentStatusPendingConsultation,
		PaymentStatus: entity.PaymentStateUnpaid,
		CreatedByID:   patient.ID,
	}
	if err := db.Create(appointment).Error; err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	// The supplied confirmed status must lose to the pricing transition.
	confirmed := string(entity.AppointmentStatusConfirmed)
	date := futureDate(10)
	resp, err := uc.AdminUpdateAppointment(context.Background(), admin.ID, appointment.ID, &dto.AdminUpdateAppointmentRequest{
		ServicePrice:    decimalPtr("120000"),
		AppointmentDate: &date,
		Status:          &confirmed,
	})
	if err != nil {
		t.Fatalf("AdminUpdateAppointment returned error: %v", err)
	}

	if resp.Status != string(entity.AppointmentStatusAwaitingPayment) {
		t.Errorf("status = %s, want awaiting_payment", resp.Status)
	}
	if resp.PaymentStatus != string(entity.PaymentStateUnpaid) {
		t.Errorf("payment status = %s, want unpaid", resp.PaymentStatus)
	}
	if len(notifier.plans) != 1 {
		t.Errorf("treatment plan notifications = %d, want 1", len(notifier.plans))
	}
}

func TestAdminUpdateAppointment_DateChangeResetsReminder(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestAppointmentUsecase(t, db, &fakeNotifier{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("15000"), entity.AppointmentStatusConfirmed)

	if err := db.Model(appointment).Update("reminder_sent", true).Error; err != nil {
		t.Fatalf("mark reminder sent: %v", err)
	}

	date := futureDate(21)
	resp, err := uc.AdminUpdateAppointment(context.Background(), admin.ID, appointment.ID, &dto.AdminUpdateAppointmentRequest{
		AppointmentDate: &date,
	})
	if err != nil {
		t.Fatalf("AdminUpdateAppointment returned error: %v", err)
	}

	if resp.ReminderSent {
		t.Error("reminder_sent not reset after date change")
	}
}

func TestAdminUpdateAppointment_AwaitingPaymentStatusNotifies(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	uc := newTestAppointmentUsecase(t, db, notifier)

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("15000"), entity.AppointmentStatusPending)

	// Moving an already-priced appointment into awaiting_payment sends the
	// payment details email even without touching the price.
	awaiting := string(entity.AppointmentStatusAwaitingPayment)
	resp, err := uc.AdminUpdateAppointment(context.Background(), admin.ID, appointment.ID, &dto.AdminUpdateAppointmentRequest{
		Status: &awaiting,
	})
	if err != nil {
		t.Fatalf("AdminUpdateAppointment returned error: %v", err)
	}

	if resp.Status != string(entity.AppointmentStatusAwaitingPayment) {
		t.Errorf("status = %s, want awaiting_payment", resp.Status)
	}
	if len(notifier.plans) != 1 {
		t.Errorf("treatment plan notifications = %d, want 1", len(notifier.plans))
	}
}

func TestAdminUpdateAppointment_InvalidStatus(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestAppointmentUsecase(t, db, &fakeNotifier{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("15000"), entity.AppointmentStatusPending)

	bogus := "on-hold"
	_, err := uc.AdminUpdateAppointment(context.Background(), admin.ID, appointment.ID, &dto.AdminUpdateAppointmentRequest{
		Status: &bogus,
	})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("error = %v, want ErrInvalidStatus", err)
	}
}

func TestRescheduleAppointment_PatientMustCallClinic(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestAppointmentUsecase(t, db, &fakeNotifier{})

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("15000"), entity.AppointmentStatusConfirmed)

	// Owning the appointment does not matter; patients always go through the desk.
	_, err := uc.RescheduleAppointment(context.Background(), patient.ID, entity.RoleIDPatient, appointment.ID, &dto.RescheduleAppointmentRequest{
		AppointmentDate: futureDate(14),
	})
	if !errors.Is(err, ErrPatientMustCallClinic) {
		t.Errorf("error = %v, want ErrPatientMustCallClinic", err)
	}
}

func TestRescheduleAppointment_AdminResetsReminder(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	uc := newTestAppointmentUsecase(t, db, notifier)

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("15000"), entity.AppointmentStatusConfirmed)

	if err := db.Model(appointment).Update("reminder_sent", true).Error; err != nil {
		t.Fatalf("mark reminder sent: %v", err)
	}

	resp, err := uc.RescheduleAppointment(context.Background(), admin.ID, entity.RoleIDAdmin, appointment.ID, &dto.RescheduleAppointmentRequest{
		AppointmentDate: futureDate(14),
	})
	if err != nil {
		t.Fatalf("RescheduleAppointment returned error: %v", err)
	}

	if resp.Appointment.ReminderSent {
		t.Error("reminder_sent not reset after reschedule")
	}
	if len(notifier.rescheduled) != 1 {
		t.Errorf("reschedule notifications = %d, want 1", len(notifier.rescheduled))
	}
}

func TestRescheduleAppointment_TerminalStates(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestAppointmentUsecase(t, db, &fakeNotifier{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)

	for _, status := range []entity.AppointmentStatus{entity.AppointmentStatusCancelled, entity.AppointmentStatusCompleted} {
		appointment := createTestAppointment(t, db, patient, svc, decimalPtr("15000"), status)
		_, err := uc.RescheduleAppointment(context.Background(), admin.ID, entity.RoleIDAdmin, appointment.ID, &dto.RescheduleAppointmentRequest{
			AppointmentDate: futureDate(14),
		})
		if !errors.Is(err, ErrAppointmentClosed) {
			t.Errorf("status %s: error = %v, want ErrAppointmentClosed", status, err)
		}
	}
}

func TestDeleteAppointment_CompletedRefused(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestAppointmentUsecase(t, db, &fakeNotifier{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("15000"), entity.AppointmentStatusCompleted)

	err := uc.DeleteAppointment(context.Background(), admin.ID, entity.RoleIDAdmin, appointment.ID)
	if !errors.Is(err, ErrCompletedAppointment) {
		t.Errorf("error = %v, want ErrCompletedAppointment", err)
	}
}

func TestDeleteAppointment_CascadesPayments(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestAppointmentUsecase(t, db, &fakeNotifier{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("15000"), entity.AppointmentStatusConfirmed)

	payment := &entity.Payment{
		AppointmentID:        appointment.ID,
		PatientID:            patient.ID,
		AmountPaid:           decimal.RequireFromString("5000"),
		Method:               entity.PaymentMethodTransfer,
		Status:               entity.PaymentStatusSuccessful,
		TransactionReference: "REF-TEST-1",
		RecordedByID:         &admin.ID,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}

	if err := uc.DeleteAppointment(context.Background(), admin.ID, entity.RoleIDAdmin, appointment.ID); err != nil {
		t.Fatalf("DeleteAppointment returned error: %v", err)
	}

	var paymentCount int64
	db.Model(&entity.Payment{}).Where("appointment_id = ?", appointment.ID).Count(&paymentCount)
	if paymentCount != 0 {
		t.Errorf("payments left behind = %d, want 0", paymentCount)
	}

	var appointmentCount int64
	db.Model(&entity.Appointment{}).Where("id = ?", appointment.ID).Count(&appointmentCount)
	if appointmentCount != 0 {
		t.Errorf("appointment still present")
	}

	// The delete and its old values must land in the audit trail.
	var audit entity.AuditLog
	if err := db.Where("action = ?", entity.AuditActionAppointmentDelete).First(&audit).Error; err != nil {
		t.Fatalf("audit entry missing: %v", err)
	}
}

func TestGetAppointment_Ownership(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestAppointmentUsecase(t, db, &fakeNotifier{})

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	other := createTestUser(t, db, entity.RoleIDPatient, "other@example.com")
	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	svc := createTestService(t, db, "Scaling", decimalPtr("15000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("15000"), entity.AppointmentStatusPending)

	if _, err := uc.GetAppointment(context.Background(), other.ID, entity.RoleIDPatient, appointment.ID); !errors.Is(err, ErrNotAppointmentOwner) {
		t.Errorf("other patient: error = %v, want ErrNotAppointmentOwner", err)
	}

	if _, err := uc.GetAppointment(context.Background(), patient.ID, entity.RoleIDPatient, appointment.ID); err != nil {
		t.Errorf("owner: unexpected error %v", err)
	}

	if _, err := uc.GetAppointment(context.Background(), admin.ID, entity.RoleIDAdmin, appointment.ID); err != nil {
		t.Errorf("admin: unexpected error %v", err)
	}
}
