package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"dental-clinic-backend/internal/delivery/dto"
	"dental-clinic-backend/internal/domain/entity"

	"github.com/shopspring/decimal"
)

func TestRecordManualPayment_FirstPaymentConfirms(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	uc := newTestPaymentUsecase(t, db, notifier, &fakeGateway{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Root Canal", decimalPtr("40000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("40000"), entity.AppointmentStatusAwaitingPayment)

	resp, err := uc.RecordManualPayment(context.Background(), admin.ID, &dto.RecordManualPaymentRequest{
		AppointmentID: appointment.ID,
		AmountPaid:    decimal.RequireFromString("20000"),
		Method:        "transfer",
	})
	if err != nil {
		t.Fatalf("RecordManualPayment returned error: %v", err)
	}

	if resp.PaymentStatus != string(entity.PaymentStatePartial) {
		t.Errorf("payment status = %s, want partial", resp.PaymentStatus)
	}
	if !resp.RemainingBalance.Equal(decimal.RequireFromString("20000")) {
		t.Errorf("remaining = %s, want 20000", resp.RemainingBalance)
	}
	if resp.Payment.ReceiptNumber == "" {
		t.Error("receipt number missing")
	}

	var stored entity.Appointment
	if err := db.First(&stored, "id = ?", appointment.ID).Error; err != nil {
		t.Fatalf("reload appointment: %v", err)
	}
	if stored.Status != entity.AppointmentStatusConfirmed {
		t.Errorf("status = %s, want confirmed after first payment", stored.Status)
	}
	if len(notifier.payments) != 1 {
		t.Errorf("payment notifications = %d, want 1", len(notifier.payments))
	}
}

func TestRecordManualPayment_ExactBalanceSettles(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, &fakeGateway{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	// per-tooth pricing: 20,000 x 2
	svc := createTestService(t, db, "Extraction", decimalPtr("20000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("20000"), entity.AppointmentStatusAwaitingPayment)
	if err := db.Model(appointment).Update("quantity", 2).Error; err != nil {
		t.Fatalf("update quantity: %v", err)
	}

	if _, err := uc.RecordManualPayment(context.Background(), admin.ID, &dto.RecordManualPaymentRequest{
		AppointmentID: appointment.ID,
		AmountPaid:    decimal.RequireFromString("25000"),
		Method:        "walk-in",
	}); err != nil {
		t.Fatalf("first payment: %v", err)
	}

	resp, err := uc.RecordManualPayment(context.Background(), admin.ID, &dto.RecordManualPaymentRequest{
		AppointmentID: appointment.ID,
		AmountPaid:    decimal.RequireFromString("15000"),
		Method:        "transfer",
	})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}

	if resp.PaymentStatus != string(entity.PaymentStatePaid) {
		t.Errorf("payment status = %s, want paid", resp.PaymentStatus)
	}
	if !resp.RemainingBalance.IsZero() {
		t.Errorf("remaining = %s, want 0", resp.RemainingBalance)
	}
}

func TestRecordManualPayment_OverflowRejectedOutright(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, &fakeGateway{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Root Canal", decimalPtr("40000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("40000"), entity.AppointmentStatusAwaitingPayment)

	if _, err := uc.RecordManualPayment(context.Background(), admin.ID, &dto.RecordManualPaymentRequest{
		AppointmentID: appointment.ID,
		AmountPaid:    decimal.RequireFromString("30000"),
		Method:        "transfer",
	}); err != nil {
		t.Fatalf("first payment: %v", err)
	}

	// 30,000 paid of 40,000; 15,000 more would overflow and must not be clamped.
	_, err := uc.RecordManualPayment(context.Background(), admin.ID, &dto.RecordManualPaymentRequest{
		AppointmentID: appointment.ID,
		AmountPaid:    decimal.RequireFromString("15000"),
		Method:        "transfer",
	})
	if !errors.Is(err, ErrPaymentExceedsBalance) {
		t.Fatalf("error = %v, want ErrPaymentExceedsBalance", err)
	}

	var count int64
	db.Model(&entity.Payment{}).Where("appointment_id = ?", appointment.ID).Count(&count)
	if count != 1 {
		t.Errorf("ledger entries = %d, want 1 (rejected payment must not be stored)", count)
	}
}

func TestRecordManualPayment_Validation(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, &fakeGateway{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Braces Consultation", nil, true)

	unpriced := &entity.Appointment{
		PatientID:     patient.ID,
		ServiceID:     svc.ID,
		Quantity:      1,
		BookingSource: entity.BookingSourceOnline,
		Status:        entity.AppointmentStatusPendingConsultation,
		PaymentStatus: entity.PaymentStateUnpaid,
		CreatedByID:   patient.ID,
	}
	if err := db.Create(unpriced).Error; err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	cancelled := createTestAppointment(t, db, patient, svc, decimalPtr("10000"), entity.AppointmentStatusCancelled)

	tests := []struct {
		name    string
		req     *dto.RecordManualPaymentRequest
		wantErr error
	}{
		{
			name: "unpriced appointment",
			req: &dto.RecordManualPaymentRequest{
				AppointmentID: unpriced.ID,
				AmountPaid:    decimal.RequireFromString("5000"),
				Method:        "transfer",
			},
			wantErr: ErrAppointmentNotPriced,
		},
		{
			name: "cancelled appointment",
			req: &dto.RecordManualPaymentRequest{
				AppointmentID: cancelled.ID,
				AmountPaid:    decimal.RequireFromString("5000"),
				Method:        "transfer",
			},
			wantErr: ErrAppointmentCancelled,
		},
		{
			name: "zero amount",
			req: &dto.RecordManualPaymentRequest{
				AppointmentID: cancelled.ID,
				AmountPaid:    decimal.Zero,
				Method:        "transfer",
			},
			wantErr: ErrInvalidPaymentAmount,
		},
		{
			name: "online method reserved for the gateway",
			req: &dto.RecordManualPaymentRequest{
				AppointmentID: cancelled.ID,
				AmountPaid:    decimal.RequireFromString("5000"),
				Method:        "online",
			},
			wantErr: ErrInvalidPaymentMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.RecordManualPayment(context.Background(), admin.ID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordManualPayment_ConcurrentWritersNeverOverpay(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, &fakeGateway{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Root Canal", decimalPtr("40000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("40000"), entity.AppointmentStatusAwaitingPayment)

	// 8 writers of 10,000 against a 40,000 total: exactly 4 may land.
	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.RecordManualPayment(context.Background(), admin.ID, &dto.RecordManualPaymentRequest{
				AppointmentID: appointment.ID,
				AmountPaid:    decimal.RequireFromString("10000"),
				Method:        "transfer",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrPaymentExceedsBalance) && !errors.Is(err, ErrAppointmentPaidInFull) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 4 {
		t.Errorf("successful payments = %d, want exactly 4", succeeded)
	}

	var payments []entity.Payment
	if err := db.Where("appointment_id = ?", appointment.ID).Find(&payments).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	total := sumPayments(payments)
	if !total.Equal(decimal.RequireFromString("40000")) {
		t.Errorf("ledger total = %s, want 40000", total)
	}

	var stored entity.Appointment
	if err := db.First(&stored, "id = ?", appointment.ID).Error; err != nil {
		t.Fatalf("reload appointment: %v", err)
	}
	if stored.PaymentStatus != entity.PaymentStatePaid {
		t.Errorf("payment status = %s, want paid", stored.PaymentStatus)
	}
}

func TestInitializeOnlinePayment_DepositThenBalance(t *testing.T) {
	db := setupTestDB(t)
	gateway := &fakeGateway{}
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, gateway)

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Crown Fitting", decimalPtr("45000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("45000"), entity.AppointmentStatusAwaitingPayment)

	resp, err := uc.InitializeOnlinePayment(context.Background(), patient.ID, entity.RoleIDPatient, &dto.InitializePaymentRequest{
		AppointmentID: appointment.ID,
	})
	if err != nil {
		t.Fatalf("InitializeOnlinePayment returned error: %v", err)
	}
	if resp.AuthorizationURL == "" || resp.Reference == "" {
		t.Error("authorization url or reference missing")
	}

	// Unpaid: 50% of 45,000 rounded to 22,500 naira = 2,250,000 kobo.
	if gateway.lastAmount != 2250000 {
		t.Errorf("initialized amount = %d kobo, want 2250000", gateway.lastAmount)
	}

	// After a partial payment the next initialize covers the remainder.
	if _, err := uc.RecordManualPayment(context.Background(), admin.ID, &dto.RecordManualPaymentRequest{
		AppointmentID: appointment.ID,
		AmountPaid:    decimal.RequireFromString("22500"),
		Method:        "transfer",
	}); err != nil {
		t.Fatalf("record partial payment: %v", err)
	}

	if _, err := uc.InitializeOnlinePayment(context.Background(), patient.ID, entity.RoleIDPatient, &dto.InitializePaymentRequest{
		AppointmentID: appointment.ID,
	}); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if gateway.lastAmount != 2250000 {
		t.Errorf("remainder amount = %d kobo, want 2250000", gateway.lastAmount)
	}
}

func TestInitializeOnlinePayment_OwnershipEnforced(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, &fakeGateway{})

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	other := createTestUser(t, db, entity.RoleIDPatient, "other@example.com")
	svc := createTestService(t, db, "Crown Fitting", decimalPtr("45000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("45000"), entity.AppointmentStatusAwaitingPayment)

	_, err := uc.InitializeOnlinePayment(context.Background(), other.ID, entity.RoleIDPatient, &dto.InitializePaymentRequest{
		AppointmentID: appointment.ID,
	})
	if !errors.Is(err, ErrNotAppointmentOwner) {
		t.Errorf("error = %v, want ErrNotAppointmentOwner", err)
	}
}

func webhookEvent(appointment *entity.Appointment, amountKobo int64, reference string) *dto.WebhookEvent {
	return &dto.WebhookEvent{
		Event: "charge.success",
		Data: dto.WebhookData{
			Amount:    amountKobo,
			Reference: reference,
			Metadata: dto.WebhookMetadata{
				AppointmentID: appointment.ID.String(),
				PatientID:     appointment.PatientID.String(),
			},
		},
	}
}

func TestHandleWebhook_RecordsCharge(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	uc := newTestPaymentUsecase(t, db, notifier, &fakeGateway{})

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Root Canal", decimalPtr("40000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("40000"), entity.AppointmentStatusAwaitingPayment)

	// 20,000 naira deposit arrives as 2,000,000 kobo.
	if err := uc.HandleWebhook(context.Background(), webhookEvent(appointment, 2000000, "PSK-123")); err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}

	var payment entity.Payment
	if err := db.Where("transaction_reference = ?", "PSK-123").First(&payment).Error; err != nil {
		t.Fatalf("webhook payment not stored: %v", err)
	}
	if !payment.AmountPaid.Equal(decimal.RequireFromString("20000")) {
		t.Errorf("amount = %s, want 20000", payment.AmountPaid)
	}
	if payment.Method != entity.PaymentMethodOnline {
		t.Errorf("method = %s, want online", payment.Method)
	}
	if payment.RecordedByID != nil {
		t.Error("webhook payment must not carry a recording admin")
	}

	var stored entity.Appointment
	if err := db.First(&stored, "id = ?", appointment.ID).Error; err != nil {
		t.Fatalf("reload appointment: %v", err)
	}
	if stored.Status != entity.AppointmentStatusConfirmed {
		t.Errorf("status = %s, want confirmed", stored.Status)
	}
	if stored.PaymentStatus != entity.PaymentStatePartial {
		t.Errorf("payment status = %s, want partial", stored.PaymentStatus)
	}
}

func TestHandleWebhook_DuplicateReferenceIgnored(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, &fakeGateway{})

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Root Canal", decimalPtr("40000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("40000"), entity.AppointmentStatusAwaitingPayment)

	event := webhookEvent(appointment, 2000000, "PSK-DUP")
	for i := 0; i < 3; i++ {
		if err := uc.HandleWebhook(context.Background(), event); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	var count int64
	db.Model(&entity.Payment{}).Where("appointment_id = ?", appointment.ID).Count(&count)
	if count != 1 {
		t.Errorf("ledger entries = %d, want 1 after redeliveries", count)
	}
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, &fakeGateway{})

	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Root Canal", decimalPtr("40000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("40000"), entity.AppointmentStatusAwaitingPayment)

	event := webhookEvent(appointment, 2000000, "PSK-FAIL")
	event.Event = "charge.failed"
	if err := uc.HandleWebhook(context.Background(), event); err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}

	var count int64
	db.Model(&entity.Payment{}).Count(&count)
	if count != 0 {
		t.Errorf("ledger entries = %d, want 0", count)
	}
}

func TestHandleWebhook_OverpaymentSwallowedForAck(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, &fakeGateway{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Root Canal", decimalPtr("40000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("40000"), entity.AppointmentStatusAwaitingPayment)

	if _, err := uc.RecordManualPayment(context.Background(), admin.ID, &dto.RecordManualPaymentRequest{
		AppointmentID: appointment.ID,
		AmountPaid:    decimal.RequireFromString("35000"),
		Method:        "transfer",
	}); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	// A 10,000 naira charge against a 5,000 balance: no error (the handler
	// must ack 200) and no ledger entry.
	if err := uc.HandleWebhook(context.Background(), webhookEvent(appointment, 1000000, "PSK-OVER")); err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}

	var count int64
	db.Model(&entity.Payment{}).Where("transaction_reference = ?", "PSK-OVER").Count(&count)
	if count != 0 {
		t.Errorf("overpaying charge was recorded")
	}
}

func TestGetPaymentSummary_Breakdown(t *testing.T) {
	db := setupTestDB(t)
	uc := newTestPaymentUsecase(t, db, &fakeNotifier{}, &fakeGateway{})

	admin := createTestUser(t, db, entity.RoleIDAdmin, "admin@example.com")
	patient := createTestUser(t, db, entity.RoleIDPatient, "patient@example.com")
	svc := createTestService(t, db, "Root Canal", decimalPtr("40000"), false)
	appointment := createTestAppointment(t, db, patient, svc, decimalPtr("40000"), entity.AppointmentStatusAwaitingPayment)

	for i, amount := range []string{"10000", "5000"} {
		if _, err := uc.RecordManualPayment(context.Background(), admin.ID, &dto.RecordManualPaymentRequest{
			AppointmentID: appointment.ID,
			AmountPaid:    decimal.RequireFromString(amount),
			Method:        "transfer",
		}); err != nil {
			t.Fatalf("payment %d: %v", i+1, err)
		}
	}
	if err := uc.HandleWebhook(context.Background(), webhookEvent(appointment, 1000000, fmt.Sprintf("PSK-%d", 1))); err != nil {
		t.Fatalf("webhook: %v", err)
	}

	summary, err := uc.GetPaymentSummary(context.Background(), patient.ID, entity.RoleIDPatient, appointment.ID)
	if err != nil {
		t.Fatalf("GetPaymentSummary returned error: %v", err)
	}

	if !summary.TotalPaid.Equal(decimal.RequireFromString("25000")) {
		t.Errorf("total paid = %s, want 25000", summary.TotalPaid)
	}
	if !summary.RemainingBalance.Equal(decimal.RequireFromString("15000")) {
		t.Errorf("remaining = %s, want 15000", summary.RemainingBalance)
	}
	if summary.Transactions != 3 {
		t.Errorf("transactions = %d, want 3", summary.Transactions)
	}
	if !summary.Breakdown["transfer"].Equal(decimal.RequireFromString("15000")) {
		t.Errorf("transfer breakdown = %s, want 15000", summary.Breakdown["transfer"])
	}
	if !summary.Breakdown["online"].Equal(decimal.RequireFromString("10000")) {
		t.Errorf("online breakdown = %s, want 10000", summary.Breakdown["online"])
	}
}
