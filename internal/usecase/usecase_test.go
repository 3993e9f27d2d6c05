package usecase

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"dental-clinic-backend/internal/domain/entity"
	"dental-clinic-backend/internal/repository"
	"dental-clinic-backend/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	// A single connection keeps the shared in-memory database consistent
	// across goroutines.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.Service{},
		&entity.Appointment{},
		&entity.Payment{},
		&entity.AuditLog{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	roles := []entity.Role{
		{ID: entity.RoleIDAdmin, RoleName: entity.RoleAdmin},
		{ID: entity.RoleIDPatient, RoleName: entity.RolePatient},
	}
	if err := db.Create(&roles).Error; err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func createTestUser(t *testing.T, db *gorm.DB, roleID int, email string) *entity.User {
	t.Helper()

	user := &entity.User{
		Email:    email,
		Password: "hashed",
		FullName: "Test User",
		RoleID:   roleID,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestService(t *testing.T, db *gorm.DB, name string, price *decimal.Decimal, requiresConsultation bool) *entity.Service {
	t.Helper()

	svc := &entity.Service{
		Name:                 name,
		Price:                price,
		Unit:                 entity.UnitPerSession,
		RequiresConsultation: requiresConsultation,
		IsOnlineBookable:     true,
		IsActive:             true,
	}
	if err := db.Create(svc).Error; err != nil {
		t.Fatalf("create test service: %v", err)
	}
	return svc
}

func createTestAppointment(t *testing.T, db *gorm.DB, patient *entity.User, svc *entity.Service, price *decimal.Decimal, status entity.AppointmentStatus) *entity.Appointment {
	t.Helper()

	date := time.Now().UTC().AddDate(0, 0, 7)
	appointment := &entity.Appointment{
		PatientID:       patient.ID,
		ServiceID:       svc.ID,
		ServicePrice:    price,
		Quantity:        1,
		AppointmentDate: &date,
		BookingSource:   entity.BookingSourceOnline,
		Status:          status,
		PaymentStatus:   entity.PaymentStateUnpaid,
		CreatedByID:     patient.ID,
	}
	if err := db.Create(appointment).Error; err != nil {
		t.Fatalf("create test appointment: %v", err)
	}
	return appointment
}

func decimalPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

// fakeNotifier records every notification call so tests can assert on them.
type fakeNotifier struct {
	mu sync.Mutex

	booked       []uuid.UUID
	consultation []uuid.UUID
	plans        []uuid.UUID
	payments     []uuid.UUID
	rescheduled  []uuid.UUID
	reminders    []uuid.UUID
}

func (f *fakeNotifier) AppointmentBooked(a *entity.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked = append(f.booked, a.ID)
}

func (f *fakeNotifier) ConsultationRequested(a *entity.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consultation = append(f.consultation, a.ID)
}

func (f *fakeNotifier) TreatmentPlanReady(a *entity.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans = append(f.plans, a.ID)
}

func (f *fakeNotifier) PaymentReceived(a *entity.Appointment, amount, totalPaid, remaining decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, a.ID)
}

func (f *fakeNotifier) AppointmentRescheduled(a *entity.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled = append(f.rescheduled, a.ID)
}

func (f *fakeNotifier) AppointmentReminder(a *entity.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, a.ID)
}

// fakeGateway returns a canned initialize result and records the request.
type fakeGateway struct {
	mu          sync.Mutex
	lastEmail   string
	lastAmount  int64
	initializes int
}

func (f *fakeGateway) InitializeTransaction(ctx context.Context, email string, amountMinor int64, metadata map[string]interface{}) (*service.InitializeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEmail = email
	f.lastAmount = amountMinor
	f.initializes++
	return &service.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/test",
		AccessCode:       "test_access",
		Reference:        "PSK-" + uuid.NewString(),
	}, nil
}

func newTestPaymentUsecase(t *testing.T, db *gorm.DB, notifier *fakeNotifier, gateway *fakeGateway) PaymentUsecase {
	t.Helper()

	log := testLogger()
	auditService := service.NewAuditService(db, log, repository.NewAuditLogRepository())

	locker := service.NewLocalAppointmentLocker()
	t.Cleanup(locker.Stop)

	return NewPaymentUsecase(
		db, log,
		repository.NewPaymentRepository(),
		repository.NewAppointmentRepository(),
		locker, gateway, notifier, auditService,
	)
}

func newTestAppointmentUsecase(t *testing.T, db *gorm.DB, notifier *fakeNotifier) AppointmentUsecase {
	t.Helper()

	log := testLogger()
	auditService := service.NewAuditService(db, log, repository.NewAuditLogRepository())

	return NewAppointmentUsecase(
		db, log,
		repository.NewAppointmentRepository(),
		repository.NewServiceRepository(),
		repository.NewPaymentRepository(),
		repository.NewUserRepository(),
		notifier, auditService,
	)
}
