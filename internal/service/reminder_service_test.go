package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"dental-clinic-backend/internal/domain/entity"
	"dental-clinic-backend/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubNotifier struct {
	mu        sync.Mutex
	reminders []uuid.UUID
}

func (s *stubNotifier) AppointmentBooked(*entity.Appointment)      {}
func (s *stubNotifier) ConsultationRequested(*entity.Appointment)  {}
func (s *stubNotifier) TreatmentPlanReady(*entity.Appointment)     {}
func (s *stubNotifier) AppointmentRescheduled(*entity.Appointment) {}

func (s *stubNotifier) PaymentReceived(*entity.Appointment, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
}

func (s *stubNotifier) AppointmentReminder(a *entity.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, a.ID)
}

func setupReminderTest(t *testing.T) (*gorm.DB, *ReminderService, *stubNotifier) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&entity.Role{}, &entity.User{}, &entity.Service{}, &entity.Appointment{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	notifier := &stubNotifier{}
	svc := NewReminderService(db, log, repository.NewAppointmentRepository(), notifier)
	return db, svc, notifier
}

func seedReminderAppointment(t *testing.T, db *gorm.DB, date time.Time, status entity.AppointmentStatus, paymentStatus entity.PaymentState) *entity.Appointment {
	t.Helper()

	patient := &entity.User{
		Email:    uuid.NewString() + "@example.com",
		Password: "hashed",
		FullName: "Reminder Patient",
		RoleID:   entity.RoleIDPatient,
	}
	if err := db.Create(patient).Error; err != nil {
		t.Fatalf("create patient: %v", err)
	}

	price := decimal.RequireFromString("15000")
	catalog := &entity.Service{
		Name:             "Sweep " + uuid.NewString(),
		Price:            &price,
		Unit:             entity.UnitPerSession,
		IsOnlineBookable: true,
		IsActive:         true,
	}
	if err := db.Create(catalog).Error; err != nil {
		t.Fatalf("create service: %v", err)
	}

	appointment := &entity.Appointment{
		PatientID:       patient.ID,
		ServiceID:       catalog.ID,
		ServicePrice:    &price,
		Quantity:        1,
		AppointmentDate: &date,
		BookingSource:   entity.BookingSourceOnline,
		Status:          status,
		PaymentStatus:   paymentStatus,
		CreatedByID:     patient.ID,
	}
	if err := db.Create(appointment).Error; err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return appointment
}

func TestReminderRunOnce_RemindsTomorrowOnly(t *testing.T) {
	db, svc, notifier := setupReminderTest(t)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	tomorrow := today.AddDate(0, 0, 1).Add(10 * time.Hour)

	due := seedReminderAppointment(t, db, tomorrow, entity.AppointmentStatusConfirmed, entity.PaymentStatePartial)
	alsoDue := seedReminderAppointment(t, db, tomorrow, entity.AppointmentStatusConfirmed, entity.PaymentStatePaid)

	// None of these qualify: wrong day, unpaid, or not confirmed.
	seedReminderAppointment(t, db, today.AddDate(0, 0, 5), entity.AppointmentStatusConfirmed, entity.PaymentStatePaid)
	seedReminderAppointment(t, db, tomorrow, entity.AppointmentStatusConfirmed, entity.PaymentStateUnpaid)
	seedReminderAppointment(t, db, tomorrow, entity.AppointmentStatusPending, entity.PaymentStatePartial)

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if len(notifier.reminders) != 2 {
		t.Fatalf("reminders sent = %d, want 2", len(notifier.reminders))
	}

	for _, id := range []uuid.UUID{due.ID, alsoDue.ID} {
		var stored entity.Appointment
		if err := db.First(&stored, "id = ?", id).Error; err != nil {
			t.Fatalf("reload appointment: %v", err)
		}
		if !stored.ReminderSent {
			t.Errorf("appointment %s not marked reminded", id)
		}
	}
}

func TestReminderRunOnce_NeverSendsTwice(t *testing.T) {
	db, svc, notifier := setupReminderTest(t)

	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1).Add(9 * time.Hour)
	seedReminderAppointment(t, db, tomorrow, entity.AppointmentStatusConfirmed, entity.PaymentStatePaid)

	for i := 0; i < 3; i++ {
		if err := svc.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	if len(notifier.reminders) != 1 {
		t.Errorf("reminders sent = %d, want 1", len(notifier.reminders))
	}
}
