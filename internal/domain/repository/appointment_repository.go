package repository

import (
	"time"

	"dental-clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindAll(db *gorm.DB) ([]entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	Update(db *gorm.DB, appointment *entity.Appointment) error
	Delete(db *gorm.DB, id uuid.UUID) error

	// FindDueForReminder returns confirmed, at least partially paid appointments
	// falling inside [from, to) whose reminder has not gone out yet.
	FindDueForReminder(db *gorm.DB, from, to time.Time) ([]entity.Appointment, error)

	// MarkReminderSent flips reminder_sent only when it is still false.
	// Returns affected rows so overlapping sweep runs cannot double-send.
	MarkReminderSent(db *gorm.DB, id uuid.UUID) (int64, error)
}
