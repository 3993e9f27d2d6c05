package repository

import (
	"dental-clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(db *gorm.DB, payment *entity.Payment) error
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.Payment, error)
	FindSuccessfulByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.Payment, error)
	FindByTransactionReference(db *gorm.DB, reference string) (*entity.Payment, error)
	FindAll(db *gorm.DB, appointmentID *uuid.UUID) ([]entity.Payment, error)
	FindAllSuccessful(db *gorm.DB) ([]entity.Payment, error)
	DeleteByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) error
}
