package repository

import (
	"errors"

	"dental-clinic-backend/internal/domain/entity"
	domainRepo "dental-clinic-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type paymentRepository struct{}

func NewPaymentRepository() domainRepo.PaymentRepository {
	return &paymentRepository{}
}

func (r *paymentRepository) Create(db *gorm.DB, payment *entity.Payment) error {
	return db.Create(payment).Error
}

func (r *paymentRepository) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := db.Preload("RecordedBy").
		Where("appointment_id = ?", appointmentID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) FindSuccessfulByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := db.Preload("RecordedBy").
		Where("appointment_id = ? AND status = ?", appointmentID, entity.PaymentStatusSuccessful).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) FindByTransactionReference(db *gorm.DB, reference string) (*entity.Payment, error) {
	var payment entity.Payment
	err := db.Where("transaction_reference = ?", reference).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindAll(db *gorm.DB, appointmentID *uuid.UUID) ([]entity.Payment, error) {
	query := db.Preload("Appointment").Preload("Patient").Preload("RecordedBy")
	if appointmentID != nil {
		query = query.Where("appointment_id = ?", *appointmentID)
	}

	var payments []entity.Payment
	err := query.Order("created_at DESC").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) FindAllSuccessful(db *gorm.DB) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := db.Where("status = ?", entity.PaymentStatusSuccessful).Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) DeleteByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) error {
	return db.Delete(&entity.Payment{}, "appointment_id = ?", appointmentID).Error
}
