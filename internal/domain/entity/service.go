package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceUnit represents how a service is priced
type ServiceUnit string

const (
	UnitPerSession ServiceUnit = "per_session"
	UnitPerTooth   ServiceUnit = "per_tooth"
)

// Service represents a bookable treatment in the clinic catalog.
// Price is nil for call-only services that are priced after a consultation.
type Service struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name                 string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Price                *decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Unit                 ServiceUnit      `gorm:"type:varchar(20);not null;default:'per_session'" json:"unit"`
	RequiresConsultation bool             `gorm:"not null;default:false" json:"requires_consultation"`
	IsOnlineBookable     bool             `gorm:"not null;default:true" json:"is_online_bookable"`
	IsActive             bool             `gorm:"not null;default:true;index" json:"is_active"`
	Description          string           `gorm:"type:text" json:"description,omitempty"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
