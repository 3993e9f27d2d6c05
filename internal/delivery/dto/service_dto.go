package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateServiceRequest struct {
	Name                 string           `json:"name" validate:"required,min=2,max=255"`
	Price                *decimal.Decimal `json:"price"` // nil for call-only services
	Unit                 string           `json:"unit" validate:"omitempty,oneof=per_session per_tooth"`
	RequiresConsultation bool             `json:"requires_consultation"`
	IsOnlineBookable     *bool            `json:"is_online_bookable"`
	Description          string           `json:"description"`
}

type UpdateServiceRequest struct {
	Name                 *string          `json:"name" validate:"omitempty,min=2,max=255"`
	Price                *decimal.Decimal `json:"price"`
	Unit                 *string          `json:"unit" validate:"omitempty,oneof=per_session per_tooth"`
	RequiresConsultation *bool            `json:"requires_consultation"`
	IsOnlineBookable     *bool            `json:"is_online_bookable"`
	IsActive             *bool            `json:"is_active"`
	Description          *string          `json:"description"`
}

// Response DTOs

type ServiceResponse struct {
	ID                   uuid.UUID        `json:"id"`
	Name                 string           `json:"name"`
	Price                *decimal.Decimal `json:"price"`
	Unit                 string           `json:"unit"`
	RequiresConsultation bool             `json:"requires_consultation"`
	IsOnlineBookable     bool             `json:"is_online_bookable"`
	IsActive             bool             `json:"is_active"`
	Description          string           `json:"description,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

type ServiceListResponse struct {
	Services []ServiceResponse `json:"services"`
	Total    int               `json:"total"`
}
