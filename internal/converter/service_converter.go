package converter

import (
	"dental-clinic-backend/internal/delivery/dto"
	"dental-clinic-backend/internal/domain/entity"
)

// ServiceToResponse converts a Service entity to ServiceResponse DTO
func ServiceToResponse(service *entity.Service) *dto.ServiceResponse {
	if service == nil {
		return nil
	}

	return &dto.ServiceResponse{
		ID:                   service.ID,
		Name:                 service.Name,
		Price:                service.Price,
		Unit:                 string(service.Unit),
		RequiresConsultation: service.RequiresConsultation,
		IsOnlineBookable:     service.IsOnlineBookable,
		IsActive:             service.IsActive,
		Description:          service.Description,
		CreatedAt:            service.CreatedAt,
		UpdatedAt:            service.UpdatedAt,
	}
}

// ServicesToResponses converts a slice of Service entities to ServiceResponse DTOs
func ServicesToResponses(services []entity.Service) []dto.ServiceResponse {
	responses := make([]dto.ServiceResponse, len(services))
	for i, service := range services {
		resp := ServiceToResponse(&service)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
