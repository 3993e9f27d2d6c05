package usecase

import (
	"context"
	"errors"

	"dental-clinic-backend/internal/converter"
	"dental-clinic-backend/internal/delivery/dto"
	"dental-clinic-backend/internal/domain/entity"
	"dental-clinic-backend/internal/domain/repository"
	"dental-clinic-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrServiceNotFound      = errors.New("service not found")
	ErrServiceAlreadyExists = errors.New("a service with this name already exists")
)

type ServiceUsecase interface {
	CreateService(ctx context.Context, actorID uuid.UUID, req *dto.CreateServiceRequest) (*dto.ServiceResponse, error)
	GetService(ctx context.Context, id uuid.UUID) (*dto.ServiceResponse, error)
	GetAllServices(ctx context.Context) (*dto.ServiceListResponse, error)
	UpdateService(ctx context.Context, actorID, id uuid.UUID, req *dto.UpdateServiceRequest) (*dto.ServiceResponse, error)
	DeleteService(ctx context.Context, actorID, id uuid.UUID) error
}

type serviceUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	serviceRepo  repository.ServiceRepository
	auditService service.AuditService
}

func NewServiceUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	serviceRepo repository.ServiceRepository,
	auditService service.AuditService,
) ServiceUsecase {
	return &serviceUsecase{
		db:           db,
		log:          log,
		serviceRepo:  serviceRepo,
		auditService: auditService,
	}
}

func (u *serviceUsecase) CreateService(ctx context.Context, actorID uuid.UUID, req *dto.CreateServiceRequest) (*dto.ServiceResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	svc := &entity.Service{
		Name:                 req.Name,
		Price:                req.Price,
		Unit:                 entity.UnitPerSession,
		RequiresConsultation: req.RequiresConsultation,
		IsOnlineBookable:     true,
		IsActive:             true,
		Description:          req.Description,
	}
	if req.Unit != "" {
		svc.Unit = entity.ServiceUnit(req.Unit)
	}
	if req.IsOnlineBookable != nil {
		svc.IsOnlineBookable = *req.IsOnlineBookable
	}

	if err := u.serviceRepo.Create(tx, svc); err != nil {
		if isDuplicateKeyError(err, "name") {
			return nil, ErrServiceAlreadyExists
		}
		u.log.Warnf("Failed to create service: %+v", err)
		return nil, err
	}

	_ = u.auditService.LogCreate(ctx, tx, &actorID, entity.AuditActionServiceCreate, "service", svc.ID.String(), map[string]interface{}{
		"name": svc.Name,
	})

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.ServiceToResponse(svc), nil
}

func (u *serviceUsecase) GetService(ctx context.Context, id uuid.UUID) (*dto.ServiceResponse, error) {
	svc, err := u.serviceRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find service %s: %+v", id, err)
		return nil, err
	}
	if svc == nil {
		return nil, ErrServiceNotFound
	}

	return converter.ServiceToResponse(svc), nil
}

func (u *serviceUsecase) GetAllServices(ctx context.Context) (*dto.ServiceListResponse, error) {
	services, err := u.serviceRepo.FindAllActive(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find services: %+v", err)
		return nil, err
	}

	return &dto.ServiceListResponse{
		Services: converter.ServicesToResponses(services),
		Total:    len(services),
	}, nil
}

func (u *serviceUsecase) UpdateService(ctx context.Context, actorID, id uuid.UUID, req *dto.UpdateServiceRequest) (*dto.ServiceResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	svc, err := u.serviceRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find service %s: %+v", id, err)
		return nil, err
	}
	if svc == nil {
		return nil, ErrServiceNotFound
	}

	oldValue := map[string]interface{}{
		"name":      svc.Name,
		"price":     svc.Price,
		"is_active": svc.IsActive,
	}

	if req.Name != nil {
		svc.Name = *req.Name
	}
	if req.Price != nil {
		svc.Price = req.Price
	}
	if req.Unit != nil {
		svc.Unit = entity.ServiceUnit(*req.Unit)
	}
	if req.RequiresConsultation != nil {
		svc.RequiresConsultation = *req.RequiresConsultation
	}
	if req.IsOnlineBookable != nil {
		svc.IsOnlineBookable = *req.IsOnlineBookable
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}

	if err := u.serviceRepo.Update(tx, svc); err != nil {
		if isDuplicateKeyError(err, "name") {
			return nil, ErrServiceAlreadyExists
		}
		u.log.Warnf("Failed to update service %s: %+v", id, err)
		return nil, err
	}

	_ = u.auditService.LogUpdate(ctx, tx, &actorID, entity.AuditActionServiceUpdate, "service", svc.ID.String(), oldValue, map[string]interface{}{
		"name":      svc.Name,
		"price":     svc.Price,
		"is_active": svc.IsActive,
	})

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.ServiceToResponse(svc), nil
}

// DeleteService soft-disables the catalog entry. Existing appointments keep
// their price snapshot, so history stays intact.
func (u *serviceUsecase) DeleteService(ctx context.Context, actorID, id uuid.UUID) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	svc, err := u.serviceRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find service %s: %+v", id, err)
		return err
	}
	if svc == nil {
		return ErrServiceNotFound
	}

	svc.IsActive = false
	if err := u.serviceRepo.Update(tx, svc); err != nil {
		u.log.Warnf("Failed to deactivate service %s: %+v", id, err)
		return err
	}

	_ = u.auditService.LogDelete(ctx, tx, &actorID, entity.AuditActionServiceDelete, "service", id.String(), map[string]interface{}{
		"name": svc.Name,
	})

	return tx.Commit().Error
}
