package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"plumbline/internal/caching"
	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/repositories"

	"github.com/google/uuid"
)

const customerCacheTTL = 5 * time.Minute

// CustomerService handles customer records and their validation rules
type CustomerService interface {
	CreateCustomer(ctx context.Context, tenantID uuid.UUID, customer *models.Customer) error
	GetCustomerByID(ctx context.Context, tenantID, customerID uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Customer, error)
	UpdateCustomer(ctx context.Context, tenantID, customerID uuid.UUID, patch map[string]any) (int64, error)
	DeleteCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (int64, error)
}

type customerService struct {
	customerRepo repositories.CustomerRepository
	cache        caching.CacheService
}

func NewCustomerService(customerRepo repositories.CustomerRepository, cache caching.CacheService) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		cache:        cache,
	}
}

func (s *customerService) validateCustomer(customer *models.Customer) error {
	if err := common.ValidateRequiredString(customer.Name, "name"); err != nil {
		return err
	}
	if customer.PostalCode != nil && *customer.PostalCode != "" {
		if err := common.ValidateDutchPostalCode(*customer.PostalCode, "postal_code"); err != nil {
			return err
		}
	}
	if err := common.ValidateOptionalString(customer.Notes, "notes", 2000); err != nil {
		return err
	}
	return nil
}

func (s *customerService) CreateCustomer(ctx context.Context, tenantID uuid.UUID, customer *models.Customer) error {
	if err := s.validateCustomer(customer); err != nil {
		return err
	}

	if err := s.customerRepo.Create(ctx, tenantID, customer); err != nil {
		return common.SecureErrorMessage("create customer", err)
	}

	if err := s.cache.SetCustomer(ctx, tenantID, customer, customerCacheTTL); err != nil {
		log.Printf("WARN: failed to cache customer %s: %v", customer.ID, err)
	}
	return nil
}

func (s *customerService) GetCustomerByID(ctx context.Context, tenantID, customerID uuid.UUID) (*models.Customer, error) {
	if cached, err := s.cache.GetCustomer(ctx, tenantID, customerID); err == nil && cached != nil {
		return cached, nil
	}

	customer, err := s.customerRepo.GetByID(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetCustomer(ctx, tenantID, customer, customerCacheTTL); err != nil {
		log.Printf("WARN: failed to cache customer %s: %v", customerID, err)
	}
	return customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Customer, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.customerRepo.List(ctx, tenantID, limit, offset)
}

func (s *customerService) UpdateCustomer(ctx context.Context, tenantID, customerID uuid.UUID, patch map[string]any) (int64, error) {
	if postalCode, ok := patch["postal_code"].(string); ok && postalCode != "" {
		if err := common.ValidateDutchPostalCode(postalCode, "postal_code"); err != nil {
			return 0, err
		}
	}
	if name, ok := patch["name"].(string); ok {
		if err := common.ValidateRequiredString(name, "name"); err != nil {
			return 0, err
		}
	}

	affected, err := s.customerRepo.Update(ctx, tenantID, customerID, patch)
	if err != nil {
		return 0, common.SecureErrorMessage("update customer", err)
	}

	if affected > 0 {
		if err := s.cache.DeleteCustomer(ctx, tenantID, customerID); err != nil {
			log.Printf("WARN: failed to invalidate customer cache %s: %v", customerID, err)
		}
	}
	return affected, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (int64, error) {
	affected, err := s.customerRepo.Delete(ctx, tenantID, customerID)
	if err != nil {
		return 0, fmt.Errorf("delete customer: %w", err)
	}

	if affected > 0 {
		if err := s.cache.DeleteCustomer(ctx, tenantID, customerID); err != nil {
			log.Printf("WARN: failed to invalidate customer cache %s: %v", customerID, err)
		}
	}
	return affected, nil
}
