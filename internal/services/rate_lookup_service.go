package services

import (
	"context"
	"log"
	"time"

	"billhive/internal/caching"
	"billhive/internal/models"
	"billhive/internal/repositories"

	"github.com/google/uuid"
)

const rateCacheTTL = 10 * time.Minute

// RateLookupService resolves tax rates and service rates by id. Rates change
// rarely, so reads go through the cache; the store is the fallback.
type RateLookupService interface {
	GetTaxRate(ctx context.Context, taxRateID uuid.UUID) (*models.TaxRate, error)
	GetServiceRate(ctx context.Context, rateID uuid.UUID) (*models.ServiceRate, error)
}

type rateLookupService struct {
	taxRateRepo     repositories.TaxRateRepository
	serviceRateRepo repositories.ServiceRateRepository
	cacheSvc        caching.CacheService
}

func NewRateLookupService(taxRateRepo repositories.TaxRateRepository, serviceRateRepo repositories.ServiceRateRepository, cacheSvc caching.CacheService) RateLookupService {
	return &rateLookupService{
		taxRateRepo:     taxRateRepo,
		serviceRateRepo: serviceRateRepo,
		cacheSvc:        cacheSvc,
	}
}

func (s *rateLookupService) GetTaxRate(ctx context.Context, taxRateID uuid.UUID) (*models.TaxRate, error) {
	if cached, err := s.cacheSvc.GetTaxRate(ctx, taxRateID); err == nil && cached != nil {
		return cached, nil
	}

	rate, err := s.taxRateRepo.GetByID(ctx, taxRateID)
	if err != nil {
		return nil, err
	}

	if err := s.cacheSvc.SetTaxRate(ctx, rate, rateCacheTTL); err != nil {
		log.Printf("Failed to cache tax rate %s: %v", taxRateID, err)
	}
	return rate, nil
}

func (s *rateLookupService) GetServiceRate(ctx context.Context, rateID uuid.UUID) (*models.ServiceRate, error) {
	if cached, err := s.cacheSvc.GetServiceRate(ctx, rateID); err == nil && cached != nil {
		return cached, nil
	}

	rate, err := s.serviceRateRepo.GetByID(ctx, rateID)
	if err != nil {
		return nil, err
	}

	if err := s.cacheSvc.SetServiceRate(ctx, rate, rateCacheTTL); err != nil {
		log.Printf("Failed to cache service rate %s: %v", rateID, err)
	}
	return rate, nil
}
