package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"billhive/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type CacheService interface {
	// Rate lookups are read-mostly; they get a read-through cache.
	GetTaxRate(ctx context.Context, taxRateID uuid.UUID) (*models.TaxRate, error)
	SetTaxRate(ctx context.Context, rate *models.TaxRate, ttl time.Duration) error
	GetServiceRate(ctx context.Context, rateID uuid.UUID) (*models.ServiceRate, error)
	SetServiceRate(ctx context.Context, rate *models.ServiceRate, ttl time.Duration) error

	// Generic string operations for token management
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis://host:port as well as plain host:port
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func taxRateKey(id uuid.UUID) string {
	return fmt.Sprintf("tax_rate:%s", id.String())
}

func serviceRateKey(id uuid.UUID) string {
	return fmt.Sprintf("service_rate:%s", id.String())
}

func (s *redisCacheService) GetTaxRate(ctx context.Context, taxRateID uuid.UUID) (*models.TaxRate, error) {
	data, err := s.client.Get(ctx, taxRateKey(taxRateID)).Result()
	if err != nil {
		return nil, err
	}

	rate := &models.TaxRate{}
	if err := json.Unmarshal([]byte(data), rate); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached tax rate: %w", err)
	}
	return rate, nil
}

func (s *redisCacheService) SetTaxRate(ctx context.Context, rate *models.TaxRate, ttl time.Duration) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to marshal tax rate: %w", err)
	}
	return s.client.Set(ctx, taxRateKey(rate.ID), data, ttl).Err()
}

func (s *redisCacheService) GetServiceRate(ctx context.Context, rateID uuid.UUID) (*models.ServiceRate, error) {
	data, err := s.client.Get(ctx, serviceRateKey(rateID)).Result()
	if err != nil {
		return nil, err
	}

	rate := &models.ServiceRate{}
	if err := json.Unmarshal([]byte(data), rate); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached service rate: %w", err)
	}
	return rate, nil
}

func (s *redisCacheService) SetServiceRate(ctx context.Context, rate *models.ServiceRate, ttl time.Duration) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to marshal service rate: %w", err)
	}
	return s.client.Set(ctx, serviceRateKey(rate.ID), data, ttl).Err()
}

func (s *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *redisCacheService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
