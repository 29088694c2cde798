package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type CacheService interface {
	// Customer caching
	GetCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*models.Customer, error)
	SetCustomer(ctx context.Context, tenantID uuid.UUID, customer *models.Customer, ttl time.Duration) error
	DeleteCustomer(ctx context.Context, tenantID, customerID uuid.UUID) error

	// Job caching
	GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error)
	SetJob(ctx context.Context, tenantID uuid.UUID, job *models.Job, ttl time.Duration) error
	DeleteJob(ctx context.Context, tenantID, jobID uuid.UUID) error

	// Tenant caching, used by the identity resolver on every request
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
	SetTenant(ctx context.Context, tenant *models.Tenant, ttl time.Duration) error
	DeleteTenant(ctx context.Context, tenantID uuid.UUID) error

	// Cache invalidation
	InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error
	InvalidateAllCache(ctx context.Context) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Generic string operations
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis://host:port URLs as well as plain host:port
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

// NewRedisCacheServiceWithClient wraps an existing client. The caller keeps
// ownership of the client and its lifecycle.
func NewRedisCacheServiceWithClient(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func (r *redisCacheService) GetCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*models.Customer, error) {
	key := fmt.Sprintf("plumbline:customer:%s:%s", tenantID.String(), customerID.String())
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var customer models.Customer
	if err := json.Unmarshal(data, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *redisCacheService) SetCustomer(ctx context.Context, tenantID uuid.UUID, customer *models.Customer, ttl time.Duration) error {
	key := fmt.Sprintf("plumbline:customer:%s:%s", tenantID.String(), customer.ID.String())
	data, err := json.Marshal(customer)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteCustomer(ctx context.Context, tenantID, customerID uuid.UUID) error {
	key := fmt.Sprintf("plumbline:customer:%s:%s", tenantID.String(), customerID.String())
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error) {
	key := fmt.Sprintf("plumbline:job:%s:%s", tenantID.String(), jobID.String())
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *redisCacheService) SetJob(ctx context.Context, tenantID uuid.UUID, job *models.Job, ttl time.Duration) error {
	key := fmt.Sprintf("plumbline:job:%s:%s", tenantID.String(), job.ID.String())
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteJob(ctx context.Context, tenantID, jobID uuid.UUID) error {
	key := fmt.Sprintf("plumbline:job:%s:%s", tenantID.String(), jobID.String())
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	key := fmt.Sprintf("plumbline:tenant:%s", tenantID.String())
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var tenant models.Tenant
	if err := json.Unmarshal(data, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *redisCacheService) SetTenant(ctx context.Context, tenant *models.Tenant, ttl time.Duration) error {
	key := fmt.Sprintf("plumbline:tenant:%s", tenant.ID.String())
	data, err := json.Marshal(tenant)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteTenant(ctx context.Context, tenantID uuid.UUID) error {
	key := fmt.Sprintf("plumbline:tenant:%s", tenantID.String())
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error {
	pattern := fmt.Sprintf("plumbline:*:%s:*", tenantID.String())
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func (r *redisCacheService) InvalidateAllCache(ctx context.Context) error {
	pattern := "plumbline:*"
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("plumbline:ratelimit:%s", key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first request
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
