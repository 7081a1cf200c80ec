package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"constructerp/internal/logger"
	"constructerp/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "vendorbills"

// InvoiceCache holds decorated vendor invoice details keyed by invoice uuid.
type InvoiceCache interface {
	// GetInvoiceDetail returns nil without an error on a cache miss.
	GetInvoiceDetail(ctx context.Context, invoiceUUID string) (*models.VendorInvoiceDetail, error)
	SetInvoiceDetail(ctx context.Context, detail *models.VendorInvoiceDetail, ttl time.Duration) error
	DeleteInvoices(ctx context.Context, invoiceUUIDs ...string) error
}

type redisInvoiceCache struct {
	client *redis.Client
}

// NewRedisClient connects to Redis. addr may carry a redis:// or rediss:// scheme.
func NewRedisClient(addr, password string, db int) *redis.Client {
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	log := logger.WithComponent("redis")
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Str("addr", parsedAddr).Msg("redis ping failed on initialization")
	} else {
		log.Debug().Str("addr", parsedAddr).Msg("redis connection established")
	}
	return client
}

func NewRedisInvoiceCache(client *redis.Client) InvoiceCache {
	return &redisInvoiceCache{client: client}
}

func invoiceKey(invoiceUUID string) string {
	return fmt.Sprintf("%s:invoice:%s", keyPrefix, invoiceUUID)
}

func (r *redisInvoiceCache) GetInvoiceDetail(ctx context.Context, invoiceUUID string) (*models.VendorInvoiceDetail, error) {
	data, err := r.client.Get(ctx, invoiceKey(invoiceUUID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var detail models.VendorInvoiceDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, err
	}
	if detail.VendorInvoice == nil {
		return nil, nil
	}
	return &detail, nil
}

func (r *redisInvoiceCache) SetInvoiceDetail(ctx context.Context, detail *models.VendorInvoiceDetail, ttl time.Duration) error {
	if detail == nil || detail.VendorInvoice == nil {
		return nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, invoiceKey(detail.UUID), data, ttl).Err()
}

func (r *redisInvoiceCache) DeleteInvoices(ctx context.Context, invoiceUUIDs ...string) error {
	if len(invoiceUUIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(invoiceUUIDs))
	for _, id := range invoiceUUIDs {
		keys = append(keys, invoiceKey(id))
	}
	return r.client.Del(ctx, keys...).Err()
}
