package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/popsync/internal/config"
	"github.com/andresuchdata/popsync/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	reportSummaryKeyPrefix = "report:summary"
	reportScanBatchSize    = 100
)

// ReportKey identifies a summary: the document it was computed from and the
// year range it covers.
type ReportKey struct {
	ObjectKey string
	Digest    string
	StartYear int
	EndYear   int
}

type ReportCache interface {
	GetSummary(ctx context.Context, key ReportKey) (*domain.Summary, bool, error)
	SetSummary(ctx context.Context, key ReportKey, summary *domain.Summary) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisReportCache(client, ttl), nil
}

// NewRedisReportCache wraps an existing client.
func NewRedisReportCache(client *redis.Client, ttl time.Duration) ReportCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetSummary(ctx context.Context, key ReportKey) (*domain.Summary, bool, error) {
	payload, err := c.client.Get(ctx, buildReportSummaryKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary domain.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode report summary cache: %w", err)
	}

	return &summary, true, nil
}

func (c *redisReportCache) SetSummary(ctx context.Context, key ReportKey, summary *domain.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode report summary cache: %w", err)
	}

	if err := c.client.Set(ctx, buildReportSummaryKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportSummaryKeyPrefix, reportScanBatchSize)
}

func (n *noopReportCache) GetSummary(ctx context.Context, key ReportKey) (*domain.Summary, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetSummary(ctx context.Context, key ReportKey, summary *domain.Summary) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildReportSummaryKey(key ReportKey) string {
	return fmt.Sprintf("%s:%s", reportSummaryKeyPrefix, reportKeyHash(key))
}

func reportKeyHash(key ReportKey) string {
	parts := []string{
		"object_key=" + strings.TrimSpace(key.ObjectKey),
		"sha256=" + strings.ToLower(strings.TrimSpace(key.Digest)),
		fmt.Sprintf("start_year=%d", key.StartYear),
		fmt.Sprintf("end_year=%d", key.EndYear),
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
