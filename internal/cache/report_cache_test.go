package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/popsync/internal/config"
	"github.com/andresuchdata/popsync/internal/domain"
	"github.com/redis/go-redis/v9"
)

func TestReportKeyHashStable(t *testing.T) {
	a := ReportKey{ObjectKey: "part2/population_data.json", Digest: "ABCDEF", StartYear: 2013, EndYear: 2018}
	b := ReportKey{ObjectKey: " part2/population_data.json ", Digest: "abcdef", StartYear: 2013, EndYear: 2018}

	if reportKeyHash(a) != reportKeyHash(b) {
		t.Fatalf("equivalent keys hash differently")
	}

	changed := []ReportKey{
		{ObjectKey: a.ObjectKey, Digest: "abcdee", StartYear: 2013, EndYear: 2018},
		{ObjectKey: a.ObjectKey, Digest: a.Digest, StartYear: 2014, EndYear: 2018},
		{ObjectKey: a.ObjectKey, Digest: a.Digest, StartYear: 2013, EndYear: 2019},
		{ObjectKey: "other.json", Digest: a.Digest, StartYear: 2013, EndYear: 2018},
	}
	for _, k := range changed {
		if reportKeyHash(k) == reportKeyHash(a) {
			t.Fatalf("key %+v should not collide with %+v", k, a)
		}
	}
}

func TestBuildReportSummaryKeyPrefix(t *testing.T) {
	key := buildReportSummaryKey(ReportKey{ObjectKey: "k", Digest: "d"})
	if !strings.HasPrefix(key, reportSummaryKeyPrefix+":") {
		t.Fatalf("key %q missing prefix", key)
	}
}

func TestNewReportCacheDisabledIsNoop(t *testing.T) {
	c, err := NewReportCache(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewReportCache failed: %v", err)
	}

	ctx := context.Background()
	if err := c.SetSummary(ctx, ReportKey{}, &domain.Summary{HasData: true}); err != nil {
		t.Fatalf("noop SetSummary failed: %v", err)
	}
	if _, ok, err := c.GetSummary(ctx, ReportKey{}); ok || err != nil {
		t.Fatalf("noop GetSummary = (%v, %v), want miss", ok, err)
	}
	if err := c.InvalidateAll(ctx); err != nil {
		t.Fatalf("noop InvalidateAll failed: %v", err)
	}
}

func TestBuildRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.CacheConfig
		wantAddr string
		wantDB   int
		wantErr  bool
	}{
		{name: "defaults", cfg: config.CacheConfig{}, wantAddr: "127.0.0.1:6379"},
		{name: "host port db", cfg: config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2}, wantAddr: "cache:6380", wantDB: 2},
		{name: "url wins", cfg: config.CacheConfig{RedisURL: "redis://u:p@redis.internal:6390/3", RedisHost: "ignored"}, wantAddr: "redis.internal:6390", wantDB: 3},
		{name: "bad url", cfg: config.CacheConfig{RedisURL: "http://nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := buildRedisOptions(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("buildRedisOptions should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildRedisOptions failed: %v", err)
			}
			if opts.Addr != tt.wantAddr || opts.DB != tt.wantDB {
				t.Fatalf("opts = %s db %d, want %s db %d", opts.Addr, opts.DB, tt.wantAddr, tt.wantDB)
			}
			if opts.DialTimeout != redisDialTimeout {
				t.Fatalf("DialTimeout = %v, want %v", opts.DialTimeout, redisDialTimeout)
			}
		})
	}
}

func TestRedisReportCacheSurfacesServerErrors(t *testing.T) {
	// Nothing listens on port 1, so every command fails at dial time.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewRedisReportCache(client, 0)

	ctx := context.Background()
	if err := c.InvalidateAll(ctx); err == nil || !strings.Contains(err.Error(), "redis scan failed") {
		t.Fatalf("InvalidateAll err = %v, want scan failure", err)
	}
	if _, ok, err := c.GetSummary(ctx, ReportKey{ObjectKey: "k"}); ok || err == nil {
		t.Fatalf("GetSummary = (%v, %v), want error", ok, err)
	}
	if err := c.SetSummary(ctx, ReportKey{ObjectKey: "k"}, &domain.Summary{}); err == nil {
		t.Fatalf("SetSummary should fail without a server")
	}
}
