package config

import (
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/popsync/internal/domain"
	"github.com/spf13/viper"
)

func TestFromViperDefaults(t *testing.T) {
	cfg := FromViper(viper.New())

	if cfg.Storage.Driver != "s3" || cfg.Storage.PopulationKey != "part2/population_data.json" || cfg.Storage.MirrorPrefix != "part1" {
		t.Fatalf("storage defaults = %+v", cfg.Storage)
	}
	if !cfg.Sources.MirrorEnabled {
		t.Fatalf("mirror should be enabled by default")
	}
	if cfg.Report.StartYear != 2013 || cfg.Report.EndYear != 2018 {
		t.Fatalf("report range = %d-%d, want 2013-2018", cfg.Report.StartYear, cfg.Report.EndYear)
	}
	if cfg.HTTP.FetchTimeout() != 30*time.Second {
		t.Fatalf("FetchTimeout = %v, want 30s", cfg.HTTP.FetchTimeout())
	}
	if cfg.Cache.Enabled || cfg.Database.URL != "" {
		t.Fatalf("cache and database should be off by default: %+v %+v", cfg.Cache, cfg.Database)
	}
}

func TestFromViperEnvironment(t *testing.T) {
	t.Setenv("S3_BUCKET", " my-bucket ")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("POPULATION_S3_KEY", "alt/pop.json")
	t.Setenv("DATAUSA_POP_API", "https://example.test/api")
	t.Setenv("ENABLE_BLS_PART1_SYNC", "false")
	t.Setenv("REPORT_START_YEAR", "2000")
	t.Setenv("REPORT_END_YEAR", "2001")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "5")
	t.Setenv("CACHE_REPORT_TTL_SECONDS", "60")

	cfg := FromViper(viper.New())

	if cfg.Storage.Bucket != "my-bucket" || cfg.Storage.Driver != "memory" || cfg.Storage.PopulationKey != "alt/pop.json" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Sources.MirrorEnabled || cfg.Sources.PopulationAPI != "https://example.test/api" {
		t.Fatalf("sources = %+v", cfg.Sources)
	}
	if cfg.Report.StartYear != 2000 || cfg.Report.EndYear != 2001 {
		t.Fatalf("report = %+v", cfg.Report)
	}
	if cfg.HTTP.FetchTimeout() != 5*time.Second || cfg.Cache.ReportTTLSeconds != 60 {
		t.Fatalf("timeouts = %v %d", cfg.HTTP.FetchTimeout(), cfg.Cache.ReportTTLSeconds)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{Driver: "s3", Bucket: "b", PopulationKey: "part2/population_data.json"},
			Report:  ReportConfig{StartYear: 2013, EndYear: 2018},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"memory without bucket", func(c *Config) { c.Storage.Driver = "memory"; c.Storage.Bucket = "" }, false},
		{"missing bucket", func(c *Config) { c.Storage.Bucket = "" }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "gcs" }, true},
		{"empty population key", func(c *Config) { c.Storage.PopulationKey = "" }, true},
		{"inverted range", func(c *Config) { c.Report.StartYear = 2019 }, true},
		{"single year", func(c *Config) { c.Report.StartYear = 2018 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrConfig) {
					t.Fatalf("Validate() = %v, want ErrConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestFetchTimeoutFallback(t *testing.T) {
	if got := (HTTPConfig{TimeoutSeconds: -1}).FetchTimeout(); got != 30*time.Second {
		t.Fatalf("FetchTimeout = %v, want 30s", got)
	}
}
