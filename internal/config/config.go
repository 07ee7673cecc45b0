// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/popsync/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Storage  StorageConfig
	Sources  SourcesConfig
	Report   ReportConfig
	HTTP     HTTPConfig
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Log      LogConfig
}

type StorageConfig struct {
	Driver        string
	Bucket        string
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PopulationKey string
	MirrorPrefix  string
}

type SourcesConfig struct {
	PopulationAPI string
	MirrorEnabled bool
	BLSBaseURL    string
}

type ReportConfig struct {
	StartYear int
	EndYear   int
}

type HTTPConfig struct {
	TimeoutSeconds int
	UserAgent      string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("STORAGE_DRIVER", "s3")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_ENDPOINT", "s3.amazonaws.com")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("POPULATION_S3_KEY", "part2/population_data.json")
	v.SetDefault("BLS_KEY_PREFIX", "part1")
	v.SetDefault("DATAUSA_POP_API", "")
	v.SetDefault("ENABLE_BLS_PART1_SYNC", true)
	v.SetDefault("BLS_BASE_URL", "")
	v.SetDefault("REPORT_START_YEAR", 2013)
	v.SetDefault("REPORT_END_YEAR", 2018)
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("HTTP_USER_AGENT", "popsync/1.0 (+data-ingest)")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "release")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 300)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 3600)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// Load reads configuration once per process from the environment, after
// loading a .env file if one exists.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = FromViper(viper.GetViper())
	})

	return instance
}

// FromViper builds a Config from v after applying defaults and binding the
// environment.
func FromViper(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Storage: StorageConfig{
			Driver:        strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			Bucket:        strings.TrimSpace(v.GetString("S3_BUCKET")),
			Endpoint:      v.GetString("S3_ENDPOINT"),
			Region:        v.GetString("S3_REGION"),
			AccessKey:     v.GetString("S3_ACCESS_KEY"),
			SecretKey:     v.GetString("S3_SECRET_KEY"),
			UseSSL:        v.GetBool("S3_USE_SSL"),
			PopulationKey: v.GetString("POPULATION_S3_KEY"),
			MirrorPrefix:  v.GetString("BLS_KEY_PREFIX"),
		},
		Sources: SourcesConfig{
			PopulationAPI: strings.TrimSpace(v.GetString("DATAUSA_POP_API")),
			MirrorEnabled: v.GetBool("ENABLE_BLS_PART1_SYNC"),
			BLSBaseURL:    strings.TrimSpace(v.GetString("BLS_BASE_URL")),
		},
		Report: ReportConfig{
			StartYear: v.GetInt("REPORT_START_YEAR"),
			EndYear:   v.GetInt("REPORT_END_YEAR"),
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: v.GetInt("HTTP_TIMEOUT_SECONDS"),
			UserAgent:      v.GetString("HTTP_USER_AGENT"),
		},
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL: strings.TrimSpace(v.GetString("DATABASE_URL")),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// Validate checks the settings every entry point needs. Settings only one
// operation needs, like the population API URL, are checked by that operation.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("%w: S3_BUCKET is required", domain.ErrConfig)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown STORAGE_DRIVER %q", domain.ErrConfig, c.Storage.Driver)
	}
	if c.Storage.PopulationKey == "" {
		return fmt.Errorf("%w: POPULATION_S3_KEY must not be empty", domain.ErrConfig)
	}
	if c.Report.StartYear > c.Report.EndYear {
		return fmt.Errorf("%w: REPORT_START_YEAR %d is after REPORT_END_YEAR %d",
			domain.ErrConfig, c.Report.StartYear, c.Report.EndYear)
	}
	return nil
}

// FetchTimeout is the outbound HTTP client timeout.
func (c HTTPConfig) FetchTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
