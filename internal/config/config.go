package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendFile     = "file"
)

type Config struct {
	Server   ServerConfig
	Fetch    FetchConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Store    StoreConfig
	Batch    BatchConfig
	Jobs     JobsConfig
	Archive  ArchiveConfig
	Consumer ConsumerConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// ScrapeRate and ScrapeBurst bound POST /api/scrape.
	ScrapeRate  float64
	ScrapeBurst int
}

type FetchConfig struct {
	Timeout        time.Duration
	MaxRedirects   int
	UserAgent      string
	AcceptLanguage string
}

type BrowserConfig struct {
	Enabled           bool
	Headless          bool
	AllowHeadful      bool
	ExecutablePath    string
	NavigationTimeout time.Duration
	ViewportWidth     int
	ViewportHeight    int
	Locale            string
	TimezoneID        string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Stream   string
}

type StoreConfig struct {
	Backend  string
	FilePath string
}

type BatchConfig struct {
	Adaptive bool
}

type JobsConfig struct {
	PollInterval time.Duration
	RelayEvery   time.Duration
}

// ArchiveConfig configures the S3 compatible image archive. An empty bucket
// disables archiving.
type ArchiveConfig struct {
	Bucket       string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	Prefix       string
}

// ConsumerConfig configures the Redis stream of scrape requests.
type ConsumerConfig struct {
	Stream string
	Group  string
	Name   string
	Block  time.Duration
	Count  int64
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"*"}),
			ScrapeRate:      getFloatOrDefault("SERVER_SCRAPE_RATE", 0.5),
			ScrapeBurst:     getIntOrDefault("SERVER_SCRAPE_BURST", 3),
		},
		Fetch: FetchConfig{
			Timeout:        getDurationOrDefault("FETCH_TIMEOUT", 15*time.Second),
			MaxRedirects:   getIntOrDefault("FETCH_MAX_REDIRECTS", 5),
			UserAgent:      getEnvOrDefault("FETCH_USER_AGENT", ""),
			AcceptLanguage: getEnvOrDefault("FETCH_ACCEPT_LANGUAGE", "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7"),
		},
		Browser: BrowserConfig{
			Enabled:           getBoolOrDefault("BROWSER_ENABLED", true),
			Headless:          getBoolOrDefault("BROWSER_HEADLESS", true),
			AllowHeadful:      getBoolOrDefault("BROWSER_ALLOW_HEADFUL", false),
			ExecutablePath:    getEnvOrDefault("BROWSER_EXECUTABLE_PATH", ""),
			NavigationTimeout: getDurationOrDefault("BROWSER_NAVIGATION_TIMEOUT", 45*time.Second),
			ViewportWidth:     getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight:    getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			Locale:            getEnvOrDefault("BROWSER_LOCALE", "fr-FR"),
			TimezoneID:        getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Paris"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "supplier_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:product_catalog"),
		},
		Store: StoreConfig{
			Backend:  getEnvOrDefault("STORE_BACKEND", StoreBackendPostgres),
			FilePath: getEnvOrDefault("STORE_FILE_PATH", "data/database.json"),
		},
		Batch: BatchConfig{
			Adaptive: getBoolOrDefault("BATCH_ADAPTIVE_PACING", true),
		},
		Jobs: JobsConfig{
			PollInterval: getDurationOrDefault("JOBS_POLL_INTERVAL", 5*time.Second),
			RelayEvery:   getDurationOrDefault("OUTBOX_RELAY_INTERVAL", 2*time.Second),
		},
		Archive: ArchiveConfig{
			Bucket:       getEnvOrDefault("ARCHIVE_BUCKET", ""),
			Endpoint:     getEnvOrDefault("ARCHIVE_ENDPOINT", ""),
			Region:       getEnvOrDefault("ARCHIVE_REGION", "us-east-1"),
			AccessKey:    getEnvOrDefault("ARCHIVE_ACCESS_KEY", ""),
			SecretKey:    getEnvOrDefault("ARCHIVE_SECRET_KEY", ""),
			UsePathStyle: getBoolOrDefault("ARCHIVE_PATH_STYLE", true),
			Prefix:       getEnvOrDefault("ARCHIVE_PREFIX", "products"),
		},
		Consumer: ConsumerConfig{
			Stream: getEnvOrDefault("CONSUMER_STREAM", "stream:scrape_requests"),
			Group:  getEnvOrDefault("CONSUMER_GROUP", "supplier-scraper"),
			Name:   getEnvOrDefault("CONSUMER_NAME", "consumer-1"),
			Block:  getDurationOrDefault("CONSUMER_BLOCK", 5*time.Second),
			Count:  int64(getIntOrDefault("CONSUMER_COUNT", 1)),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}

	if c.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("FETCH_MAX_REDIRECTS cannot be negative")
	}

	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("BROWSER_NAVIGATION_TIMEOUT must be positive")
	}

	switch c.Store.Backend {
	case StoreBackendPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for the postgres store")
		}
	case StoreBackendFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("STORE_FILE_PATH is required for the file store")
		}
		if c.Redis.Enabled {
			return fmt.Errorf("REDIS_ENABLED requires the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Server.ScrapeRate <= 0 || c.Server.ScrapeBurst < 1 {
		return fmt.Errorf("SERVER_SCRAPE_RATE must be positive and SERVER_SCRAPE_BURST at least 1")
	}

	if c.Archive.Bucket != "" && (c.Archive.AccessKey == "" || c.Archive.SecretKey == "") {
		return fmt.Errorf("ARCHIVE_ACCESS_KEY and ARCHIVE_SECRET_KEY are required when ARCHIVE_BUCKET is set")
	}

	return nil
}

// DSN returns the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode, d.MaxConns)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
