package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Assets   AssetsConfig
	Query    QueryConfig
	Features FeatureConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

const (
	SourceCSV      = "csv"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

type DataConfig struct {
	Source      string
	CSVFile     string
	CacheDir    string
	SQLiteFile  string
	PostgresDSN string
	Table       string
	LoadTimeout time.Duration
}

type AssetsConfig struct {
	Dir               string
	Manifest          string
	RegenerateCommand string
	RegenerateTimeout time.Duration
}

type QueryConfig struct {
	DefaultLimit int
	MemoSize     int
}

// FeatureConfig switches dashboard sections on and off. Earlier dashboard
// iterations map to subsets of these flags.
type FeatureConfig struct {
	Carousel  bool
	Explorer  bool
	Search    bool
	Cascading bool
	Gallery   bool
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			Source:      strings.ToLower(getEnvString("DATA_SOURCE", SourceCSV)),
			CSVFile:     getEnvString("CSV_FILE", "data/winemag-data-130k-v2.csv"),
			CacheDir:    getEnvString("CACHE_DIR", ".cache"),
			SQLiteFile:  getEnvString("SQLITE_FILE", "data/wines.db"),
			PostgresDSN: getEnvString("POSTGRES_DSN", ""),
			Table:       getEnvString("DATA_TABLE", "wines"),
			LoadTimeout: getEnvDuration("DATA_LOAD_TIMEOUT", 30*time.Second),
		},
		Assets: AssetsConfig{
			Dir:               getEnvString("ASSETS_DIR", "cache"),
			Manifest:          getEnvString("ASSETS_MANIFEST", "summary.yaml"),
			RegenerateCommand: getEnvString("ASSETS_REGENERATE_COMMAND", ""),
			RegenerateTimeout: getEnvDuration("ASSETS_REGENERATE_TIMEOUT", 5*time.Minute),
		},
		Query: QueryConfig{
			DefaultLimit: getEnvInt("QUERY_DEFAULT_LIMIT", 50),
			MemoSize:     getEnvInt("QUERY_MEMO_SIZE", 256),
		},
		Features: FeatureConfig{
			Carousel:  getEnvBool("FEATURE_CAROUSEL", true),
			Explorer:  getEnvBool("FEATURE_EXPLORER", true),
			Search:    getEnvBool("FEATURE_SEARCH", true),
			Cascading: getEnvBool("FEATURE_CASCADING", true),
			Gallery:   getEnvBool("FEATURE_GALLERY", true),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Data.Source {
	case SourceCSV:
		if c.Data.CSVFile == "" {
			return fmt.Errorf("CSV file path cannot be empty")
		}
	case SourceSQLite:
		if c.Data.SQLiteFile == "" {
			return fmt.Errorf("SQLite file path cannot be empty")
		}
	case SourcePostgres:
		if c.Data.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when DATA_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("invalid data source %q, must be one of: %s, %s, %s", c.Data.Source, SourceCSV, SourceSQLite, SourcePostgres)
	}

	if c.Query.DefaultLimit <= 0 {
		return fmt.Errorf("query default limit must be positive")
	}

	if c.Query.MemoSize < 0 {
		return fmt.Errorf("query memo size cannot be negative")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
