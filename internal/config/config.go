package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Batch    BatchConfig
	Cache    CacheConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string
	StreamName     string
	ImportSubject  string
	CreatedSubject string
	ConsumerName   string
}

// BatchConfig controls how the catalog worker pulls and processes batches
type BatchConfig struct {
	Size        int
	MaxWait     time.Duration
	Concurrency int
	ItemTimeout time.Duration
}

// CacheConfig holds caching TTL configuration
type CacheConfig struct {
	ProductTTL time.Duration
}

// AuthConfig maps usernames to their expected secrets
type AuthConfig struct {
	Credentials map[string]string
}

// Load reads configuration from environment variables and returns a Config struct
func Load() (*Config, error) {
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "product_catalog")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("NATS_URL", "nats://localhost:4222")
	viper.SetDefault("NATS_STREAM", "CATALOG")
	viper.SetDefault("NATS_IMPORT_SUBJECT", "catalog.products.import")
	viper.SetDefault("NATS_CREATED_SUBJECT", "catalog.products.created")
	viper.SetDefault("NATS_CONSUMER", "catalog-batch-process")

	viper.SetDefault("BATCH_SIZE", 5)
	viper.SetDefault("BATCH_MAX_WAIT", "5s")
	viper.SetDefault("BATCH_CONCURRENCY", 5)
	viper.SetDefault("BATCH_ITEM_TIMEOUT", "5s")

	viper.SetDefault("CACHE_TTL_PRODUCT", "300s")

	viper.SetDefault("AUTH_CREDENTIALS", "")

	readTimeout, err := time.ParseDuration(viper.GetString("SERVER_READ_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := time.ParseDuration(viper.GetString("SERVER_WRITE_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := time.ParseDuration(viper.GetString("SERVER_SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	batchMaxWait, err := time.ParseDuration(viper.GetString("BATCH_MAX_WAIT"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_MAX_WAIT: %w", err)
	}

	itemTimeout, err := time.ParseDuration(viper.GetString("BATCH_ITEM_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_ITEM_TIMEOUT: %w", err)
	}

	productTTL, err := time.ParseDuration(viper.GetString("CACHE_TTL_PRODUCT"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_PRODUCT: %w", err)
	}

	credentials, err := ParseCredentials(viper.GetString("AUTH_CREDENTIALS"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_CREDENTIALS: %w", err)
	}

	batchSize := viper.GetInt("BATCH_SIZE")
	if batchSize <= 0 {
		return nil, fmt.Errorf("invalid BATCH_SIZE: must be positive, got %d", batchSize)
	}

	config := &Config{
		Env: viper.GetString("ENV"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			URL:            viper.GetString("NATS_URL"),
			StreamName:     viper.GetString("NATS_STREAM"),
			ImportSubject:  viper.GetString("NATS_IMPORT_SUBJECT"),
			CreatedSubject: viper.GetString("NATS_CREATED_SUBJECT"),
			ConsumerName:   viper.GetString("NATS_CONSUMER"),
		},
		Batch: BatchConfig{
			Size:        batchSize,
			MaxWait:     batchMaxWait,
			Concurrency: viper.GetInt("BATCH_CONCURRENCY"),
			ItemTimeout: itemTimeout,
		},
		Cache: CacheConfig{
			ProductTTL: productTTL,
		},
		Auth: AuthConfig{
			Credentials: credentials,
		},
	}

	return config, nil
}

// ParseCredentials parses "user:secret,user2:secret2" into a username to secret map.
// An empty string yields an empty map, which denies every request.
func ParseCredentials(raw string) (map[string]string, error) {
	credentials := make(map[string]string)
	for _, pair := range splitList(raw) {
		username, secret, ok := strings.Cut(pair, ":")
		if !ok || username == "" || secret == "" {
			return nil, fmt.Errorf("malformed credential entry %q", pair)
		}
		credentials[username] = secret
	}
	return credentials, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
