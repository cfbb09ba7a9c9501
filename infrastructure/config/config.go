package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreBackendShopify  = "shopify"
	StoreBackendDynamoDB = "dynamodb"
	StoreBackendMemory   = "memory"
)

// Cache and lock backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendNone     = "none"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string
	Environment     string
	ShutdownTimeout time.Duration

	// Backends
	StoreBackend  string
	CacheBackend  string
	LockBackend   string
	EventBackend  string // eventbridge | log | none
	ActivityStore string // dynamodb | memory | none

	// Shopify
	ShopifyMode        string
	ShopifyShopDomain  string
	ShopifyEndpoint    string
	ShopifyAPIVersion  string
	ShopifyAccessToken string
	ShopifyAPIKey      string
	ShopifyAPISecret   string
	ShopifyTimeout     time.Duration

	// AWS configuration
	AWSRegion         string
	DynamoDBTable     string
	EventBusName      string
	ActivityRetention time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Logging
	LogLevel string

	// Rate limiting of mutations, per customer
	RateLimitPerSecond float64
	RateLimitBurst     int

	// CORS
	CORSAllowedOrigins []string

	// CloudWatch metrics, on by default inside Lambda where /metrics
	// cannot be scraped
	CloudWatchMetrics bool
	MetricsNamespace  string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
	DevAuthBypass bool
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present; real variables win.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreBackendMemory)),
		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", BackendMemory)),
		LockBackend:   strings.ToLower(getEnv("LOCK_BACKEND", BackendMemory)),
		EventBackend:  strings.ToLower(getEnv("EVENT_BACKEND", "log")),
		ActivityStore: strings.ToLower(getEnv("ACTIVITY_STORE", BackendMemory)),

		ShopifyMode:        getEnv("SHOPIFY_MODE", "customer-account"),
		ShopifyShopDomain:  getEnv("SHOPIFY_SHOP_DOMAIN", ""),
		ShopifyEndpoint:    getEnv("SHOPIFY_GRAPHQL_ENDPOINT", ""),
		ShopifyAPIVersion:  getEnv("SHOPIFY_API_VERSION", "2025-01"),
		ShopifyAccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		ShopifyAPIKey:      getEnv("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret:   getEnv("SHOPIFY_API_SECRET", ""),
		ShopifyTimeout:     getEnvDuration("SHOPIFY_TIMEOUT", 10*time.Second),

		AWSRegion:         getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:     getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "esn")),
		EventBusName:      getEnv("EVENT_BUS_NAME", "esn-events"),
		ActivityRetention: getEnvDuration("ACTIVITY_RETENTION", 90*24*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		IsLambda:           getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 2),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 5),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		DevAuthBypass: getEnvBool("DEV_AUTH_BYPASS", false),
	}

	cfg.CloudWatchMetrics = getEnvBool("CLOUDWATCH_METRICS", cfg.IsLambda)
	cfg.MetricsNamespace = getEnv("METRICS_NAMESPACE", "ESN/"+cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendShopify:
		if c.ShopifyGraphQLEndpoint() == "" {
			return fmt.Errorf("SHOPIFY_GRAPHQL_ENDPOINT or SHOPIFY_SHOP_DOMAIN is required for the shopify store")
		}
		if c.ShopifyMode == "admin" && c.ShopifyAccessToken == "" {
			return fmt.Errorf("SHOPIFY_ACCESS_TOKEN is required in admin mode")
		}
	case StoreBackendDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.CacheBackend {
	case BackendMemory, BackendRedis, BackendNone:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.LockBackend {
	case BackendMemory, BackendRedis, BackendDynamoDB, BackendNone:
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}

	if c.CloudWatchMetrics && c.MetricsNamespace == "" {
		return fmt.Errorf("METRICS_NAMESPACE is required when CLOUDWATCH_METRICS is enabled")
	}

	if c.EventBackend == "eventbridge" && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required")
	}

	if c.IsProduction() {
		if c.ShopifyAPISecret == "" {
			return fmt.Errorf("SHOPIFY_API_SECRET is required in production")
		}
		if c.DevAuthBypass {
			return fmt.Errorf("DEV_AUTH_BYPASS cannot be enabled in production")
		}
	}

	return nil
}

// ShopifyGraphQLEndpoint returns the configured endpoint or derives it from the shop domain
func (c *Config) ShopifyGraphQLEndpoint() string {
	if c.ShopifyEndpoint != "" {
		return c.ShopifyEndpoint
	}
	if c.ShopifyShopDomain == "" {
		return ""
	}
	if c.ShopifyMode == "admin" {
		return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.ShopifyShopDomain, c.ShopifyAPIVersion)
	}
	return fmt.Sprintf("https://%s/account/customer/api/%s/graphql", c.ShopifyShopDomain, c.ShopifyAPIVersion)
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration syntax ("30s", "5m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
