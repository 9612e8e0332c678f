package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Storage
	StoreDriver   string `yaml:"store_driver"`
	DatabaseURL   string `yaml:"database_url"`
	SQLitePath    string `yaml:"sqlite_path"`
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	IndexName     string `yaml:"index_name"`

	// Events
	EventBusName string `yaml:"event_bus_name"`
	EnableEvents bool   `yaml:"enable_events"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret   string   `yaml:"jwt_secret"`
	JWTIssuer   string   `yaml:"jwt_issuer"`
	JWTAudience []string `yaml:"jwt_audience"`

	// HTTP
	CORSOrigins   []string `yaml:"cors_origins"`
	RateLimitIP   int      `yaml:"rate_limit_ip"`
	RateLimitUser int      `yaml:"rate_limit_user"`

	// Feature flags
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	MetricsPrefix string `yaml:"metrics_namespace"`
}

// Default returns the development configuration
func Default() *Config {
	return &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		StoreDriver:   StoreSQLite,
		SQLitePath:    "ameliorate.db",
		AWSRegion:     "us-west-2",
		DynamoDBTable: "ameliorate",
		IndexName:     "GSI1",
		EventBusName:  "ameliorate-events",
		LogLevel:      "info",
		JWTIssuer:     "ameliorate",
		CORSOrigins:   []string{"http://localhost:3000"},
		RateLimitIP:   300,
		RateLimitUser: 120,
		EnableMetrics: true,
		MetricsPrefix: "ameliorate",
	}
}

// LoadConfig loads configuration from defaults, an optional .env file, the
// YAML file named by CONFIG_FILE and environment variables, in increasing
// order of precedence.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom is LoadConfig with an explicit YAML path. An empty path skips
// the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.IndexName = getEnv("INDEX_NAME", c.IndexName)

	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.EnableEvents = getEnvBool("ENABLE_EVENTS", c.EnableEvents)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.JWTAudience = getEnvList("JWT_AUDIENCE", c.JWTAudience)

	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)
	c.RateLimitIP = getEnvInt("RATE_LIMIT_IP", c.RateLimitIP)
	c.RateLimitUser = getEnvInt("RATE_LIMIT_USER", c.RateLimitUser)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.MetricsPrefix = getEnv("METRICS_NAMESPACE", c.MetricsPrefix)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.EnableEvents && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when events are enabled")
	}
	if c.RateLimitIP < 0 || c.RateLimitUser < 0 {
		return fmt.Errorf("rate limits cannot be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.StoreDriver == StoreSQLite {
			return fmt.Errorf("the sqlite store is not supported in production")
		}
	}
	return nil
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

// getEnvList splits a comma separated variable, dropping blanks
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
