package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig loads the YAML file, applies a sibling .env file and environment
// overrides, fills defaults and validates the result.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Secrets live in .env next to the config or in the working directory
	loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env"), ".env")
	config.ApplyEnv()
	config.ApplyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// loadDotEnv loads the first existing file. Variables already set in the
// process environment win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides secrets and deployment specific values from the environment.
func (c *Config) ApplyEnv() {
	c.QuoteSource.APIKey = getEnv("BITQUERY_API_KEY", c.QuoteSource.APIKey)
	c.LogLevel = getEnv("DATAFEED_LOG_LEVEL", c.LogLevel)

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Storage.DBConnectionString = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "dex-datafeed"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = 50051
	}

	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 15
	}
	if c.Network.RequestsPerSecond == 0 {
		c.Network.RequestsPerSecond = 5
	}
	if c.Network.Burst == 0 {
		c.Network.Burst = 5
	}

	if c.Datafeed.PollIntervalSeconds == 0 {
		c.Datafeed.PollIntervalSeconds = 10
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 30
	}

	if c.Redis.TTLSeconds == 0 {
		c.Redis.TTLSeconds = 86400
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "datafeed_bars"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return helpers.NewConfigurationError("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return helpers.NewConfigurationError("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return helpers.NewConfigurationError(fmt.Sprintf("invalid server port number: %d (must be between 1025 and 65535)", c.Port))
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return helpers.NewConfigurationError(fmt.Sprintf("invalid grpc port number: %d", c.GrpcPort))
	}
	if c.GrpcPort == c.Port {
		return helpers.NewConfigurationError("grpc port must differ from server port")
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return helpers.NewConfigurationError("request timeout must be greater than 0")
	}
	if c.Network.RequestsPerSecond < 0 {
		return helpers.NewConfigurationError("requests per second cannot be negative")
	}
	if c.Network.Burst < 0 {
		return helpers.NewConfigurationError("burst cannot be negative")
	}
	for _, p := range c.Network.Proxies {
		if !helpers.ValidateProxy(p) {
			return helpers.NewConfigurationError(fmt.Sprintf("invalid proxy %q", p))
		}
	}

	// Upstreams
	if c.QuoteSource.MinTradeUSD < 0 {
		return helpers.NewConfigurationError("min trade usd cannot be negative")
	}

	// Datafeed
	if c.Datafeed.PollIntervalSeconds <= 0 {
		return helpers.NewConfigurationError("poll interval must be greater than 0")
	}
	for i, res := range c.Datafeed.SupportedResolutions {
		if strings.TrimSpace(res) == "" {
			return helpers.NewConfigurationError(fmt.Sprintf("supported resolution %d cannot be empty", i))
		}
	}
	if c.Datafeed.PriceScale < 0 || c.Datafeed.MinMove < 0 {
		return helpers.NewConfigurationError("price scale and min move cannot be negative")
	}

	// Sinks
	if c.Storage.Enabled {
		switch c.Storage.DBType {
		case "sqlite":
			if c.Storage.DBPath == "" {
				return helpers.NewConfigurationError("database path cannot be empty for sqlite")
			}
		case "postgres":
			if c.Storage.DBConnectionString == "" {
				return helpers.NewConfigurationError("connection string cannot be empty for postgres")
			}
		default:
			return helpers.NewConfigurationError(fmt.Sprintf("unsupported database type: %s", c.Storage.DBType))
		}
		if c.Storage.RetentionDays <= 0 {
			return helpers.NewConfigurationError("data retention days must be greater than 0")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return helpers.NewConfigurationError("redis address cannot be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return helpers.NewConfigurationError("at least one kafka broker must be configured")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
