package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var configFile string

type Config struct {
	// Event store
	DBDriver          string        `mapstructure:"database.driver"`
	DBSource          string        `mapstructure:"database.source"`
	SnapshotFrequency int           `mapstructure:"store.snapshot_frequency"`
	MaxReplayEvents   int           `mapstructure:"store.max_replay_events"`
	PersistInterval   time.Duration `mapstructure:"store.persist_interval"`

	// HTTP Server
	HTTPServerAddress string        `mapstructure:"server.address"`
	HTTPServerTimeout time.Duration `mapstructure:"server.timeout"`
	CorsEnabled       bool          `mapstructure:"server.cors_enabled"`
	CorsOrigins       []string      `mapstructure:"server.cors_origins"`

	// Worker
	FallbackInterval time.Duration `mapstructure:"worker.fallback_interval"`

	Redis   RedisConfig   `mapstructure:",squash"`
	Azure   AzureConfig   `mapstructure:",squash"`
	Elastic ElasticConfig `mapstructure:",squash"`
	Tracing TracingConfig `mapstructure:",squash"`

	// Logging
	LogLevel  string `mapstructure:"logging.level"`
	LogFormat string `mapstructure:"logging.format"`
}

// RedisConfig holds the snapshot cache configuration
type RedisConfig struct {
	Host     string        `mapstructure:"redis.host"`
	Port     int           `mapstructure:"redis.port"`
	Password string        `mapstructure:"redis.password"`
	DB       int           `mapstructure:"redis.db"`
	Enabled  bool          `mapstructure:"redis.enabled"`
	TTL      time.Duration `mapstructure:"redis.ttl"`
}

// AzureConfig holds the Azure Service Bus configuration
type AzureConfig struct {
	QueueConnStr string `mapstructure:"azure.queue_conn_str"`
	QueueName    string `mapstructure:"azure.queue_name"`
	Enabled      bool   `mapstructure:"azure.enabled"`
}

// ElasticConfig holds the Elasticsearch configuration
type ElasticConfig struct {
	URL      string `mapstructure:"elastic.url"`
	Username string `mapstructure:"elastic.username"`
	Password string `mapstructure:"elastic.password"`
	Prefix   string `mapstructure:"elastic.prefix"`
	Enabled  bool   `mapstructure:"elastic.enabled"`
}

// TracingConfig holds the tracing configuration
type TracingConfig struct {
	LicenseKey     string `mapstructure:"tracing.license_key"`
	AppName        string `mapstructure:"tracing.app_name"`
	LogEnabled     bool   `mapstructure:"tracing.log_enabled"`
	DistribTracing bool   `mapstructure:"tracing.distributed_tracing_enabled"`
}

func SetConfigFile(file string) {
	configFile = file
}

func LoadConfig() (Config, error) {
	var config Config

	// Keys like "store.snapshot_frequency" are flat literals, not
	// nested paths, so the delimiter must be something other than "."
	// or viper splits them and the defaults never reach Unmarshal.
	v := viper.NewWithOptions(
		viper.KeyDelimiter("::"),
		viper.EnvKeyReplacer(strings.NewReplacer(".", "_")),
	)

	v.SetConfigType("yaml")

	// Set defaults
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.SetConfigName("config")
	}

	// Handle environment variables
	v.SetEnvPrefix("ORCHESTRATOR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Try app.env file if yaml not found
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			v.SetConfigType("env")
			v.SetConfigName("app")
			if err := v.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return config, fmt.Errorf("error loading configuration: %w", err)
				}
				// No config file at all; env vars and defaults apply
			}
		} else {
			return config, fmt.Errorf("error loading configuration: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("error unmarshaling configuration: %w", err)
	}

	return config, nil
}

// FormatIndex adds the configured prefix to an index name
func FormatIndex(cfg ElasticConfig, index string) string {
	return cfg.Prefix + "-" + index
}

// Set default configuration values
func setDefaults(v *viper.Viper) {
	// Event store
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.source", "orchestrator.db")
	v.SetDefault("store.snapshot_frequency", 100)
	v.SetDefault("store.max_replay_events", 10000)
	v.SetDefault("store.persist_interval", "30s")

	// HTTP Server
	v.SetDefault("server.address", "0.0.0.0:8080")
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.cors_enabled", true)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Worker
	v.SetDefault("worker.fallback_interval", "5m")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.ttl", "1h")

	// Azure Service Bus
	v.SetDefault("azure.queue_name", "orchestrator-notifications")
	v.SetDefault("azure.enabled", false)

	// Elasticsearch
	v.SetDefault("elastic.url", "http://localhost:9200")
	v.SetDefault("elastic.prefix", "orchestrator")
	v.SetDefault("elastic.enabled", false)

	// Tracing
	v.SetDefault("tracing.app_name", "Orchestrator Service")
	v.SetDefault("tracing.log_enabled", true)
	v.SetDefault("tracing.distributed_tracing_enabled", true)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
