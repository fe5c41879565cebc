package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	Namespace = "RedisHook"
)

func getConfigLocations() []string {
	return []string{
		// Relative paths
		".env",
		".redishook.yaml",
		"config/redishook.yaml",
		"config/redishook/config.yaml",
		"config/redishook/.env",

		// Container-friendly absolute paths
		"/config/redishook.yaml",
		"/config/redishook/config.yaml",
		"/config/redishook/.env",
	}
}

// Flags are the command line inputs that influence config resolution.
type Flags struct {
	Config string
}

type Config struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error fatal"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" validate:"omitempty,oneof=json console"`

	// HTTP
	APIPort                int    `yaml:"api_port" env:"API_PORT" validate:"min=1,max=65535"`
	GinMode                string `yaml:"gin_mode" env:"GIN_MODE" validate:"oneof=debug release test"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" env:"SHUTDOWN_TIMEOUT_SECONDS" validate:"min=0"`
	// APIKey guards the key routes; empty disables authentication.
	APIKey string `yaml:"api_key" env:"API_KEY"`

	SentryDSN string `yaml:"sentry_dsn" env:"SENTRY_DSN" validate:"omitempty,url"`

	OpenTelemetry *OpenTelemetryConfig `yaml:"open_telemetry"`

	// Hooks
	Redis *RedisConfig `yaml:"redis"`

	configPath string
	validated  bool
}

func (c *Config) InitDefaults() {
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.APIPort = 3333
	c.GinMode = "release"
	c.ShutdownTimeoutSeconds = 10
	c.OpenTelemetry = &OpenTelemetryConfig{}
	c.Redis = DefaultRedisConfig()
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// ConfigFilePath returns the file the config was read from, if any.
func (c *Config) ConfigFilePath() string {
	return c.configPath
}

func (c *Config) parseConfigFile(flagPath string, osInterface OSInterface) error {
	// Get config file path from flag or env
	configPath := flagPath
	if envPath := osInterface.Getenv("CONFIG"); envPath != "" {
		if configPath != "" && configPath != envPath {
			return fmt.Errorf("conflicting config paths: flag=%s env=%s", configPath, envPath)
		}
		configPath = envPath
	}

	// If no explicit config path, try default locations
	if configPath == "" {
		for _, loc := range getConfigLocations() {
			if _, err := osInterface.Stat(loc); err == nil {
				configPath = loc
				break
			}
		}
	}

	if configPath == "" {
		return nil
	}

	data, err := osInterface.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	c.configPath = configPath

	// Parse based on file extension
	if strings.HasSuffix(strings.ToLower(configPath), ".env") {
		envMap, err := godotenv.UnmarshalBytes(data)
		if err != nil {
			return fmt.Errorf("error loading .env file: %w", err)
		}
		if err := env.ParseWithOptions(c, env.Options{
			Environment: envMap,
		}); err != nil {
			return fmt.Errorf("error parsing .env file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("error parsing yaml config: %w", err)
		}
	}
	return nil
}

func (c *Config) parseEnvVariables(osInterface OSInterface) error {
	if err := env.ParseWithOptions(c, env.Options{
		Environment: osInterface.Environ(),
	}); err != nil {
		return fmt.Errorf("error parsing environment variables: %w", err)
	}
	return nil
}

func Parse(flags Flags) (*Config, error) {
	return ParseWithOS(flags, defaultOS)
}

// ParseWithOS resolves the config in order of increasing priority:
// defaults, config file, environment variables.
func ParseWithOS(flags Flags, osInterface OSInterface) (*Config, error) {
	var config Config

	// Initialize defaults
	config.InitDefaults()

	// Parse config file
	if err := config.parseConfigFile(flags.Config, osInterface); err != nil {
		return nil, err
	}

	// Parse environment variables (highest priority)
	if err := config.parseEnvVariables(osInterface); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
