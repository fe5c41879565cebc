package config

import (
	"net/url"

	"github.com/hookdeck/redishook/internal/redis"
	"go.uber.org/zap"
)

// LogConfigurationSummary returns zap fields with configuration summary, masking sensitive data
//
// When adding config fields, add them here too. Secrets are logged as
// "<field>_configured" booleans; URLs go through maskURL.
func (c *Config) LogConfigurationSummary() []zap.Field {
	fields := []zap.Field{
		// General
		zap.String("config_file_path", func() string {
			if c.configPath != "" {
				return c.configPath
			}
			return "none (using defaults and environment variables)"
		}()),
		zap.String("log_level", c.LogLevel),
		zap.String("log_format", c.LogFormat),

		// HTTP
		zap.Int("api_port", c.APIPort),
		zap.String("gin_mode", c.GinMode),
		zap.Int("shutdown_timeout_seconds", c.ShutdownTimeoutSeconds),
		zap.Bool("api_key_configured", c.APIKey != ""),

		// Error reporting
		zap.Bool("sentry_enabled", c.SentryDSN != ""),

		// OpenTelemetry
		zap.Bool("otel_enabled", c.OpenTelemetry.ToConfig() != nil),
	}

	return append(fields, c.Redis.LogFields()...)
}

// LogFields describes the redis section without secrets.
func (c *RedisConfig) LogFields() []zap.Field {
	if c == nil {
		return []zap.Field{zap.Bool("redis_configured", false)}
	}

	mode := c.Mode()
	fields := []zap.Field{
		zap.Bool("redis_enabled", c.Enabled),
		zap.String("redis_mode", mode.String()),
		zap.Bool("redis_password_configured", c.Password != ""),
		zap.Bool("redis_tls_enabled", c.Options.TLSEnabled),
	}

	switch {
	case mode == redis.ModeCluster:
		fields = append(fields,
			zap.Strings("redis_cluster_nodes", c.ClusterNodes.Strings()),
			zap.Bool("redis_route_by_latency", c.Options.RouteByLatency),
			zap.Bool("redis_route_randomly", c.Options.RouteRandomly),
		)
	case mode == redis.ModeSentinel:
		fields = append(fields,
			zap.Strings("redis_sentinels", c.Sentinels.Strings()),
			zap.String("redis_sentinel_name", c.Name),
			zap.Int("redis_db", c.DB),
			zap.Bool("redis_sentinel_password_configured", c.Options.SentinelPassword != ""),
		)
	case c.URL != "":
		fields = append(fields, zap.String("redis_url", maskURL(c.URL)))
	default:
		fields = append(fields,
			zap.String("redis_host", c.Host),
			zap.Int("redis_port", c.Port),
			zap.Int("redis_db", c.DB),
		)
	}

	if c.Options.Override {
		fields = append(fields,
			zap.Bool("redis_options_override", true),
			zap.Bool("redis_options_password_configured", c.Options.Password != ""),
			zap.Int("redis_options_db", c.Options.DB),
		)
	}
	return fields
}

// maskURL hides the password of a URL.
func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid url"
	}
	return u.Redacted()
}
