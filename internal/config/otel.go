package config

import "github.com/hookdeck/redishook/internal/otel"

type OpenTelemetryConfig struct {
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	Exporter    string `yaml:"exporter" env:"OTEL_EXPORTER" validate:"omitempty,oneof=otlp stdout"`
	Protocol    string `yaml:"protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" validate:"omitempty,oneof=grpc http"`
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Traces      bool   `yaml:"traces" env:"OTEL_TRACES_ENABLED"`
	Metrics     bool   `yaml:"metrics" env:"OTEL_METRICS_ENABLED"`
}

// ToConfig returns nil when OpenTelemetry is not configured.
func (c *OpenTelemetryConfig) ToConfig() *otel.OpenTelemetryConfig {
	if c == nil || c.ServiceName == "" || (!c.Traces && !c.Metrics) {
		return nil
	}

	exporter := c.Exporter
	if exporter == "" {
		exporter = otel.ExporterOTLP
	}
	protocol := c.Protocol
	if protocol == "" {
		protocol = otel.ProtocolGRPC
	}

	return &otel.OpenTelemetryConfig{
		ServiceName: c.ServiceName,
		Exporter:    exporter,
		Protocol:    protocol,
		Endpoint:    c.Endpoint,
		Traces:      c.Traces,
		Metrics:     c.Metrics,
	}
}

func (c *OpenTelemetryConfig) GetServiceName() string {
	if c == nil || c.ServiceName == "" {
		return "redishook"
	}
	return c.ServiceName
}
