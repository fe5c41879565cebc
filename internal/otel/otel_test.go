package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureHTTPEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"localhost:4318", "http://localhost:4318/v1/traces"},
		{"http://collector:4318", "http://collector:4318/v1/traces"},
		{"https://collector:4318/", "https://collector:4318/v1/traces"},
		{"http://collector:4318/v1/traces", "http://collector:4318/v1/traces"},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, ensureHTTPEndpoint("traces", tt.endpoint))
		})
	}
}

func TestSetupOTelSDK_NilConfig(t *testing.T) {
	shutdown, err := SetupOTelSDK(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupOTelSDK_Stdout(t *testing.T) {
	shutdown, err := SetupOTelSDK(context.Background(), &OpenTelemetryConfig{
		ServiceName: "redishook-test",
		Exporter:    ExporterStdout,
		Traces:      true,
		Metrics:     true,
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
