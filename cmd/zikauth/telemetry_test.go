package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newLocalTelemetry(t *testing.T) (*telemetry, *sdkmetric.ManualReader) {
	t.Helper()
	prevMP, prevTP := otel.GetMeterProvider(), otel.GetTracerProvider()
	reader := sdkmetric.NewManualReader()
	tel, err := newTelemetry(context.Background(), telemetryEnv{}, reader)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = tel.Shutdown(context.Background())
		otel.SetMeterProvider(prevMP)
		otel.SetTracerProvider(prevTP)
	})
	return tel, reader
}

func TestTelemetryInstallsGlobalProviders(t *testing.T) {
	tel, reader := newLocalTelemetry(t)

	assert.Same(t, tel.meterProvider, otel.GetMeterProvider())
	assert.Same(t, tel.tracerProvider, otel.GetTracerProvider())

	counter, err := otel.Meter("zikauth-test").Int64Counter("zikauth_test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "zikauth_test_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(3), sum.DataPoints[0].Value)
			found = true
		}
	}
	assert.True(t, found, "counter recorded through the global meter was not collected")
}

func TestTelemetryRecordsHTTPServerMetrics(t *testing.T) {
	tel, reader := newLocalTelemetry(t)

	handler := otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), serviceName,
		otelhttp.WithTracerProvider(tel.tracerProvider),
		otelhttp.WithMeterProvider(tel.meterProvider),
	)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/health", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var metrics int
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name == otelhttp.ScopeName {
			metrics += len(sm.Metrics)
		}
	}
	assert.Positive(t, metrics)
}

func TestTelemetryShutdownStopsCollection(t *testing.T) {
	tel, reader := newLocalTelemetry(t)
	require.NoError(t, tel.Shutdown(context.Background()))

	var rm metricdata.ResourceMetrics
	assert.Error(t, reader.Collect(context.Background(), &rm))
}

func TestOTLPTarget(t *testing.T) {
	cases := []struct {
		endpoint string
		override bool
		target   string
		insecure bool
	}{
		{endpoint: "localhost:4317", target: "localhost:4317", insecure: true},
		{endpoint: "http://collector:4317/v1/metrics", target: "collector:4317", insecure: true},
		{endpoint: "https://collector:4317", target: "collector:4317", insecure: false},
		{endpoint: "https://collector:4317", override: true, target: "collector:4317", insecure: true},
	}
	for _, tc := range cases {
		target, insecure, err := otlpTarget(tc.endpoint, tc.override)
		require.NoError(t, err, tc.endpoint)
		assert.Equal(t, tc.target, target, tc.endpoint)
		assert.Equal(t, tc.insecure, insecure, tc.endpoint)
	}

	_, _, err := otlpTarget("http://", false)
	assert.Error(t, err)
}
