package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/ramonehamilton/mtg-binder/internal/config"
)

func keepGlobalProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() {
		if otel.GetTracerProvider() != prev {
			otel.SetTracerProvider(prev)
		}
	})
}

func TestSetup_NoneRegistersNothing(t *testing.T) {
	keepGlobalProvider(t)
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), config.TracingConfig{Exporter: config.ExporterNone})
	require.NoError(t, err)
	assert.Same(t, before, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_OTLPRegistersSDKProvider(t *testing.T) {
	keepGlobalProvider(t)

	// Non-routable address; nothing is exported because no span is started.
	shutdown, err := Setup(context.Background(), config.TracingConfig{
		Exporter:    config.ExporterOTLP,
		Endpoint:    "http://192.0.2.1:4318",
		SampleRatio: 1,
	})
	require.NoError(t, err)
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "global provider is %T", otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_UnknownExporter(t *testing.T) {
	keepGlobalProvider(t)

	_, err := Setup(context.Background(), config.TracingConfig{Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestNewProvider_ResourceAndSampling(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		spans int
	}{
		{"always", 1, 1},
		{"never", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := tracetest.NewSpanRecorder()
			tp, err := NewProvider(context.Background(),
				config.TracingConfig{ServiceName: "binder-test", SampleRatio: tt.ratio},
				sdktrace.WithSpanProcessor(recorder))
			require.NoError(t, err)
			t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

			_, span := tp.Tracer("test").Start(context.Background(), "catalog.collection")
			span.End()

			ended := recorder.Ended()
			require.Len(t, ended, tt.spans)
			if tt.spans > 0 {
				assert.Contains(t, ended[0].Resource().Attributes(), semconv.ServiceName("binder-test"))
			}
		})
	}
}
