package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTelemetry_InstallsProvider(t *testing.T) {
	before := otel.GetTracerProvider()
	defer otel.SetTracerProvider(before)

	// экспортер создаётся лениво, соединение при инициализации не нужно
	shutdown, err := InitTelemetry(context.Background(), Options{
		ServiceName: "arena-test",
		Endpoint:    "127.0.0.1:1",
		Insecure:    true,
		SampleRatio: 0.5,
	})
	require.NoError(t, err)
	assert.NotSame(t, before, otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	span.End()

	// отправить некуда: ошибка сброса допустима, зависания нет
	_ = shutdown(context.Background())
}
