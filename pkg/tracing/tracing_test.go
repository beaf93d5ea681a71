package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func record(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	UseTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)), "test")
	t.Cleanup(func() { UseTracerProvider(nil, "") })
	return rec
}

func TestDisabledTracerIsNoop(t *testing.T) {
	UseTracerProvider(nil, "")
	ctx := context.Background()
	got, span := StartOperation(ctx, "Customer", "Save", "[dbo].[Customer]")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())
	End(span, errors.New("ignored"))

	shutdown, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestOperationAndCommandSpans(t *testing.T) {
	rec := record(t)

	ctx, op := StartOperation(context.Background(), "Customer", "GetFirst", "[dbo].[Customer]")
	_, cmd := StartCommand(ctx, "GetFirst", "Select Top 1 [Id] From [dbo].[Customer];")
	End(cmd, errors.New("timeout"))
	End(op, nil)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "sql GetFirst", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, "Customer.GetFirst", spans[1].Name())
	assert.Equal(t, codes.Ok, spans[1].Status().Code)

	var table string
	for _, kv := range spans[1].Attributes() {
		if kv.Key == AttrTable {
			table = kv.Value.AsString()
		}
	}
	assert.Equal(t, "[dbo].[Customer]", table)
}

func TestMiddleware(t *testing.T) {
	rec := record(t)
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddEvent(r.Context(), "handled")
		w.WriteHeader(http.StatusNoContent)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/customers", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /customers", spans[0].Name())
	require.Len(t, spans[0].Events(), 1)
}
