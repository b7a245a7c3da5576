package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestListRequestMetricsLog(t *testing.T) {
	exporter := setupTestTracer(t)
	logger, hook := test.NewNullLogger()

	metrics, spanCtx := newListRequestMetrics(context.Background(), logger)
	if spanCtx == nil {
		t.Fatal("expected a span context")
	}
	metrics.ObserveAuth(2 * time.Millisecond)
	metrics.ObserveFetch(5 * time.Millisecond)
	metrics.ObserveEncode(time.Millisecond)
	metrics.SetFiltered(true)
	metrics.SetTasksReturned(3)
	metrics.Log(200, nil)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Message != "tasks.request.metrics" {
		t.Fatalf("unexpected message %q", entry.Message)
	}
	if entry.Data["status"] != 200 {
		t.Fatalf("unexpected status field: %#v", entry.Data["status"])
	}
	if entry.Data["tasks_returned"] != 3 {
		t.Fatalf("unexpected tasks_returned: %#v", entry.Data["tasks_returned"])
	}
	if filtered, ok := entry.Data["filtered"].(bool); !ok || !filtered {
		t.Fatalf("expected filtered=true, got %#v", entry.Data["filtered"])
	}
	if traceID, ok := entry.Data["trace_id"].(string); !ok || traceID == "" {
		t.Fatalf("expected trace_id to be recorded, got %#v", entry.Data["trace_id"])
	}
	for _, field := range []string{"auth_ms", "fetch_ms", "encode_ms", "total_ms"} {
		if _, ok := entry.Data[field]; !ok {
			t.Fatalf("expected %s field, got %#v", field, entry.Data)
		}
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "tasks.list" {
		t.Fatalf("unexpected span name %q", span.Name)
	}
	found := false
	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key("tasks.returned") && attr.Value.AsInt64() == 3 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tasks.returned attribute, got %#v", span.Attributes)
	}
}

func TestListRequestMetricsError(t *testing.T) {
	exporter := setupTestTracer(t)
	logger, hook := test.NewNullLogger()

	metrics, _ := newListRequestMetrics(context.Background(), logger)
	metrics.SetErrorStage("storage")
	metrics.Log(500, errors.New("boom"))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Data["error_stage"] != "storage" {
		t.Fatalf("unexpected error_stage: %#v", entry.Data["error_stage"])
	}
	if entry.Data["error"] != "boom" {
		t.Fatalf("unexpected error field: %#v", entry.Data["error"])
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if len(spans[0].Events) == 0 {
		t.Fatal("expected the error to be recorded on the span")
	}
}
