package observability

import (
	"context"
	"testing"
	"time"
)

func TestInitTracingWithoutEndpoint(t *testing.T) {
	tp, err := InitTracing(context.Background(), &TracingConfig{ServiceName: "pubscope"})
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if tp.Tracer() == nil {
		t.Fatal("nil tracer")
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestStageSpanLifecycle(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	defer tp.Shutdown(context.Background())

	ctx, span := StartStageSpan(context.Background(), "metrics")
	if ctx == nil || span == nil {
		t.Fatal("nil span context")
	}
	RecordStageResult(span, 42, time.Now(), nil)
}
