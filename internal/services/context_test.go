package services_test

import (
	"context"
	"testing"

	"redink/internal/services"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTaskID(ctx, 42)
	ctx = services.WithImageID(ctx, 7)
	ctx = services.WithStage(ctx, "recognition")
	ctx = services.WithLane(ctx, "foreground")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.TaskIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("task id = %d, %v", id, ok)
	}
	if id, ok := services.ImageIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("image id = %d, %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "recognition" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if lane, ok := services.LaneFromContext(ctx); !ok || lane != "foreground" {
		t.Fatalf("lane = %q, %v", lane, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage on untouched context")
	}
	if _, ok := services.TaskIDFromContext(context.Background()); ok {
		t.Fatal("expected no task id on empty context")
	}
}
