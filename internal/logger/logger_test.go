package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		wantErr    bool
	}{
		{"prod", "", false},
		{"local", "debug", false},
		{"test", "", false},
		{"staging", "", true},
		{"dev", "verbose", true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			_, err := NewLogger(tt.env, tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger(%q, %q) error = %v, wantErr %v", tt.env, tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestWith_AddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "r1")))

	ctx = With(ctx, zap.String("uid", "u1"))
	FromContext(ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r1" || fields["uid"] != "u1" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestWith_NoLogger(t *testing.T) {
	ctx := context.Background()
	if got := With(ctx, zap.String("uid", "u1")); got != ctx {
		t.Error("expected ctx unchanged without a logger")
	}
}
