package docfield

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
)

func TestReader_Valid(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	r := NewReader(map[string]any{
		"name":      "Sunrise",
		"rooms":     int64(12),
		"rating":    4.5,
		"verified":  true,
		"createdAt": now,
		"updatedAt": "2026-01-11T08:30:00Z",
		"seenAt":    float64(now.UnixMilli()),
		"tags":      []any{"wifi", "water"},
		"price":     map[string]any{"min": 300, "max": int32(500)},
	})

	if r.String("name") != "Sunrise" || r.Int("rooms") != 12 || r.Float("rating") != 4.5 || !r.OptBool("verified") {
		t.Fatal("scalar mismatch")
	}
	if !r.OptTime("createdAt").Equal(now) || !r.OptTime("seenAt").Equal(now) {
		t.Error("time mismatch")
	}
	if r.OptTime("updatedAt").Hour() != 8 {
		t.Error("RFC 3339 parse mismatch")
	}
	if tags := r.OptStrings("tags"); len(tags) != 2 || tags[1] != "water" {
		t.Errorf("tags = %v", tags)
	}
	price := r.Map("price")
	if price.Int("min") != 300 || price.Int("max") != 500 {
		t.Error("nested mismatch")
	}
	if r.OptString("missing") != "" || r.OptFloat("missing") != 0 {
		t.Error("optional defaults mismatch")
	}
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReader_CollectsErrors(t *testing.T) {
	r := NewReader(map[string]any{
		"name":  42,
		"rooms": 2.5,
		"tags":  []any{"ok", 3},
		"price": map[string]any{"min": "cheap"},
	})
	r.String("name")
	r.Int("rooms")
	r.OptStrings("tags")
	r.Map("price").Float("min")
	r.String("description")

	err := r.Err()
	if !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	for _, want := range []string{"name:", "rooms:", "tags:", "price.min:", "description: required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q lacks %q", err, want)
		}
	}
}

func TestReader_Maps(t *testing.T) {
	r := NewReader(map[string]any{
		"images": []any{map[string]any{"url": "a"}, "bad"},
	})
	items := r.Maps("images")
	if len(items) != 1 || items[0].String("url") != "a" {
		t.Fatalf("items = %v", items)
	}
	if err := r.Err(); err == nil || !strings.Contains(err.Error(), "images: item 1") {
		t.Errorf("expected item error, got %v", err)
	}
}
