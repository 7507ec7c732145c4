package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ucc-hostels/hostelfinder/internal/db"
)

type latLng struct{ lat, lng float64 }

func (p latLng) GetLatitude() float64  { return p.lat }
func (p latLng) GetLongitude() float64 { return p.lng }

func TestFromFirestore_NormalisesGeoPoints(t *testing.T) {
	got := fromFirestore(map[string]any{
		"name":        "Oguaa Hall Annex",
		"coordinates": latLng{5.1167, -1.2833},
		"nested":      map[string]any{"pin": latLng{1, 2}},
		"list":        []any{latLng{3, 4}, "x"},
	})

	coords, ok := got["coordinates"].(map[string]any)
	if !ok {
		t.Fatalf("coordinates = %T, want map", got["coordinates"])
	}
	if coords["latitude"] != 5.1167 || coords["longitude"] != -1.2833 {
		t.Errorf("coordinates = %v", coords)
	}
	pin := got["nested"].(map[string]any)["pin"].(map[string]any)
	if pin["latitude"] != 1.0 {
		t.Errorf("nested pin = %v", pin)
	}
	list := got["list"].([]any)
	if list[0].(map[string]any)["longitude"] != 4.0 || list[1] != "x" {
		t.Errorf("list = %v", list)
	}
	if got["name"] != "Oguaa Hall Annex" {
		t.Errorf("name = %v", got["name"])
	}
}

func TestToUpdates_ConvertsIncrement(t *testing.T) {
	ups := toUpdates([]db.Update{
		{Path: "views", Value: db.Increment(1)},
		{Path: "verified", Value: true},
	})
	if len(ups) != 2 || ups[0].Path != "views" || ups[1].Value != true {
		t.Fatalf("updates = %+v", ups)
	}
	if _, still := ups[0].Value.(db.Increment); still {
		t.Error("increment was not converted to a field transform")
	}
}

func TestWrap_MapsStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", status.Error(codes.NotFound, "missing"), db.ErrKeyNotFound},
		{"exists", status.Error(codes.AlreadyExists, "dup"), db.ErrKeyExists},
		{"unavailable", status.Error(codes.Unavailable, "down"), db.ErrUnavailable},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), db.ErrUnavailable},
		{"aborted", status.Error(codes.Aborted, "contention"), db.ErrAborted},
		{"precondition", status.Error(codes.FailedPrecondition, "needs index"), db.ErrInvalidQuery},
		{"context deadline", context.DeadlineExceeded, db.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap(db.OpGet, tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("wrap() = %v, want %v", err, tt.want)
			}
			var dbErr *db.Error
			if !errors.As(err, &dbErr) || dbErr.Op != db.OpGet {
				t.Errorf("expected *db.Error with op GET, got %v", err)
			}
		})
	}
}

func TestWrap_PassesThroughUnknown(t *testing.T) {
	cause := errors.New("boom")
	err := wrap(db.OpSet, cause)
	if !errors.Is(err, cause) || db.IsTransient(err) {
		t.Errorf("wrap() = %v", err)
	}
}
