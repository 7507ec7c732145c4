package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ucc-hostels/hostelfinder/internal/db"
	"github.com/ucc-hostels/hostelfinder/internal/db/memory"
	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/domain/review"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
	"github.com/ucc-hostels/hostelfinder/internal/metrics"
)

var ctx = context.Background()

func hostelFields(name string) map[string]any {
	return map[string]any{
		"name":        name,
		"location":    "Amamoma",
		"gender":      "mixed",
		"coordinates": map[string]any{"latitude": 5.119, "longitude": -1.285},
		"priceRange":  map[string]any{"min": int64(500), "max": int64(900)},
	}
}

func collect(t *testing.T) (func(Event), func() Event) {
	t.Helper()
	events := make(chan Event, 16)
	next := func() Event {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("no event delivered")
			return Event{}
		}
	}
	return func(ev Event) { events <- ev }, next
}

func TestSubscribe_HostelSnapshots(t *testing.T) {
	store := memory.NewStore()
	if err := store.Set(ctx, hostel.Collection, "h1", hostelFields("Sunrise")); err != nil {
		t.Fatal(err)
	}
	reg := New(store, nil)
	send, next := collect(t)

	if err := reg.Subscribe(ctx, "v1", Resource{Kind: KindHostel, ID: "h1"}, "", send); err != nil {
		t.Fatal(err)
	}
	defer reg.Close("v1")

	if ev := next(); ev.Hostel == nil || ev.Hostel.Name != "Sunrise" {
		t.Fatalf("unexpected first event %+v", ev)
	}
	if err := store.Set(ctx, hostel.Collection, "h1", hostelFields("Sunset")); err != nil {
		t.Fatal(err)
	}
	if ev := next(); ev.Hostel == nil || ev.Hostel.Name != "Sunset" {
		t.Fatalf("update not delivered %+v", ev)
	}
	if err := store.Delete(ctx, hostel.Collection, "h1"); err != nil {
		t.Fatal(err)
	}
	if ev := next(); !errors.Is(ev.Err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %+v", ev)
	}
}

func TestSubscribe_ReviewsAndFavorite(t *testing.T) {
	store := memory.NewStore()
	reg := New(store, nil)
	defer reg.Close("v1")

	sendReviews, nextReview := collect(t)
	if err := reg.Subscribe(ctx, "v1", Resource{Kind: KindReviews, ID: "h1"}, "", sendReviews); err != nil {
		t.Fatal(err)
	}
	if ev := nextReview(); ev.Err != nil || len(ev.Reviews) != 0 {
		t.Fatalf("unexpected first reviews event %+v", ev)
	}
	err := store.Set(ctx, review.Collection("h1"), "r1", map[string]any{
		"userId": "u1", "rating": int64(5), "createdAt": time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ev := nextReview(); len(ev.Reviews) != 1 || ev.Reviews[0].Rating != 5 {
		t.Fatalf("review not delivered %+v", ev)
	}

	sendFav, nextFav := collect(t)
	if err := reg.Subscribe(ctx, "v1", Resource{Kind: KindFavorite, ID: "h1"}, "u1", sendFav); err != nil {
		t.Fatal(err)
	}
	if ev := nextFav(); ev.Favorited == nil || *ev.Favorited {
		t.Fatalf("expected not favorited, got %+v", ev)
	}
	if err := store.Set(ctx, user.Favorites("u1"), "h1", map[string]any{"savedAt": time.Now()}); err != nil {
		t.Fatal(err)
	}
	if ev := nextFav(); ev.Favorited == nil || !*ev.Favorited {
		t.Fatalf("expected favorited, got %+v", ev)
	}
}

func TestSubscribe_Profile(t *testing.T) {
	store := memory.NewStore()
	reg := New(store, nil)
	defer reg.Close("v1")

	p := user.Profile{UID: "u1", Email: "ama@ucc.edu.gh", Name: "Ama", Role: auth.RoleUser, CreatedAt: time.Now()}
	if err := store.Set(ctx, user.Collection, "u1", p.Fields()); err != nil {
		t.Fatal(err)
	}
	send, next := collect(t)
	if err := reg.Subscribe(ctx, "v1", Resource{Kind: KindProfile, ID: "u1"}, "u1", send); err != nil {
		t.Fatal(err)
	}
	if ev := next(); ev.Profile == nil || ev.Profile.Name != "Ama" {
		t.Fatalf("unexpected first event %+v", ev)
	}
	err := store.Update(ctx, user.Collection, "u1", db.Update{Path: "displayName", Value: "Ama Mensah"})
	if err != nil {
		t.Fatal(err)
	}
	if ev := next(); ev.Profile == nil || ev.Profile.Name != "Ama Mensah" {
		t.Fatalf("update not delivered %+v", ev)
	}
}

func TestSubscribe_ReplacesPerResource(t *testing.T) {
	store := memory.NewStore()
	reg := New(store, nil)
	before := testutil.ToFloat64(metrics.LiveSubscriptions)
	res := Resource{Kind: KindHostel, ID: "h1"}
	noop := func(Event) {}

	for range 3 {
		if err := reg.Subscribe(ctx, "v1", res, "", noop); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.Subscribe(ctx, "v1", Resource{Kind: KindReviews, ID: "h1"}, "", noop); err != nil {
		t.Fatal(err)
	}
	if err := reg.Subscribe(ctx, "v2", res, "", noop); err != nil {
		t.Fatal(err)
	}

	if reg.Count("v1") != 2 || store.Watchers() != 3 {
		t.Errorf("v1 holds %d, store has %d listeners", reg.Count("v1"), store.Watchers())
	}
	if diff := testutil.ToFloat64(metrics.LiveSubscriptions) - before; diff != 3 {
		t.Errorf("gauge moved by %v, want 3", diff)
	}

	reg.Close("v1")
	if reg.Count("v1") != 0 || store.Watchers() != 1 {
		t.Errorf("after close: v1 holds %d, store has %d listeners", reg.Count("v1"), store.Watchers())
	}
	reg.Unsubscribe("v2", res)
	reg.Unsubscribe("v2", res)
	if store.Watchers() != 0 {
		t.Errorf("store still has %d listeners", store.Watchers())
	}
	if diff := testutil.ToFloat64(metrics.LiveSubscriptions) - before; diff != 0 {
		t.Errorf("gauge moved by %v, want 0", diff)
	}
}

func TestSubscribe_Rejections(t *testing.T) {
	reg := New(memory.NewStore(), nil)
	noop := func(Event) {}
	tests := []struct {
		name string
		res  Resource
		uid  string
		want error
	}{
		{"missing id", Resource{Kind: KindHostel}, "", domain.ErrInvalidInput},
		{"unknown kind", Resource{Kind: "rooms", ID: "h1"}, "", domain.ErrInvalidInput},
		{"anonymous favorite", Resource{Kind: KindFavorite, ID: "h1"}, "", domain.ErrUnauthenticated},
		{"anonymous profile", Resource{Kind: KindProfile, ID: "u1"}, "", domain.ErrUnauthenticated},
		{"other profile", Resource{Kind: KindProfile, ID: "u2"}, "u1", domain.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.Subscribe(ctx, "v1", tt.res, tt.uid, noop); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if reg.Count("v1") != 0 {
		t.Error("rejected subscriptions must not be registered")
	}
}
