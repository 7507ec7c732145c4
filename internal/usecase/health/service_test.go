package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/version"
)

// --- Mocks ---

type mockPinger struct {
	err   error
	block bool
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

// --- Tests ---

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		db         error
		prefs      PrefsPinger
		wantStatus Status
		wantChecks map[string]CheckResult
	}{
		{"all healthy", nil, &mockPinger{}, Healthy,
			map[string]CheckResult{"database": CheckOK, "prefs": CheckOK}},
		{"prefs down", nil, &mockPinger{err: errors.New("redis down")}, Degraded,
			map[string]CheckResult{"database": CheckOK, "prefs": CheckError}},
		{"database down", errors.New("unavailable"), &mockPinger{}, Unhealthy,
			map[string]CheckResult{"database": CheckError, "prefs": CheckOK}},
		{"both down", errors.New("unavailable"), &mockPinger{err: errors.New("redis down")}, Unhealthy,
			map[string]CheckResult{"database": CheckError, "prefs": CheckError}},
		{"no prefs check", nil, nil, Healthy,
			map[string]CheckResult{"database": CheckOK}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&mockPinger{err: tt.db}, tt.prefs).Check(context.Background())
			if r.Status != tt.wantStatus {
				t.Errorf("expected %q, got %q", tt.wantStatus, r.Status)
			}
			if len(r.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks = %v, want %v", r.Checks, tt.wantChecks)
			}
			for k, v := range tt.wantChecks {
				if r.Checks[k] != v {
					t.Errorf("check %s = %q, want %q", k, r.Checks[k], v)
				}
			}
		})
	}
}

func TestCheck_TimesOutHangingComponent(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{block: true})
	svc.timeout = 20 * time.Millisecond

	start := time.Now()
	r := svc.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check did not honour the timeout")
	}
	if r.Status != Degraded || r.Checks["prefs"] != CheckError {
		t.Errorf("expected degraded with prefs error, got %+v", r)
	}
	if r.Version != version.Version {
		t.Errorf("version = %q, want %q", r.Version, version.Version)
	}
}
