package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/user"
)

// --- Mocks ---

type mockRepo struct {
	profiles map[string]user.Profile
	updates  int
	err      error
}

func newMockRepo() *mockRepo {
	return &mockRepo{profiles: map[string]user.Profile{
		"u1": {UID: "u1", Name: "Ama", Role: auth.RoleUser},
		"a1": {UID: "a1", Name: "Admin", Role: auth.RoleAdmin},
	}}
}

func (m *mockRepo) Get(_ context.Context, uid string) (user.Profile, error) {
	p, ok := m.profiles[uid]
	if !ok {
		return user.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, uid string, p user.Patch) error {
	if m.err != nil {
		return m.err
	}
	m.updates++
	prof := m.profiles[uid]
	if p.Name != nil {
		prof.Name = *p.Name
	}
	if p.Faculty != nil {
		prof.Faculty = *p.Faculty
	}
	m.profiles[uid] = prof
	return nil
}

func (m *mockRepo) SetRole(_ context.Context, uid string, role auth.Role) error {
	if m.err != nil {
		return m.err
	}
	prof := m.profiles[uid]
	prof.Role = role
	m.profiles[uid] = prof
	return nil
}

type mockClaims struct {
	set map[string]auth.Role
	err error
}

func (m *mockClaims) SetRoleClaim(_ context.Context, uid string, role auth.Role) error {
	if m.err != nil {
		return m.err
	}
	if m.set == nil {
		m.set = map[string]auth.Role{}
	}
	m.set[uid] = role
	return nil
}

func as(uid string, role auth.Role) context.Context {
	return auth.ContextWithIdentity(context.Background(), auth.Identity{UID: uid, Role: role})
}

func ptr[T any](v T) *T { return &v }

// --- Tests ---

func TestGet_OwnProfile(t *testing.T) {
	svc := New(newMockRepo(), nil)

	p, err := svc.Get(as("u1", auth.RoleUser))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if p.UID != "u1" || p.Name != "Ama" {
		t.Errorf("unexpected profile %+v", p)
	}
	if _, err := svc.Get(context.Background()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo := newMockRepo()
	svc := New(repo, nil)

	p, err := svc.Update(as("u1", auth.RoleUser), user.Patch{Name: ptr("Ama Mensah"), Faculty: ptr("Science")})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if p.Name != "Ama Mensah" || p.Faculty != "Science" {
		t.Errorf("unexpected profile %+v", p)
	}

	if _, err := svc.Update(as("u1", auth.RoleUser), user.Patch{Name: ptr(" ")}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Update(as("u1", auth.RoleUser), user.Patch{}); err != nil {
		t.Errorf("empty patch: %v", err)
	}
	if repo.updates != 1 {
		t.Errorf("updates = %d, want 1", repo.updates)
	}
}

func TestSetRole(t *testing.T) {
	repo := newMockRepo()
	claims := &mockClaims{}
	svc := New(repo, claims)

	if err := svc.SetRole(as("a1", auth.RoleAdmin), "u1", auth.RoleManager); err != nil {
		t.Fatalf("SetRole() error: %v", err)
	}
	if claims.set["u1"] != auth.RoleManager || repo.profiles["u1"].Role != auth.RoleManager {
		t.Errorf("claim=%q profile=%q", claims.set["u1"], repo.profiles["u1"].Role)
	}
}

func TestSetRole_Rejections(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		uid  string
		role auth.Role
		want error
	}{
		{"manager caller", as("m1", auth.RoleManager), "u1", auth.RoleManager, domain.ErrForbidden},
		{"unknown role", as("a1", auth.RoleAdmin), "u1", "owner", domain.ErrInvalidInput},
		{"self demotion", as("a1", auth.RoleAdmin), "a1", auth.RoleUser, domain.ErrForbidden},
		{"missing user", as("a1", auth.RoleAdmin), "ghost", auth.RoleManager, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := &mockClaims{}
			err := New(newMockRepo(), claims).SetRole(tt.ctx, tt.uid, tt.role)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(claims.set) != 0 {
				t.Error("rejected changes must not touch claims")
			}
		})
	}
}

func TestSetRole_ClaimFailureKeepsProfile(t *testing.T) {
	repo := newMockRepo()
	svc := New(repo, &mockClaims{err: errors.New("provider down")})

	if err := svc.SetRole(as("a1", auth.RoleAdmin), "u1", auth.RoleManager); err == nil {
		t.Fatal("expected an error")
	}
	if repo.profiles["u1"].Role != auth.RoleUser {
		t.Error("profile must not change when the claim write fails")
	}
}
