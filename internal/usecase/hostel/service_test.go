package hostel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	domreview "github.com/ucc-hostels/hostelfinder/internal/domain/review"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
)

// --- Mocks ---

type mockRepo struct {
	hostel      domhostel.Hostel
	getErr      error
	viewsErr    error
	views       int
	createdBy   string
	createErr   error
	verified    *bool
	deleted     string
	appended    []domhostel.Image
	updated     *domhostel.Draft
	mutationErr error
}

func (m *mockRepo) Get(_ context.Context, id string) (domhostel.Hostel, error) {
	if m.getErr != nil {
		return domhostel.Hostel{}, m.getErr
	}
	h := m.hostel
	h.ID = id
	return h, nil
}

func (m *mockRepo) IncrementViews(_ context.Context, _ string) error {
	if m.viewsErr != nil {
		return m.viewsErr
	}
	m.views++
	return nil
}

func (m *mockRepo) Create(_ context.Context, _ domhostel.Draft, createdBy string) (string, error) {
	m.createdBy = createdBy
	return "new", m.createErr
}

func (m *mockRepo) Update(_ context.Context, _ string, d domhostel.Draft) error {
	if m.mutationErr != nil {
		return m.mutationErr
	}
	m.updated = &d
	m.hostel.Name = d.Name
	m.hostel.Price = domhostel.PriceRange{Min: d.PriceMin, Max: d.PriceMax, Currency: domhostel.Currency}
	return nil
}

func (m *mockRepo) SetVerified(_ context.Context, _ string, verified bool) error {
	m.verified = &verified
	return m.mutationErr
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.deleted = id
	return m.mutationErr
}

func (m *mockRepo) AppendImage(_ context.Context, id string, img domhostel.Image) (domhostel.Hostel, error) {
	m.appended = append(m.appended, img)
	h := m.hostel
	h.ID = id
	h.Images = append(h.Images, img)
	return h, m.mutationErr
}

type mockReviews struct {
	page     domreview.Page
	pageSize int
	cursor   string
	author   domreview.Author
	addErr   error
	helpful  int
}

func (m *mockReviews) List(_ context.Context, _ string, pageSize int, cursor string) (domreview.Page, error) {
	m.pageSize, m.cursor = pageSize, cursor
	return m.page, nil
}

func (m *mockReviews) Add(_ context.Context, hostelID string, d domreview.Draft, by domreview.Author) (domreview.Review, error) {
	m.author = by
	return domreview.Review{ID: "r1", HostelID: hostelID, Rating: d.Rating}, m.addErr
}

func (m *mockReviews) MarkHelpful(_ context.Context, _, _ string) error {
	m.helpful++
	return nil
}

type mockCache struct{ invalidations int }

func (m *mockCache) InvalidateAll() { m.invalidations++ }

type mockMedia struct {
	folder string
	err    error
}

func (m *mockMedia) Upload(_ context.Context, hostelID string, _ domhostel.Upload) (domhostel.Image, error) {
	m.folder = hostelID
	return domhostel.Image{URL: "https://cdn/x.jpg", PublicID: "hostels/x"}, m.err
}

func as(uid string, role auth.Role) context.Context {
	return auth.ContextWithIdentity(context.Background(), auth.Identity{UID: uid, Name: "Ama", Role: role})
}

func validDraft() domhostel.Draft {
	return domhostel.Draft{
		Name:        "Sunrise Hostel",
		Location:    "Amamoma",
		Coordinates: geo.Point{Lat: 5.1190, Lng: -1.2850},
		Gender:      filter.Mixed,
		PriceMin:    500,
		PriceMax:    900,
	}
}

func jpeg() domhostel.Upload {
	return domhostel.Upload{Filename: "room.jpg", ContentType: "image/jpeg", Size: 2048, Body: strings.NewReader("x")}
}

// --- Tests ---

func TestDetail_CountsView(t *testing.T) {
	repo := &mockRepo{hostel: domhostel.Hostel{Views: 4}}
	svc := New(repo, &mockReviews{}, nil)

	h, err := svc.Detail(context.Background(), "h1")
	if err != nil {
		t.Fatal(err)
	}
	if repo.views != 1 || h.Views != 5 {
		t.Errorf("views: repo=%d returned=%d", repo.views, h.Views)
	}
}

func TestDetail_ViewFailureIgnored(t *testing.T) {
	repo := &mockRepo{hostel: domhostel.Hostel{Views: 4}, viewsErr: domain.ErrMutationFailed}
	svc := New(repo, &mockReviews{}, nil)

	h, err := svc.Detail(context.Background(), "h1")
	if err != nil {
		t.Fatalf("a failed view count must not fail the read: %v", err)
	}
	if h.Views != 4 {
		t.Errorf("views = %d", h.Views)
	}
}

func TestDetail_NotFound(t *testing.T) {
	svc := New(&mockRepo{getErr: domain.ErrNotFound}, &mockReviews{}, nil)
	if _, err := svc.Detail(context.Background(), "h1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate(t *testing.T) {
	repo := &mockRepo{}
	cache := &mockCache{}
	svc := New(repo, &mockReviews{}, cache)

	h, err := svc.Create(as("m1", auth.RoleManager), validDraft())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if h.ID != "new" || repo.createdBy != "m1" || cache.invalidations != 1 {
		t.Errorf("id=%s createdBy=%s invalidations=%d", h.ID, repo.createdBy, cache.invalidations)
	}
}

func TestCreate_Rejections(t *testing.T) {
	bad := validDraft()
	bad.Name = ""
	tests := []struct {
		name  string
		ctx   context.Context
		draft domhostel.Draft
		want  error
	}{
		{"anonymous", context.Background(), validDraft(), domain.ErrUnauthenticated},
		{"student", as("u1", auth.RoleUser), validDraft(), domain.ErrForbidden},
		{"invalid draft", as("m1", auth.RoleManager), bad, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockRepo{}, &mockReviews{}, nil)
			if _, err := svc.Create(tt.ctx, tt.draft); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAdminOperations(t *testing.T) {
	repo := &mockRepo{}
	cache := &mockCache{}
	svc := New(repo, &mockReviews{}, cache)

	if err := svc.Verify(as("m1", auth.RoleManager), "h1", true); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("managers must not verify, got %v", err)
	}
	if err := svc.Verify(as("a1", auth.RoleAdmin), "h1", true); err != nil {
		t.Fatal(err)
	}
	if repo.verified == nil || !*repo.verified {
		t.Error("verification not stored")
	}
	if err := svc.Delete(as("a1", auth.RoleAdmin), "h1"); err != nil {
		t.Fatal(err)
	}
	if repo.deleted != "h1" || cache.invalidations != 2 {
		t.Errorf("deleted=%s invalidations=%d", repo.deleted, cache.invalidations)
	}
}

func TestAdminOperations_FailureKeepsCache(t *testing.T) {
	cache := &mockCache{}
	svc := New(&mockRepo{mutationErr: domain.ErrMutationFailed}, &mockReviews{}, cache)
	if err := svc.Delete(as("a1", auth.RoleAdmin), "h1"); !errors.Is(err, domain.ErrMutationFailed) {
		t.Errorf("expected ErrMutationFailed, got %v", err)
	}
	if cache.invalidations != 0 {
		t.Error("a failed write must not invalidate")
	}
}

func TestReviews(t *testing.T) {
	reviews := &mockReviews{page: domreview.Page{HasMore: true, Cursor: "r9"}}
	svc := New(&mockRepo{}, reviews, nil, WithReviewPageSize(5))

	p, err := svc.Reviews(context.Background(), "h1", "r4")
	if err != nil {
		t.Fatal(err)
	}
	if reviews.pageSize != 5 || reviews.cursor != "r4" || !p.HasMore {
		t.Errorf("pageSize=%d cursor=%s page=%+v", reviews.pageSize, reviews.cursor, p)
	}
}

func TestAddReview(t *testing.T) {
	reviews := &mockReviews{}
	cache := &mockCache{}
	svc := New(&mockRepo{}, reviews, cache)
	d := domreview.Draft{Rating: 4, Comment: "Clean rooms and steady water"}

	if _, err := svc.AddReview(context.Background(), "h1", d); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	r, err := svc.AddReview(as("u1", auth.RoleUser), "h1", d)
	if err != nil {
		t.Fatal(err)
	}
	if r.Rating != 4 || reviews.author.UserID != "u1" || reviews.author.Name != "Ama" || cache.invalidations != 1 {
		t.Errorf("review=%+v author=%+v invalidations=%d", r, reviews.author, cache.invalidations)
	}

	if _, err := svc.AddReview(as("u1", auth.RoleUser), "h1", domreview.Draft{Rating: 6, Comment: "short"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMarkHelpful_CountsRepeats(t *testing.T) {
	reviews := &mockReviews{}
	svc := New(&mockRepo{}, reviews, nil)
	ctx := as("u1", auth.RoleUser)
	_ = svc.MarkHelpful(ctx, "h1", "r1")
	_ = svc.MarkHelpful(ctx, "h1", "r1")
	if reviews.helpful != 2 {
		t.Errorf("helpful = %d, want 2", reviews.helpful)
	}
}

func TestUploadImage(t *testing.T) {
	repo := &mockRepo{hostel: domhostel.Hostel{CreatedBy: "m1"}}
	media := &mockMedia{}
	cache := &mockCache{}
	svc := New(repo, &mockReviews{}, cache, WithMedia(media, 0))

	h, err := svc.UploadImage(as("m1", auth.RoleManager), "h1", jpeg())
	if err != nil {
		t.Fatalf("UploadImage() error: %v", err)
	}
	if len(h.Images) != 1 || h.Images[0].PublicID != "hostels/x" || media.folder != "h1" || cache.invalidations != 1 {
		t.Errorf("images=%+v folder=%s invalidations=%d", h.Images, media.folder, cache.invalidations)
	}

	if _, err := svc.UploadImage(as("m2", auth.RoleManager), "h1", jpeg()); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("another manager must be forbidden, got %v", err)
	}
	if _, err := svc.UploadImage(as("a1", auth.RoleAdmin), "h1", jpeg()); err != nil {
		t.Errorf("admins may upload to any hostel: %v", err)
	}

	gif := jpeg()
	gif.ContentType = "image/gif"
	if _, err := svc.UploadImage(as("m1", auth.RoleManager), "h1", gif); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUploadImage_Disabled(t *testing.T) {
	svc := New(&mockRepo{}, &mockReviews{}, nil)
	if _, err := svc.UploadImage(as("m1", auth.RoleManager), "h1", jpeg()); !errors.Is(err, domain.ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}
}

func TestUploadImage_CDNFailure(t *testing.T) {
	repo := &mockRepo{hostel: domhostel.Hostel{CreatedBy: "m1"}}
	svc := New(repo, &mockReviews{}, nil, WithMedia(&mockMedia{err: domain.ErrMediaRejected}, 0))
	if _, err := svc.UploadImage(as("m1", auth.RoleManager), "h1", jpeg()); !errors.Is(err, domain.ErrMediaRejected) {
		t.Errorf("expected ErrMediaRejected, got %v", err)
	}
	if len(repo.appended) != 0 {
		t.Error("nothing may be attached after a failed upload")
	}
}

func TestUpdate(t *testing.T) {
	repo := &mockRepo{hostel: domhostel.Hostel{
		Name: "Sunrise Hostel", Location: "Amamoma", Gender: filter.Mixed, CreatedBy: "m1",
		Coordinates: geo.Point{Lat: 5.1190, Lng: -1.2850},
		Price:       domhostel.PriceRange{Min: 500, Max: 900},
	}}
	cache := &mockCache{}
	svc := New(repo, &mockReviews{}, cache)

	name, hi := "Sunset Hostel", 1200
	h, err := svc.Update(as("m1", auth.RoleManager), "h1", domhostel.Patch{Name: &name, PriceMax: &hi})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if h.Name != name || h.Price.Max != 1200 || cache.invalidations != 1 {
		t.Errorf("hostel=%+v invalidations=%d", h, cache.invalidations)
	}
	if repo.updated == nil || repo.updated.Location != "Amamoma" || repo.updated.PriceMin != 500 {
		t.Errorf("unpatched fields must be kept, wrote %+v", repo.updated)
	}
}

func TestUpdate_Rejections(t *testing.T) {
	repo := &mockRepo{hostel: domhostel.Hostel{
		Name: "Sunrise Hostel", Location: "Amamoma", Gender: filter.Mixed, CreatedBy: "m1",
		Price: domhostel.PriceRange{Min: 500, Max: 900},
	}}
	cache := &mockCache{}
	svc := New(repo, &mockReviews{}, cache)
	name := "Mine now"

	if _, err := svc.Update(as("u1", auth.RoleUser), "h1", domhostel.Patch{Name: &name}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("students must be forbidden, got %v", err)
	}
	if _, err := svc.Update(as("m2", auth.RoleManager), "h1", domhostel.Patch{Name: &name}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("another manager must be forbidden, got %v", err)
	}
	lo := 1000
	if _, err := svc.Update(as("a1", auth.RoleAdmin), "h1", domhostel.Patch{PriceMin: &lo}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("a patch breaking the price range must be rejected, got %v", err)
	}
	if repo.updated != nil || cache.invalidations != 0 {
		t.Error("rejected edits must not write")
	}
}
