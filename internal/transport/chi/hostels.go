package chi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	domhostel "github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/domain/review"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/querycache"
	searchuc "github.com/ucc-hostels/hostelfinder/internal/usecase/search"
)

// ListResponse is one cache entry as seen by a client.
type ListResponse struct {
	Key         string             `json:"key"`
	Hostels     []domhostel.Hostel `json:"hostels"`
	Status      querycache.Status  `json:"status"`
	Pages       int                `json:"pages"`
	Loading     bool               `json:"loading"`
	LoadingMore bool               `json:"loadingMore"`
	HasMore     bool               `json:"hasMore"`
	Refreshing  bool               `json:"refreshing"`
	FetchedAt   *time.Time         `json:"fetchedAt,omitempty"`
	Bounds      *geo.Bounds        `json:"bounds,omitempty"`
	Error       *ErrorResponse     `json:"error,omitempty"`
}

func listToResponse(v querycache.View) ListResponse {
	resp := ListResponse{
		Key:         v.Key,
		Hostels:     v.Hostels,
		Status:      v.Status,
		Pages:       v.Pages,
		Loading:     v.Loading,
		LoadingMore: v.LoadingMore,
		HasMore:     v.HasMore,
		Refreshing:  v.Refreshing,
		Bounds:      searchuc.FitBounds(v.Hostels),
		Error:       errorBody(v.Err),
	}
	if resp.Hostels == nil {
		resp.Hostels = []domhostel.Hostel{}
	}
	if !v.FetchedAt.IsZero() {
		t := v.FetchedAt
		resp.FetchedAt = &t
	}
	return resp
}

// ListHostels handles GET /hostels. Without filter parameters an
// authenticated caller gets their saved filters and sort.
func (s *Server) ListHostels(w http.ResponseWriter, r *http.Request) {
	params, err := bindListHostelsParams(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	sort, err := params.sortOption()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	fp := filter.DefaultParams()
	if params.hasFilter() {
		fp = params.filterParams()
	} else if uid := callerUID(r); uid != "" {
		saved := s.Prefs.Get(r.Context(), uid)
		fp = saved.Filter
		if sort == "" {
			sort = saved.Sort
		}
	}
	f, err := filter.New(fp)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if sort == "" {
		sort = order.Default
	}

	view, err := s.Cache.Get(r.Context(), f, sort)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listToResponse(view))
}

type listKeyRequest struct {
	Key string `json:"key"`
}

func (s *Server) listKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req listKeyRequest
	if !decodeBody(w, r, &req) {
		return "", false
	}
	if req.Key == "" {
		s.handleDomainError(w, r, fmt.Errorf("list key is required: %w", domain.ErrInvalidInput))
		return "", false
	}
	return req.Key, true
}

// LoadMoreHostels handles POST /hostels/more.
func (s *Server) LoadMoreHostels(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.Cache.LoadMore)
}

// RefreshHostels handles POST /hostels/refresh.
func (s *Server) RefreshHostels(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.Cache.Refresh)
}

// RetryHostels handles POST /hostels/retry.
func (s *Server) RetryHostels(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.Cache.Retry)
}

func (s *Server) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, key string) (querycache.View, error),
) {
	key, ok := s.listKey(w, r)
	if !ok {
		return
	}
	view, err := fn(r.Context(), key)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listToResponse(view))
}

// HostelResponse is a hostel with display URLs for each image.
type HostelResponse struct {
	domhostel.Hostel
	ImageVariants map[string]map[string]string `json:"imageVariants,omitempty"`
}

func (s *Server) hostelToResponse(h domhostel.Hostel) HostelResponse {
	resp := HostelResponse{Hostel: h}
	if s.Variants == nil || len(h.Images) == 0 {
		return resp
	}
	resp.ImageVariants = make(map[string]map[string]string, len(h.Images))
	for _, img := range h.Images {
		if img.PublicID != "" {
			resp.ImageVariants[img.PublicID] = s.Variants.Variants(img.PublicID)
		}
	}
	return resp
}

// GetHostel handles GET /hostels/{hostelID}.
func (s *Server) GetHostel(w http.ResponseWriter, r *http.Request) {
	h, err := s.Hostels.Detail(r.Context(), chi.URLParam(r, "hostelID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.hostelToResponse(h))
}

// CreateHostel handles POST /hostels.
func (s *Server) CreateHostel(w http.ResponseWriter, r *http.Request) {
	var d domhostel.Draft
	if !decodeBody(w, r, &d) {
		return
	}
	h, err := s.Hostels.Create(r.Context(), d)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/hostels/"+h.ID)
	writeJSON(w, http.StatusCreated, s.hostelToResponse(h))
}

// UpdateHostel handles PATCH /hostels/{hostelID}.
func (s *Server) UpdateHostel(w http.ResponseWriter, r *http.Request) {
	var p domhostel.Patch
	if !decodeBody(w, r, &p) {
		return
	}
	h, err := s.Hostels.Update(r.Context(), chi.URLParam(r, "hostelID"), p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.hostelToResponse(h))
}

type verifyRequest struct {
	Verified bool `json:"verified"`
}

// VerifyHostel handles PUT /hostels/{hostelID}/verified.
func (s *Server) VerifyHostel(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Hostels.Verify(r.Context(), chi.URLParam(r, "hostelID"), req.Verified); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteHostel handles DELETE /hostels/{hostelID}.
func (s *Server) DeleteHostel(w http.ResponseWriter, r *http.Request) {
	if err := s.Hostels.Delete(r.Context(), chi.URLParam(r, "hostelID")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite handles POST /hostels/{hostelID}/favorite.
func (s *Server) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	favorited, err := s.Cache.ToggleFavorite(r.Context(), id.UID, chi.URLParam(r, "hostelID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorited": favorited})
}

// ListFavorites handles GET /me/favorites.
func (s *Server) ListFavorites(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	ids, err := s.Cache.Favorites(r.Context(), id.UID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"hostelIds": ids})
}

// UploadImage handles POST /hostels/{hostelID}/images as multipart with a "file" part.
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Missing file part")
		return
	}
	defer func() { _ = file.Close() }()

	h, err := s.Hostels.UploadImage(r.Context(), chi.URLParam(r, "hostelID"), domhostel.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.hostelToResponse(h))
}

// ReviewPageResponse is one page of reviews.
type ReviewPageResponse struct {
	Reviews []review.Review `json:"reviews"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"hasMore"`
}

// ListReviews handles GET /hostels/{hostelID}/reviews.
func (s *Server) ListReviews(w http.ResponseWriter, r *http.Request) {
	cursor, err := bindOptionalString(r.URL.Query(), "cursor")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	page, err := s.Hostels.Reviews(r.Context(), chi.URLParam(r, "hostelID"), cursor)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := ReviewPageResponse{Reviews: page.Reviews, Cursor: page.Cursor, HasMore: page.HasMore}
	if resp.Reviews == nil {
		resp.Reviews = []review.Review{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddReview handles POST /hostels/{hostelID}/reviews.
func (s *Server) AddReview(w http.ResponseWriter, r *http.Request) {
	var d review.Draft
	if !decodeBody(w, r, &d) {
		return
	}
	rv, err := s.Hostels.AddReview(r.Context(), chi.URLParam(r, "hostelID"), d)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

// MarkHelpful handles POST /hostels/{hostelID}/reviews/{reviewID}/helpful.
func (s *Server) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	err := s.Hostels.MarkHelpful(r.Context(), chi.URLParam(r, "hostelID"), chi.URLParam(r, "reviewID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
