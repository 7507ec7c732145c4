// Package user defines user profile documents and their favorite relation.
package user

import (
	"strings"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/domain/auth"
	"github.com/ucc-hostels/hostelfinder/internal/domain/docfield"
	"github.com/ucc-hostels/hostelfinder/internal/domain/validation"
)

// Collection is the store collection holding user profiles.
const Collection = "users"

// Profile field names used in partial writes.
const (
	FieldReviewCount = "reviewCount"
	FieldSavedAt     = "savedAt"
	FieldRole        = "role"
	FieldUpdatedAt   = "updatedAt"
)

// MaxYearOfStudy is the longest programme offered.
const MaxYearOfStudy = 6

// Favorites is the favorite relation collection of one user.
func Favorites(uid string) string {
	return Collection + "/" + uid + "/favorites"
}

// Profile is the stored user document.
type Profile struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	Name        string    `json:"displayName"`
	Role        auth.Role `json:"role"`
	StudentID   string    `json:"studentId,omitempty"`
	YearOfStudy int       `json:"yearOfStudy,omitempty"`
	Faculty     string    `json:"faculty,omitempty"`
	Department  string    `json:"department,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	ReviewCount int       `json:"reviewCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Fields is the document written at signup.
func (p Profile) Fields() map[string]any {
	return map[string]any{
		"uid":         p.UID,
		"email":       p.Email,
		"displayName": p.Name,
		"role":        string(p.Role),
		"reviewCount": int64(p.ReviewCount),
		"createdAt":   p.CreatedAt,
	}
}

// FromDocument coerces a stored profile document. The role falls back to
// user when missing or unknown.
func FromDocument(uid string, fields map[string]any) (Profile, error) {
	r := docfield.NewReader(fields)
	p := Profile{
		UID:         uid,
		Email:       r.OptString("email"),
		Name:        r.OptString("displayName"),
		Role:        auth.ParseRole(fields["role"]),
		StudentID:   r.OptString("studentId"),
		YearOfStudy: int(r.OptInt("yearOfStudy")),
		Faculty:     r.OptString("faculty"),
		Department:  r.OptString("department"),
		AvatarURL:   r.OptString("avatarUrl"),
		ReviewCount: int(r.OptInt("reviewCount")),
		CreatedAt:   r.OptTime("createdAt"),
		UpdatedAt:   r.OptTime("updatedAt"),
	}
	if err := r.Err(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Patch is a self-service profile change. Nil fields are left unchanged;
// email, role and counters are not editable here.
type Patch struct {
	Name        *string `json:"displayName"`
	StudentID   *string `json:"studentId"`
	YearOfStudy *int    `json:"yearOfStudy"`
	Faculty     *string `json:"faculty"`
	Department  *string `json:"department"`
	AvatarURL   *string `json:"avatarUrl"`
}

// Validate returns per-field errors for p.
func (p Patch) Validate() error {
	errs := validation.Errors{}
	if p.Name != nil {
		errs.Check("displayName", strings.TrimSpace(*p.Name) != "", "Name is required")
	}
	if p.YearOfStudy != nil {
		errs.Check("yearOfStudy", *p.YearOfStudy >= 0 && *p.YearOfStudy <= MaxYearOfStudy,
			"Year of study must be at most 6")
	}
	if p.AvatarURL != nil && *p.AvatarURL != "" {
		errs.Check("avatarUrl", strings.HasPrefix(*p.AvatarURL, "https://"), "Avatar must be an https URL")
	}
	return errs.Err()
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.StudentID == nil && p.YearOfStudy == nil &&
		p.Faculty == nil && p.Department == nil && p.AvatarURL == nil
}

// Fields returns the document fields p sets, stamped with now.
func (p Patch) Fields(now time.Time) map[string]any {
	out := map[string]any{FieldUpdatedAt: now}
	set := func(key string, v *string) {
		if v != nil {
			out[key] = strings.TrimSpace(*v)
		}
	}
	set("displayName", p.Name)
	set("studentId", p.StudentID)
	set("faculty", p.Faculty)
	set("department", p.Department)
	set("avatarUrl", p.AvatarURL)
	if p.YearOfStudy != nil {
		out["yearOfStudy"] = int64(*p.YearOfStudy)
	}
	return out
}
