// Package review defines hostel reviews.
package review

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ucc-hostels/hostelfinder/internal/domain/docfield"
	"github.com/ucc-hostels/hostelfinder/internal/domain/validation"
)

// Subcollection is the per-hostel collection holding reviews.
const Subcollection = "reviews"

// Collection is the review collection path of one hostel.
func Collection(hostelID string) string {
	return "hostels/" + hostelID + "/" + Subcollection
}

// Comment length limits in characters.
const (
	MinCommentLength = 10
	MaxCommentLength = 1000
)

// Field names used in queries and partial writes.
const (
	FieldCreatedAt = "createdAt"
	FieldHelpful   = "helpful"
)

// Review is a typed review record.
type Review struct {
	ID         string    `json:"id"`
	HostelID   string    `json:"hostelId"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	DateStayed string    `json:"dateStayed,omitempty"`
	Duration   string    `json:"duration,omitempty"`
	RoomType   string    `json:"roomType,omitempty"`
	Verified   bool      `json:"verified"`
	Helpful    int       `json:"helpful"`
	Reported   bool      `json:"reported"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Draft is the input for writing a review.
type Draft struct {
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	DateStayed string `json:"dateStayed"`
	Duration   string `json:"duration"`
	RoomType   string `json:"roomType"`
}

// Validate returns per-field errors for d.
func (d Draft) Validate() error {
	errs := validation.Errors{}
	errs.Check("rating", d.Rating >= 1 && d.Rating <= 5, "Please select a rating between 1 and 5")
	n := utf8.RuneCountInString(strings.TrimSpace(d.Comment))
	errs.Check("comment", n >= MinCommentLength,
		fmt.Sprintf("Review must be at least %d characters", MinCommentLength))
	if n > MaxCommentLength {
		errs.Add("comment", fmt.Sprintf("Review must be at most %d characters", MaxCommentLength))
	}
	switch d.Duration {
	case "", "semester", "year", "summer", "other":
	default:
		errs.Add("duration", "Unknown stay duration")
	}
	switch d.RoomType {
	case "", "self-contained", "shared":
	default:
		errs.Add("roomType", "Unknown room type")
	}
	return errs.Err()
}

// Author identifies who writes a review.
type Author struct {
	UserID string
	Name   string
	Avatar string
}

// Fields is the document written for a new review.
func (d Draft) Fields(hostelID string, by Author, now time.Time) map[string]any {
	m := map[string]any{
		"hostelId":   hostelID,
		"userId":     by.UserID,
		"userName":   by.Name,
		"rating":     int64(d.Rating),
		"comment":    strings.TrimSpace(d.Comment),
		"dateStayed": d.DateStayed,
		"verified":   false,
		"helpful":    int64(0),
		"reported":   false,
		"createdAt":  now,
		"updatedAt":  now,
	}
	if by.Avatar != "" {
		m["userAvatar"] = by.Avatar
	}
	if d.Duration != "" {
		m["duration"] = d.Duration
	}
	if d.RoomType != "" {
		m["roomType"] = d.RoomType
	}
	return m
}

// FromDocument coerces a stored review document.
func FromDocument(hostelID, id string, fields map[string]any) (Review, error) {
	r := docfield.NewReader(fields)
	rv := Review{
		ID:         id,
		HostelID:   hostelID,
		UserID:     r.String("userId"),
		UserName:   r.OptString("userName"),
		UserAvatar: r.OptString("userAvatar"),
		Rating:     int(r.Int("rating")),
		Comment:    r.OptString("comment"),
		DateStayed: r.OptString("dateStayed"),
		Duration:   r.OptString("duration"),
		RoomType:   r.OptString("roomType"),
		Verified:   r.OptBool("verified"),
		Helpful:    int(r.OptInt("helpful")),
		Reported:   r.OptBool("reported"),
		CreatedAt:  r.OptTime("createdAt"),
		UpdatedAt:  r.OptTime("updatedAt"),
	}
	if rv.Rating < 1 || rv.Rating > 5 {
		r.Fail("rating", "out of range")
	}
	if err := r.Err(); err != nil {
		return Review{}, fmt.Errorf("review %s/%s: %w", hostelID, id, err)
	}
	return rv, nil
}

// NextAverage folds rating into an average over count earlier ratings.
func NextAverage(avg float64, count int, rating int) float64 {
	if count <= 0 {
		return float64(rating)
	}
	return (avg*float64(count) + float64(rating)) / float64(count+1)
}

// Page is one fetched batch of reviews, newest first.
type Page struct {
	Reviews []Review
	Cursor  string // opaque; see hostel.Page
	HasMore bool
}
