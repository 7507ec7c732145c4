// Package prefs defines persisted UI preferences.
package prefs

import (
	"slices"
	"strings"

	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/filter"
	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
)

// MaxRecentSearches bounds the recent search list.
const MaxRecentSearches = 10

// Theme is the colour scheme.
type Theme string

// Themes.
const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// IsValid reports whether t is a known theme.
func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// ViewMode is the result layout.
type ViewMode string

// View modes.
const (
	ViewList ViewMode = "list"
	ViewGrid ViewMode = "grid"
	ViewMap  ViewMode = "map"
)

// IsValid reports whether v is a known view mode.
func (v ViewMode) IsValid() bool {
	return v == ViewList || v == ViewGrid || v == ViewMap
}

// Prefs is one user's persisted preference state.
type Prefs struct {
	Theme              Theme          `json:"theme"`
	Sort               order.Option   `json:"sortBy"`
	ViewMode           ViewMode       `json:"viewMode"`
	Filter             filter.Params  `json:"filters"`
	RecentSearches     []string       `json:"recentSearches"`
	OnboardingSeen     bool           `json:"hasSeenOnboarding"`
	LocationPermission geo.Permission `json:"locationPermission,omitempty"`
}

// Defaults is the state of a user with nothing persisted.
func Defaults() Prefs {
	return Prefs{
		Theme:          ThemeSystem,
		Sort:           order.Default,
		ViewMode:       ViewList,
		Filter:         filter.DefaultParams(),
		RecentSearches: []string{},
	}
}

// Sanitize replaces every invalid field with its default, so persisted data
// from an older or corrupted write never reaches callers.
func (p Prefs) Sanitize() Prefs {
	d := Defaults()
	if !p.Theme.IsValid() {
		p.Theme = d.Theme
	}
	if !p.Sort.IsValid() {
		p.Sort = d.Sort
	}
	if !p.ViewMode.IsValid() {
		p.ViewMode = d.ViewMode
	}
	if _, err := filter.New(p.Filter); err != nil {
		p.Filter = d.Filter
	}
	if !p.LocationPermission.IsValid() {
		p.LocationPermission = ""
	}
	recent := []string{}
	for _, q := range slices.Backward(p.RecentSearches) {
		recent = PushRecent(recent, q)
	}
	p.RecentSearches = recent
	return p
}

// PushRecent moves q to the front of list, dropping an older occurrence and
// anything past MaxRecentSearches. Blank queries leave list unchanged.
func PushRecent(list []string, q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return list
	}
	out := make([]string, 0, min(len(list)+1, MaxRecentSearches))
	out = append(out, q)
	for _, s := range list {
		if s == q {
			continue
		}
		if len(out) == MaxRecentSearches {
			break
		}
		out = append(out, s)
	}
	return out
}
