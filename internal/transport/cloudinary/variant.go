package cloudinary

import (
	"fmt"
	"strings"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
)

// Variant is a named display size.
type Variant string

// Display variants.
const (
	Thumbnail Variant = "thumbnail"
	Card      Variant = "card"
	Detail    Variant = "detail"
	Full      Variant = "full"
	Avatar    Variant = "avatar"
)

var transforms = map[Variant]string{
	Thumbnail: "c_thumb,g_auto,w_150,h_150",
	Card:      "c_fill,g_auto,w_400,h_300",
	Detail:    "c_fill,g_auto,w_800,h_600",
	Full:      "c_scale,w_1080",
	Avatar:    "c_thumb,g_auto,w_100,h_100",
}

// URL builds the delivery URL of publicID at variant v. Unknown variants get
// only automatic quality and format.
func (c *Client) URL(publicID string, v Variant) string {
	parts := []string{c.cfg.DeliveryURL, c.cfg.CloudName, "image", "upload"}
	if t, ok := transforms[v]; ok {
		parts = append(parts, t)
	}
	parts = append(parts, "q_auto", "f_auto", strings.TrimLeft(publicID, "/"))
	return strings.Join(parts, "/")
}

// Variants returns the URL of publicID for every display variant, keyed by variant name.
func (c *Client) Variants(publicID string) map[string]string {
	out := make(map[string]string, len(transforms))
	for v := range transforms {
		out[string(v)] = c.URL(publicID, v)
	}
	return out
}

// ParseVariant maps a query value to a Variant.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transforms[v]; !ok {
		return "", fmt.Errorf("image variant %q: %w", s, domain.ErrInvalidInput)
	}
	return v, nil
}
