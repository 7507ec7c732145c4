package hostel

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
)

// MaxUploadBytes is the largest image the media CDN accepts from clients.
const MaxUploadBytes = 10 << 20

// UploadTypes are the accepted image content types.
var UploadTypes = []string{"image/jpeg", "image/png", "image/webp", "image/heic"}

// Upload is one image on its way to the media CDN.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Validate checks the type and size of u against maxBytes (MaxUploadBytes when
// non-positive).
func (u Upload) Validate(maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}
	ct := strings.ToLower(strings.TrimSpace(u.ContentType))
	if !slices.Contains(UploadTypes, ct) {
		return fmt.Errorf("content type %q: %w", u.ContentType, domain.ErrInvalidInput)
	}
	if u.Size <= 0 || u.Size > maxBytes {
		return fmt.Errorf("image of %d bytes exceeds %d: %w", u.Size, maxBytes, domain.ErrInvalidInput)
	}
	return nil
}
