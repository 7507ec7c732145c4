// Package cloudinary uploads hostel images to the Cloudinary media CDN using
// an unsigned upload preset and builds delivery URLs for display variants.
package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/metrics"
)

const (
	defaultBaseURL     = "https://api.cloudinary.com/v1_1"
	defaultDeliveryURL = "https://res.cloudinary.com"
	defaultFolder      = "hostels"
	defaultTimeout     = 60 * time.Second

	// Tag attached to every upload so assets can be found in the media library.
	uploadTag = "ucc-hostel-finder"
)

// Config holds the media CDN settings.
type Config struct {
	CloudName    string
	UploadPreset string
	Folder       string
	BaseURL      string
	DeliveryURL  string
}

// Client is a Cloudinary upload client.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client. CloudName and UploadPreset are required.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.CloudName == "" || cfg.UploadPreset == "" {
		return nil, fmt.Errorf("cloudinary: cloud name and upload preset are required: %w", domain.ErrInvalidInput)
	}
	if cfg.Folder == "" {
		cfg.Folder = defaultFolder
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.DeliveryURL == "" {
		cfg.DeliveryURL = defaultDeliveryURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.DeliveryURL = strings.TrimRight(cfg.DeliveryURL, "/")

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: defaultTimeout},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type uploadResponse struct {
	PublicID  string    `json:"public_id"`
	SecureURL string    `json:"secure_url"`
	CreatedAt time.Time `json:"created_at"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload sends u to the CDN under the hostel's folder.
func (c *Client) Upload(ctx context.Context, hostelID string, u hostel.Upload) (hostel.Image, error) {
	body, contentType, err := c.encode(hostelID, u)
	if err != nil {
		return hostel.Image{}, err
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.cfg.BaseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return hostel.Image{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.MediaUploadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MediaUploadsTotal.WithLabelValues("error").Inc()
		return hostel.Image{}, fmt.Errorf("upload %s: %w: %w", u.Filename, domain.ErrMutationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out uploadResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out)

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		metrics.MediaUploadsTotal.WithLabelValues("rejected").Inc()
		msg := resp.Status
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return hostel.Image{}, fmt.Errorf("upload %s: %s: %w", u.Filename, msg, domain.ErrMediaRejected)
	case resp.StatusCode >= 300:
		metrics.MediaUploadsTotal.WithLabelValues("error").Inc()
		return hostel.Image{}, fmt.Errorf("upload %s: status %d: %w", u.Filename, resp.StatusCode, domain.ErrMutationFailed)
	case decodeErr != nil:
		metrics.MediaUploadsTotal.WithLabelValues("error").Inc()
		return hostel.Image{}, fmt.Errorf("decode upload response: %w: %w", domain.ErrMutationFailed, decodeErr)
	case out.PublicID == "" || out.SecureURL == "":
		metrics.MediaUploadsTotal.WithLabelValues("error").Inc()
		return hostel.Image{}, fmt.Errorf("upload response without asset: %w", domain.ErrMutationFailed)
	}

	metrics.MediaUploadsTotal.WithLabelValues("ok").Inc()
	uploaded := out.CreatedAt
	if uploaded.IsZero() {
		uploaded = c.now()
	}
	return hostel.Image{
		URL:        out.SecureURL,
		PublicID:   out.PublicID,
		UploadedAt: uploaded.UTC(),
	}, nil
}

// encode buffers the multipart form. Uploads are bounded by the upload size limit.
func (c *Client) encode(hostelID string, u hostel.Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"upload_preset", c.cfg.UploadPreset},
		{"folder", c.cfg.Folder + "/" + hostelID},
		{"tags", uploadTag},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, u.Filename))
	h.Set("Content-Type", u.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, u.Body); err != nil {
		return nil, "", fmt.Errorf("read upload body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
