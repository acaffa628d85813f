// Package media uploads images to a hosting provider and hands back a public
// URL. Callers keep the URL only; bytes never touch the builder's storage.
package media

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
)

// File is an image to upload.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Result is where the provider put the file.
type Result struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
}

// Uploader stores a file with a hosting provider.
type Uploader interface {
	Upload(ctx context.Context, f File) (Result, error)
}

var (
	ErrNotImage        = errors.New("media: file is not an image")
	ErrUploadFailed    = errors.New("media: upload failed")
	ErrNotConfigured   = errors.New("media: provider not configured")
	ErrUnknownProvider = errors.New("media: unknown provider")
)

// CheckImage rejects files whose declared type is not image/*.
func CheckImage(f File) error {
	if !strings.HasPrefix(strings.ToLower(f.ContentType), "image/") {
		return ErrNotImage
	}
	return nil
}

// ExtractPublicID derives a display id from a hosted URL: the last path
// segment without its extension. Returns "" when the URL cannot be parsed.
func ExtractPublicID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}
