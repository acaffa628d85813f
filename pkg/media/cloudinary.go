package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultCloudinaryEndpoint is the public upload API.
const DefaultCloudinaryEndpoint = "https://api.cloudinary.com"

// DefaultUploadPreset matches the unsigned preset the web client used.
const DefaultUploadPreset = "portbuilder"

// Cloudinary uploads through an unsigned upload preset.
type Cloudinary struct {
	CloudName    string
	UploadPreset string
	Endpoint     string
	HTTPClient   *http.Client
}

// NewCloudinary returns an uploader for the given cloud. An empty preset
// falls back to DefaultUploadPreset.
func NewCloudinary(cloudName, preset string) *Cloudinary {
	if preset == "" {
		preset = DefaultUploadPreset
	}
	return &Cloudinary{
		CloudName:    cloudName,
		UploadPreset: preset,
		Endpoint:     DefaultCloudinaryEndpoint,
		HTTPClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// Upload streams the file as multipart form data.
func (c *Cloudinary) Upload(ctx context.Context, f File) (Result, error) {
	if c.CloudName == "" {
		return Result{}, fmt.Errorf("%w: missing cloudinary cloud name", ErrNotConfigured)
	}
	if err := CheckImage(f); err != nil {
		return Result{}, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeCloudinaryForm(mw, f, c.UploadPreset))
	}()

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", strings.TrimSuffix(c.Endpoint, "/"), c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var out cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrUploadFailed, err)
	}
	if out.SecureURL == "" {
		return Result{}, fmt.Errorf("%w: response has no url", ErrUploadFailed)
	}

	return Result{URL: out.SecureURL, PublicID: out.PublicID}, nil
}

func writeCloudinaryForm(mw *multipart.Writer, f File, preset string) error {
	name := f.Name
	if name == "" {
		name = "upload"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return err
	}
	if err := mw.WriteField("upload_preset", preset); err != nil {
		return err
	}
	return mw.Close()
}
