package media_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/folio/pkg/media"
)

func TestExtractPublicID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v1/abc123.jpg": "abc123",
		"https://cdn.example.com/media/01hx.tar.gz":                  "01hx",
		"https://cdn.example.com/media/noext":                        "noext",
		"https://cdn.example.com/":                                   "",
		"::not a url":                                                "",
	}
	for in, want := range tests {
		require.Equal(t, want, media.ExtractPublicID(in), in)
	}
}

func TestCloudinaryUpload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/image/upload" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("upload_preset") != "portbuilder" {
			http.Error(w, "bad preset", http.StatusBadRequest)
			return
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(file)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://res.cloudinary.com/demo/" + hdr.Filename,
			"public_id":  string(body),
		})
	}))
	t.Cleanup(srv.Close)

	c := media.NewCloudinary("demo", "")
	c.Endpoint = srv.URL

	res, err := c.Upload(context.Background(), media.File{
		Name:        "me.png",
		ContentType: "image/png",
		Body:        strings.NewReader("pixels"),
	})
	require.NoError(t, err)
	require.Equal(t, "https://res.cloudinary.com/demo/me.png", res.URL)
	require.Equal(t, "pixels", res.PublicID)
}

func TestCloudinaryFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := media.NewCloudinary("demo", "preset")
	c.Endpoint = srv.URL
	img := media.File{Name: "a.png", ContentType: "image/png", Body: strings.NewReader("x")}

	_, err := c.Upload(context.Background(), img)
	require.ErrorIs(t, err, media.ErrUploadFailed)

	_, err = c.Upload(context.Background(), media.File{Name: "a.txt", ContentType: "text/plain", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, media.ErrNotImage)

	_, err = media.NewCloudinary("", "").Upload(context.Background(), img)
	require.ErrorIs(t, err, media.ErrNotConfigured)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Upload(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{}
	u := &media.S3{Client: fake, Bucket: "folio-media", Prefix: "media", PublicBaseURL: "https://cdn.example.com/"}

	res, err := u.Upload(context.Background(), media.File{
		Name:        "avatar.JPG",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg"),
	})
	require.NoError(t, err)

	key := aws.ToString(fake.input.Key)
	require.Equal(t, "folio-media", aws.ToString(fake.input.Bucket))
	require.True(t, strings.HasPrefix(key, "media/"))
	require.True(t, strings.HasSuffix(key, ".JPG"))
	require.Equal(t, "https://cdn.example.com/"+key, res.URL)
	require.Equal(t, res.PublicID, media.ExtractPublicID(res.URL))
}

func TestS3UploadError(t *testing.T) {
	t.Parallel()

	u := &media.S3{Client: &fakeS3{err: errors.New("access denied")}, Bucket: "b", PublicBaseURL: "https://cdn"}
	_, err := u.Upload(context.Background(), media.File{Name: "a.png", ContentType: "image/png", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, media.ErrUploadFailed)
}
