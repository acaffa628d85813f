package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aussiebroadwan/folio/pkg/idx"
)

// PutObjectAPI is the slice of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads into a bucket served from a public base URL (bucket website or
// CDN in front of it).
type S3 struct {
	Client        PutObjectAPI
	Bucket        string
	Prefix        string
	PublicBaseURL string
}

// NewS3 loads the default AWS credential chain for region.
func NewS3(ctx context.Context, region, bucket, publicBaseURL string) (*S3, error) {
	if bucket == "" || publicBaseURL == "" {
		return nil, fmt.Errorf("%w: s3 needs a bucket and public base url", ErrNotConfigured)
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3{
		Client:        s3.NewFromConfig(cfg),
		Bucket:        bucket,
		Prefix:        "media",
		PublicBaseURL: publicBaseURL,
	}, nil
}

// Upload stores the file under a fresh ULID key, keeping the extension.
func (u *S3) Upload(ctx context.Context, f File) (Result, error) {
	if err := CheckImage(f); err != nil {
		return Result{}, err
	}

	// PutObject needs a seekable body to compute the payload checksum.
	body, ok := f.Body.(io.ReadSeeker)
	if !ok {
		buf, err := io.ReadAll(f.Body)
		if err != nil {
			return Result{}, fmt.Errorf("%w: read body: %v", ErrUploadFailed, err)
		}
		body = bytes.NewReader(buf)
	}

	id := strings.ToLower(idx.New().String())
	key := path.Join(u.Prefix, id+path.Ext(f.Name))

	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.Bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(f.ContentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return Result{
		URL:      strings.TrimSuffix(u.PublicBaseURL, "/") + "/" + key,
		PublicID: id,
	}, nil
}
