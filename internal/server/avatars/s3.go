// Package avatars stores profile pictures in S3-compatible object storage.
// Uploads are cropped to a fixed square before they are stored.
package avatars

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
)

// Size is the width and height of stored avatars in pixels.
const Size = 250

const contentType = "image/png"

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Host uploads avatars to one bucket and returns their public URLs.
type S3Host struct {
	client   s3API
	bucket   string
	endpoint string
	now      func() time.Time
}

// NewS3Host builds the S3 client from static credentials and the
// configured endpoint. Path-style addressing keeps MinIO happy.
func NewS3Host(ctx context.Context, cfg *config.Config) (*S3Host, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3Host(client, cfg.S3Bucket, cfg.S3BaseEndpoint), nil
}

func newS3Host(client s3API, bucket, endpoint string) *S3Host {
	return &S3Host{
		client:   client,
		bucket:   bucket,
		endpoint: strings.TrimRight(endpoint, "/"),
		now:      time.Now,
	}
}

// Upload crops the image read from r and stores it as avatars/<publicID>.png.
// An undecodable image is a validation error; storage failures are
// reported as common.ErrImageHost.
func (h *S3Host) Upload(ctx context.Context, publicID string, r io.Reader) (string, error) {
	body, err := thumbnail(r)
	if err != nil {
		return "", err
	}

	key := "avatars/" + publicID + ".png"
	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object: %w", common.ErrImageHost, err)
	}

	// version suffix busts client caches after re-upload under the same key
	return fmt.Sprintf("%s/%s/%s?v=%d", h.endpoint, h.bucket, key, h.now().Unix()), nil
}

func thumbnail(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", common.ErrValidation, err)
	}

	img = imaging.Fill(img, Size, Size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
