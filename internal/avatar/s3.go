// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package avatar

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/samber/oops"
)

// S3Config holds the settings for an S3-compatible avatar bucket.
// Endpoint is optional; set it for MinIO or another non-AWS endpoint.
type S3Config struct {
	Region        string
	Endpoint      string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// s3Client is the subset of the S3 API the store uses, extracted so tests
// can stub uploads without a live bucket.
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes avatars to an S3-compatible bucket under an avatars/
// prefix and returns public URLs.
type S3Store struct {
	client        s3Client
	bucket        string
	publicBaseURL string
}

// NewS3Store creates an S3Store from static credentials.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, oops.Errorf("s3 bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, oops.Code("AVATAR_STORAGE_FAILED").
			With("operation", "load aws config").
			Wrap(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO serves buckets by path, not virtual host.
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Save uploads data under a random key and returns its public URL.
func (s *S3Store) Save(ctx context.Context, data []byte, ext string) (string, error) {
	key := "avatars/" + randomFilename(ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeForExt(ext)),
	})
	if err != nil {
		return "", oops.Code("AVATAR_STORAGE_FAILED").
			With("operation", "put object").
			With("bucket", s.bucket).
			With("key", key).
			Wrap(err)
	}

	return s.publicBaseURL + "/" + key, nil
}

// contentTypeForExt maps an accepted avatar extension to its MIME type.
func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Compile-time interface check.
var _ Store = (*S3Store)(nil)
