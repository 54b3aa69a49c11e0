// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package avatar

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubS3Client struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (c *stubS3Client) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.inputs = append(c.inputs, params)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads under avatars prefix with content type", func(t *testing.T) {
		client := &stubS3Client{}
		store := &S3Store{client: client, bucket: "folkvault", publicBaseURL: "https://cdn.example.com"}

		url, err := store.Save(ctx, []byte("webp-bytes"), "webp")
		require.NoError(t, err)

		require.Len(t, client.inputs, 1)
		input := client.inputs[0]
		assert.Equal(t, "folkvault", *input.Bucket)
		assert.True(t, strings.HasPrefix(*input.Key, "avatars/"))
		assert.True(t, strings.HasSuffix(*input.Key, ".webp"))
		assert.Equal(t, "image/webp", *input.ContentType)

		body, err := io.ReadAll(input.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("webp-bytes"), body)

		assert.Equal(t, "https://cdn.example.com/"+*input.Key, url)
	})

	t.Run("upload failure", func(t *testing.T) {
		client := &stubS3Client{err: assert.AnError}
		store := &S3Store{client: client, bucket: "folkvault"}

		_, err := store.Save(ctx, []byte("data"), "png")
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{})
	require.Error(t, err)
}

func TestContentTypeForExt(t *testing.T) {
	assert.Equal(t, "image/jpeg", contentTypeForExt("jpg"))
	assert.Equal(t, "image/jpeg", contentTypeForExt("JPEG"))
	assert.Equal(t, "image/png", contentTypeForExt("png"))
	assert.Equal(t, "image/webp", contentTypeForExt("webp"))
	assert.Equal(t, "application/octet-stream", contentTypeForExt("gif"))
}
