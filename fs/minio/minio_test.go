package minio

import (
	"context"
	iofs "io/fs"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EndpointRequired(t *testing.T) {
	_, err := New("bucket")
	require.EqualError(t, err, "minio: endpoint required")
}

// TestMinioClient_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioClient_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-unifile"

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	_, err = mc.ListBuckets(ctx)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	// Ensure bucket exists
	exists, err := mc.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		err = mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		require.NoError(t, err)
	}

	client := NewFromClient(bucket, mc)

	// Put and Head
	content := "hello minio world"
	err = client.Put(ctx, "test.txt", strings.NewReader(content), int64(len(content)), false)
	require.NoError(t, err)

	size, err := client.Head(ctx, "test.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), size)

	// Ranged Get
	r, err := client.Get(ctx, "test.txt", 6, 5)
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(buf))
	require.NoError(t, r.Close())

	// Open-ended Get
	r, err = client.Get(ctx, "test.txt", 6, -1)
	require.NoError(t, err)
	buf = make([]byte, len(content)-6)
	_, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "minio world", string(buf))
	require.NoError(t, r.Close())

	// Exclusive put against an existing key
	err = client.Put(ctx, "test.txt", strings.NewReader(""), 0, true)
	assert.ErrorIs(t, err, iofs.ErrExist)

	// Streaming upload
	err = client.Upload(ctx, "stream.txt", strings.NewReader("streamed data"))
	require.NoError(t, err)

	size, err = client.Head(ctx, "stream.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(13), size)

	// List
	keys, err := client.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, keys, "test.txt")
	assert.Contains(t, keys, "stream.txt")

	// Bulk delete, then verify gone
	require.NoError(t, client.Delete(ctx, "test.txt", "stream.txt"))

	_, err = client.Head(ctx, "test.txt")
	assert.ErrorIs(t, err, iofs.ErrNotExist)

	// Absent keys are tolerated
	require.NoError(t, client.Delete(ctx, "test.txt"))
}
