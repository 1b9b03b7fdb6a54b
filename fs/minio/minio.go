package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options contains configuration for the MinIO client.
type Options struct {
	// Endpoint is the host:port of the service. Required.
	Endpoint string

	// UseSSL selects https transport.
	UseSSL bool

	// AccessKeyID, SecretAccessKey and SessionToken configure static
	// credentials. When AccessKeyID is empty the MinIO environment
	// variable chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Region pins the bucket region, skipping lookup.
	Region string
}

// WithEndpoint sets the service endpoint.
func WithEndpoint(endpoint string) func(*Options) {
	return func(o *Options) {
		o.Endpoint = endpoint
	}
}

// WithSSL enables https transport.
func WithSSL() func(*Options) {
	return func(o *Options) {
		o.UseSSL = true
	}
}

// WithStaticCredentials bypasses the environment credential chain.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) func(*Options) {
	return func(o *Options) {
		o.AccessKeyID = accessKeyID
		o.SecretAccessKey = secretAccessKey
		o.SessionToken = sessionToken
	}
}

// WithRegion pins the bucket region.
func WithRegion(region string) func(*Options) {
	return func(o *Options) {
		o.Region = region
	}
}

// Client implements fs.ObjectClient for MinIO and S3-compatible storage.
type Client struct {
	mc     *minio.Client
	bucket string
}

// New creates a client for bucket on the configured endpoint.
func New(bucket string, optFns ...func(*Options)) (*Client, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Endpoint == "" {
		return nil, errors.New("minio: endpoint required")
	}

	var creds *credentials.Credentials
	if opts.AccessKeyID != "" {
		creds = credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
	} else {
		creds = credentials.NewEnvMinio()
	}

	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: new client: %w", err)
	}

	return NewFromClient(bucket, mc), nil
}

// NewFromClient wraps an already-configured MinIO client.
func NewFromClient(bucket string, mc *minio.Client) *Client {
	return &Client{mc: mc, bucket: bucket}
}

// Head returns the object's size.
func (c *Client) Head(ctx context.Context, key string) (int64, error) {
	info, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return 0, iofs.ErrNotExist
		}
		return 0, err
	}
	return info.Size, nil
}

// Get streams length bytes starting at off. A negative length reads to the
// end of the object. The request is forced eagerly via Stat so absence
// surfaces here rather than on the first Read.
func (c *Client) Get(ctx context.Context, key string, off, length int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	switch {
	case length >= 0:
		if err := opts.SetRange(off, off+length-1); err != nil {
			return nil, err
		}
	case off > 0:
		if err := opts.SetRange(off, 0); err != nil {
			return nil, err
		}
	}

	obj, err := c.mc.GetObject(ctx, c.bucket, key, opts)
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNotFound(err) {
			return nil, iofs.ErrNotExist
		}
		return nil, err
	}
	return obj, nil
}

// Put writes body as the object's full content in a single request. An
// exclusive put sends If-None-Match so a racing writer cannot clobber an
// existing object.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, size int64, exclusive bool) error {
	opts := minio.PutObjectOptions{}
	if exclusive {
		opts.SetMatchETagExcept("*")
	}

	if _, err := c.mc.PutObject(ctx, c.bucket, key, body, size, opts); err != nil {
		if exclusive && isPreconditionFailed(err) {
			return iofs.ErrExist
		}
		return err
	}
	return nil
}

// Upload streams body of unknown length as a multipart upload.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, body, -1, minio.PutObjectOptions{})
	return err
}

// Delete removes keys. Absent keys are not an error.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	switch len(keys) {
	case 0:
		return nil
	case 1:
		err := c.mc.RemoveObject(ctx, c.bucket, keys[0], minio.RemoveObjectOptions{})
		if err != nil && !isNotFound(err) {
			return err
		}
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	for rErr := range c.mc.RemoveObjects(ctx, c.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil && !isNotFound(rErr.Err) {
			return fmt.Errorf("minio: remove %q: %w", rErr.ObjectName, rErr.Err)
		}
	}
	return nil
}

// List returns every key under prefix in sorted order.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func isNotFound(err error) bool {
	errResp := minio.ToErrorResponse(err)
	return errResp.Code == "NoSuchKey" || errResp.Code == "NotFound"
}

func isPreconditionFailed(err error) bool {
	return minio.ToErrorResponse(err).Code == "PreconditionFailed"
}
