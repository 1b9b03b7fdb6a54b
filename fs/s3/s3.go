package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"
)

// deleteBatchSize is the DeleteObjects hard limit per request.
const deleteBatchSize = 1000

// API is the subset of the Amazon S3 surface the client calls. It is
// satisfied by *s3.Client and by mocks in tests.
type API interface {
	manager.UploadAPIClient

	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Options contains configuration for the S3 client.
type Options struct {
	// Region overrides the region resolved from the environment and
	// shared config.
	Region string

	// Endpoint points the client at an S3-compatible service.
	Endpoint string

	// AccessKeyID, SecretAccessKey and SessionToken configure static
	// credentials. When AccessKeyID is empty the default provider chain
	// is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// ForcePathStyle addresses the bucket by path instead of virtual
	// host. Most S3-compatible services require it.
	ForcePathStyle bool
}

// WithRegion overrides the resolved region.
func WithRegion(region string) func(*Options) {
	return func(o *Options) {
		o.Region = region
	}
}

// WithEndpoint points the client at an S3-compatible endpoint.
func WithEndpoint(endpoint string) func(*Options) {
	return func(o *Options) {
		o.Endpoint = endpoint
	}
}

// WithStaticCredentials bypasses the default credential provider chain.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) func(*Options) {
	return func(o *Options) {
		o.AccessKeyID = accessKeyID
		o.SecretAccessKey = secretAccessKey
		o.SessionToken = sessionToken
	}
}

// WithPathStyle enables path-style bucket addressing.
func WithPathStyle() func(*Options) {
	return func(o *Options) {
		o.ForcePathStyle = true
	}
}

// Client implements fs.ObjectClient on top of the AWS SDK.
type Client struct {
	api      API
	uploader *manager.Uploader
	bucket   string
}

// New creates a client for bucket, loading shared AWS configuration and
// applying any option overrides.
func New(ctx context.Context, bucket string, optFns ...func(*Options)) (*Client, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var loadFns []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadFns = append(loadFns, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadFns = append(loadFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	return NewFromAPI(bucket, api), nil
}

// NewFromAPI wraps an already-configured SDK client.
func NewFromAPI(bucket string, api API) *Client {
	return &Client{
		api:      api,
		uploader: manager.NewUploader(api),
		bucket:   bucket,
	}
}

// Head returns the object's size.
func (c *Client) Head(ctx context.Context, key string) (int64, error) {
	head, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, iofs.ErrNotExist
		}
		return 0, err
	}
	return aws.ToInt64(head.ContentLength), nil
}

// Get streams length bytes starting at off. A negative length reads to the
// end of the object.
func (c *Client) Get(ctx context.Context, key string, off, length int64) (io.ReadCloser, error) {
	var rangeHeader string
	if length < 0 {
		rangeHeader = fmt.Sprintf("bytes=%d-", off)
	} else {
		rangeHeader = fmt.Sprintf("bytes=%d-%d", off, off+length-1)
	}

	resp, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, iofs.ErrNotExist
		}
		return nil, err
	}
	return resp.Body, nil
}

// Put writes body as the object's full content in a single request. An
// exclusive put uses If-None-Match so a racing writer cannot clobber an
// existing object.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, size int64, exclusive bool) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if exclusive {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		if exclusive && isPreconditionFailed(err) {
			return iofs.ErrExist
		}
		return err
	}
	return nil
}

// Upload streams body of unknown length via multipart upload.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	return err
}

// Delete removes keys in DeleteObjects pages issued concurrently.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(keys); start += deleteBatchSize {
		batch := keys[start:min(start+deleteBatchSize, len(keys))]
		g.Go(func() error {
			return c.deleteBatch(ctx, batch)
		})
	}
	return g.Wait()
}

func (c *Client) deleteBatch(ctx context.Context, keys []string) error {
	ids := make([]types.ObjectIdentifier, len(keys))
	for i, key := range keys {
		ids[i] = types.ObjectIdentifier{Key: aws.String(key)}
	}

	out, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(c.bucket),
		Delete: &types.Delete{
			Objects: ids,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return err
	}
	if len(out.Errors) > 0 {
		e := out.Errors[0]
		return fmt.Errorf("s3: delete %q: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
	}
	return nil
}

// List returns every key under prefix in sorted order.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

func isPreconditionFailed(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
