package unifile

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/hupe1980/unifile/fs"
	"github.com/hupe1980/unifile/fs/minio"
	"github.com/hupe1980/unifile/fs/s3"
)

// Schemes with a built-in backend. Plain paths and fs.SchemeFile locations
// resolve to the local backend.
const (
	SchemeS3    = "s3"
	SchemeS3A   = "s3a"
	SchemeMinIO = "minio"
)

// Property keys recognized by the object store backends. Values are plain
// strings; boolean properties accept the forms strconv.ParseBool accepts.
const (
	PropertyRegion          = "region"
	PropertyEndpoint        = "endpoint"
	PropertyAccessKeyID     = "access_key_id"
	PropertySecretAccessKey = "secret_access_key"
	PropertySessionToken    = "session_token"
	PropertyForcePathStyle  = "force_path_style"
	PropertyUseSSL          = "use_ssl"
)

// Location is a parsed file location.
type Location struct {
	// Scheme is the lowercased location scheme, empty for plain local paths.
	Scheme string

	// Host is the authority host. Object store backends read it as the
	// bucket name.
	Host string

	// Port is the authority port, 0 when absent.
	Port int

	// Path is the path component. For local locations it is the native path
	// (scheme stripped), for object locations the key without leading slash.
	Path string

	// Properties carries backend configuration accumulated on the builder.
	Properties map[string]string
}

// ParseLocation splits a location string into scheme, host and path.
//
// Strings without a scheme resolve to local paths verbatim, as do Windows
// drive paths: a single-letter scheme is never a real scheme. Scheme
// matching is case-insensitive.
func ParseLocation(raw string) (Location, error) {
	scheme := locationScheme(raw)
	if scheme == "" || len(scheme) == 1 {
		return Location{Path: raw}, nil
	}

	if scheme == fs.SchemeFile {
		return Location{Scheme: scheme, Path: raw[len(scheme)+len("://"):]}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, &ErrMalformedLocation{Location: raw, cause: err}
	}

	loc := Location{
		Scheme: scheme,
		Host:   u.Hostname(),
		Path:   strings.TrimPrefix(u.Path, "/"),
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Location{}, &ErrMalformedLocation{Location: raw, cause: err}
		}

		loc.Port = port
	}

	return loc, nil
}

// locationScheme returns the lowercased scheme of raw, or "" when raw has no
// "://" separator or the part before it is not a scheme (RFC 3986 grammar).
func locationScheme(raw string) string {
	i := strings.Index(raw, "://")
	if i < 1 {
		return ""
	}

	for j, r := range raw[:i] {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case j > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return ""
		}
	}

	return strings.ToLower(raw[:i])
}

// NewFileSystemBuilder creates a builder for the backend serving location.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration.
//
// Example:
//
//	fsys, err := unifile.NewFileSystemBuilder("s3://bucket/data/x.parquet").
//	    WithProperty("region", "us-east-1").
//	    Build(ctx)
func NewFileSystemBuilder(location string) FileSystemBuilder {
	return FileSystemBuilder{location: location}
}

// FileSystemBuilder is an immutable fluent builder for constructing
// fs.FileSystem backends from a location string.
// Each method returns a new builder with the updated configuration.
type FileSystemBuilder struct {
	location   string
	properties map[string]string
	logger     *Logger
}

// WithProperty sets a single backend property.
func (b FileSystemBuilder) WithProperty(key, value string) FileSystemBuilder {
	props := make(map[string]string, len(b.properties)+1)
	for k, v := range b.properties {
		props[k] = v
	}
	props[key] = value

	b.properties = props

	return b
}

// WithProperties merges backend properties into the builder.
func (b FileSystemBuilder) WithProperties(properties map[string]string) FileSystemBuilder {
	props := make(map[string]string, len(b.properties)+len(properties))
	for k, v := range b.properties {
		props[k] = v
	}
	for k, v := range properties {
		props[k] = v
	}

	b.properties = props

	return b
}

// WithLogger sets the structured logger for operation tracing.
func (b FileSystemBuilder) WithLogger(l *Logger) FileSystemBuilder {
	b.logger = l
	return b
}

// Build resolves the location and constructs the backend for its scheme.
// Remote client construction loads configuration, hence the context.
func (b FileSystemBuilder) Build(ctx context.Context) (fs.FileSystem, error) {
	logger := b.logger
	if logger == nil {
		logger = NoopLogger()
	}

	loc, err := ParseLocation(b.location)
	if err != nil {
		logger.LogBuild(ctx, "", b.location, err)
		return nil, err
	}

	loc.Properties = b.properties

	var fsys fs.FileSystem

	switch loc.Scheme {
	case "", fs.SchemeFile:
		fsys = fs.NewLocalFS()
	case SchemeS3, SchemeS3A:
		client, err := b.s3Client(ctx, loc)
		if err != nil {
			logger.LogBuild(ctx, loc.Scheme, b.location, err)
			return nil, err
		}

		fsys = fs.NewObjectFS(loc.Scheme, client)
	case SchemeMinIO:
		client, err := b.minioClient(loc)
		if err != nil {
			logger.LogBuild(ctx, loc.Scheme, b.location, err)
			return nil, err
		}

		fsys = fs.NewObjectFS(SchemeMinIO, client)
	default:
		err := &ErrSchemeNotSupported{Scheme: loc.Scheme}
		logger.LogBuild(ctx, loc.Scheme, b.location, err)

		return nil, err
	}

	logger.LogBuild(ctx, fsys.Scheme(), b.location, nil)

	return fsys, nil
}

// MustBuild constructs the backend, panicking on error.
func (b FileSystemBuilder) MustBuild(ctx context.Context) fs.FileSystem {
	fsys, err := b.Build(ctx)
	if err != nil {
		panic(err)
	}

	return fsys
}

func (b FileSystemBuilder) s3Client(ctx context.Context, loc Location) (*s3.Client, error) {
	var optFns []func(*s3.Options)

	if region, ok := loc.Properties[PropertyRegion]; ok {
		optFns = append(optFns, s3.WithRegion(region))
	}

	if endpoint, ok := loc.Properties[PropertyEndpoint]; ok {
		optFns = append(optFns, s3.WithEndpoint(endpoint))
	}

	if id, ok := loc.Properties[PropertyAccessKeyID]; ok {
		optFns = append(optFns, s3.WithStaticCredentials(id, loc.Properties[PropertySecretAccessKey], loc.Properties[PropertySessionToken]))
	}

	if raw, ok := loc.Properties[PropertyForcePathStyle]; ok {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &ErrInvalidProperty{Key: PropertyForcePathStyle, Value: raw, cause: err}
		}

		if enabled {
			optFns = append(optFns, s3.WithPathStyle())
		}
	}

	return s3.New(ctx, loc.Host, optFns...)
}

func (b FileSystemBuilder) minioClient(loc Location) (*minio.Client, error) {
	var optFns []func(*minio.Options)

	if endpoint, ok := loc.Properties[PropertyEndpoint]; ok {
		optFns = append(optFns, minio.WithEndpoint(endpoint))
	}

	if region, ok := loc.Properties[PropertyRegion]; ok {
		optFns = append(optFns, minio.WithRegion(region))
	}

	if id, ok := loc.Properties[PropertyAccessKeyID]; ok {
		optFns = append(optFns, minio.WithStaticCredentials(id, loc.Properties[PropertySecretAccessKey], loc.Properties[PropertySessionToken]))
	}

	if raw, ok := loc.Properties[PropertyUseSSL]; ok {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &ErrInvalidProperty{Key: PropertyUseSSL, Value: raw, cause: err}
		}

		if enabled {
			optFns = append(optFns, minio.WithSSL())
		}
	}

	return minio.New(loc.Host, optFns...)
}
