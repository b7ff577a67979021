package lode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/justapithecus/datablast/metrics"
)

// S3Config locates transfer storage in an S3 bucket or an S3-compatible
// store such as MinIO or R2. Credentials come from the AWS default chain.
type S3Config struct {
	Bucket string
	Prefix string
	// Region overrides the region from the default chain.
	Region string
	// Endpoint replaces the AWS endpoint; it must be an absolute URL.
	Endpoint     string
	UsePathStyle bool
}

// Validate reports every problem with the configuration.
func (c *S3Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("S3 bucket is required"))
	}
	if c.Endpoint != "" {
		if u, err := url.Parse(c.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("S3 endpoint %q is not an absolute URL", c.Endpoint))
		}
	}
	return errors.Join(errs...)
}

// Location renders the bucket and prefix as an s3:// URL.
func (c *S3Config) Location() string {
	loc := "s3://" + c.Bucket
	if p := strings.Trim(c.Prefix, "/"); p != "" {
		loc += "/" + p
	}
	return loc
}

// ParseS3Path splits "bucket/prefix", "bucket" or "s3://bucket/prefix".
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(strings.TrimPrefix(path, "s3://"), "/")
	return bucket, prefix
}

func (c *S3Config) clientOptions() []func(*s3.Options) {
	endpoint, pathStyle := c.Endpoint, c.UsePathStyle
	return []func(*s3.Options){func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
		o.UsePathStyle = pathStyle
	}}
}

func newS3Factory(ctx context.Context, s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if s3cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(s3cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	api := s3.NewFromConfig(awsCfg, s3cfg.clientOptions()...)
	storeCfg := lodes3.Config{Bucket: s3cfg.Bucket, Prefix: s3cfg.Prefix}

	return func() (lode.Store, error) { return lodes3.New(api, storeCfg) }, nil
}

// NewS3Client creates a transfer storage client backed by S3.
func NewS3Client(ctx context.Context, cfg Config, s3cfg S3Config, collector *metrics.Collector) (*Client, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return NewClient(cfg, factory, s3cfg.Location(), collector)
}
