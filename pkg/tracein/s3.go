package tracein

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/resilience"
)

// S3Config holds the connection parameters for an S3-backed log source.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DownloadTimeout time.Duration
}

// DefaultS3Config returns sensible defaults for an S3 log source.
func DefaultS3Config(bucket, region string) S3Config {
	return S3Config{Bucket: bucket, Region: region, DownloadTimeout: 5 * time.Minute}
}

// S3Source reads XES logs directly from an S3 bucket.
type S3Source struct {
	cfg     S3Config
	client  *s3.Client
	breaker *resilience.CircuitBreaker
}

// NewS3Source builds an S3Source, loading AWS credentials from the default
// chain unless explicit keys are set in cfg.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracein: failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &S3Source{
		cfg:     cfg,
		client:  s3.NewFromConfig(awsCfg, s3Opts...),
		breaker: resilience.NewCircuitBreaker().WithMaxConcurrent(64),
	}, nil
}

// FetchXES downloads the object at key and decodes it as an XES log. The
// fetch is rejected outright if the source's circuit breaker is open, so a
// batch of bad keys or memory pressure from prior fetches doesn't pile up
// concurrent downloads.
func (s *S3Source) FetchXES(ctx context.Context, key string) ([]model.EventBatch, error) {
	if !s.breaker.Allow() {
		return nil, fmt.Errorf("tracein: circuit open, refusing to fetch s3://%s/%s", s.cfg.Bucket, key)
	}
	s.breaker.Start()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DownloadTimeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.breaker.End(false)
		return nil, fmt.Errorf("tracein: failed to fetch s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	defer out.Body.Close()

	batches, err := DecodeXES(out.Body)
	s.breaker.End(err == nil)
	return batches, err
}
