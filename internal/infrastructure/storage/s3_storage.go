package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/infrastructure/metrics"
)

// S3Storage mirrors media into an S3 compatible bucket (Cloudflare R2).
type S3Storage struct {
	bucket    string
	publicURL string
	client    *s3.Client
	log       zerolog.Logger
	disabled  bool
}

func NewS3Storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "r2-storage").Logger()
	storage := &S3Storage{
		bucket:    cfg.R2BucketName,
		publicURL: cfg.R2PublicURL,
		log:       logger,
	}

	if cfg.R2EndpointURL == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || storage.bucket == "" {
		logger.Info().Msg("R2 mirror is not configured; generated media will be served from upstream URLs")
		storage.disabled = true
		return storage, nil
	}
	if storage.publicURL == "" {
		logger.Warn().Msg("R2_PUBLIC_URL is not set; mirrored objects will not be returned to callers")
	}

	region := cfg.R2Region
	if region == "" {
		region = "auto"
	}
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:           cfg.R2EndpointURL,
			PartitionID:   "aws",
			SigningRegion: region,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	storage.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	logger.Info().Str("bucket", storage.bucket).Msg("R2 mirror enabled")
	return storage, nil
}

func (s *S3Storage) Backend() string { return "r2" }

// Put uploads data and returns its public URL.
func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) (string, bool, error) {
	if s.disabled || s.publicURL == "" {
		return "", false, nil
	}
	start := time.Now()
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(strings.TrimLeft(key, "/")),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String(CacheControl),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		metrics.RecordMirror(s.Backend(), "failed", time.Since(start).Seconds())
		return "", false, fmt.Errorf("put object %s: %w", key, err)
	}
	metrics.RecordMirror(s.Backend(), "success", time.Since(start).Seconds())
	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("mirrored object")
	return PublicURL(s.publicURL, key), true, nil
}

// Health performs a HeadBucket request when the mirror is enabled.
func (s *S3Storage) Health(ctx context.Context) error {
	if s.disabled {
		return nil
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
