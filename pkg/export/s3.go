package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/backer/pkg/observability"
)

// DefaultURLExpiry is how long presigned export URLs stay valid
const DefaultURLExpiry = 15 * time.Minute

// S3Config configures the export bucket
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	URLExpiry    time.Duration
}

// Uploader stores an export and returns a URL to download it
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Uploader uploads exports to S3 or an S3 compatible store
type S3Uploader struct {
	client    putObjectAPI
	presigner presignAPI
	bucket    string
	expiry    time.Duration
}

// NewS3Uploader creates an uploader from static credentials when given, or
// the default AWS credential chain otherwise
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}

	return &S3Uploader{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		expiry:    expiry,
	}, nil
}

// Upload puts body under key and returns a presigned GET URL
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) (_ string, err error) {
	ctx, span := observability.StartSpan(ctx, "S3.PutObject",
		attribute.String("s3.bucket", u.bucket),
		attribute.String("s3.key", key),
		attribute.Int("content.size", len(body)),
	)
	defer func() { observability.EndSpan(span, err) }()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	req, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(u.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign export: %w", err)
	}

	return req.URL, nil
}

// ObjectKey returns the storage key of an organization export
func ObjectKey(organizationID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("exports/%s/%s.csv", organizationID, at.UTC().Format("20060102T150405Z"))
}
