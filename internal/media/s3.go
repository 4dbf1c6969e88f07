package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/edgard/companionbot/internal/config"
	"github.com/edgard/companionbot/internal/database"
)

// Uploader is the part of the S3 API used to store objects.
// The *s3.Client type satisfies this interface.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner creates time-limited GET URLs.
// The *s3.PresignClient type satisfies this interface.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Publisher uploads blocks to an S3-compatible bucket and hands out presigned URLs.
type S3Publisher struct {
	uploader  Uploader
	presigner Presigner
	bucket    string
	prefix    string
	ttl       time.Duration
}

// NewS3Publisher creates a publisher storing objects under prefix in bucket.
func NewS3Publisher(uploader Uploader, presigner Presigner, bucket, prefix string, ttl time.Duration) *S3Publisher {
	return &S3Publisher{
		uploader:  uploader,
		presigner: presigner,
		bucket:    bucket,
		prefix:    prefix,
		ttl:       ttl,
	}
}

// NewS3Client builds an S3 client from configuration. Static credentials are
// used when both keys are set, anonymous access otherwise.
func NewS3Client(cfg config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
		Credentials:  aws.AnonymousCredentials{},
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "companionbot config",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

// NewS3PublisherFromConfig wires a publisher to a real S3 client.
func NewS3PublisherFromConfig(cfg config.MediaConfig) *S3Publisher {
	client := NewS3Client(cfg.S3)
	return NewS3Publisher(client, s3.NewPresignClient(client), cfg.S3.Bucket, cfg.S3.Prefix, cfg.URLTTL)
}

func (p *S3Publisher) key(id string) string {
	if p.prefix == "" {
		return id
	}
	return p.prefix + "/" + id
}

// Publish uploads the block bytes and returns a presigned GET URL valid for the configured TTL.
func (p *S3Publisher) Publish(ctx context.Context, block *database.Block) (string, error) {
	key := p.key(block.ID)
	_, err := p.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(block.Data),
		ContentType:   aws.String(block.MimeType),
		ContentLength: aws.Int64(int64(len(block.Data))),
	})
	if err != nil {
		if code := apiErrorCode(err); code != "" {
			return "", fmt.Errorf("s3 upload %s (%s): %w", key, code, err)
		}
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}

	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return req.URL, nil
}

// apiErrorCode returns the S3 error code of err, such as "NoSuchBucket", or "".
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

var _ Publisher = (*S3Publisher)(nil)
