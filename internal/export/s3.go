package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config overrides the default AWS configuration chain. Empty fields
// fall back to the environment and shared config files.
type S3Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // Endpoint selects an S3 compatible store, path style
}

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer puts the record as a JSON object
type S3Writer struct {
	client s3PutAPI
	bucket string
	key    string
}

func NewS3Writer(ctx context.Context, bucket, key string, cfg *S3Config) (*S3Writer, error) {
	if cfg == nil {
		cfg = &S3Config{}
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Writer{client: client, bucket: bucket, key: key}, nil
}

func (w *S3Writer) Write(ctx context.Context, record *Record) (string, error) {
	data, err := encodeRecord(record)
	if err != nil {
		return "", err
	}

	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.bucket),
		Key:           aws.String(w.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", w.bucket, w.key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", w.bucket, w.key)
	slog.Info("export", "op", "write", "location", location, "entries", len(record.Manifest))
	return location, nil
}
