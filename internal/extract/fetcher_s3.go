package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xxxsen/docqa/internal/config"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type s3Fetcher struct {
	client   *s3.Client
	maxBytes int64
}

func init() {
	RegisterFetcher("s3", createS3Fetcher)
}

func createS3Fetcher(cfg config.ExtractConfig) (Fetcher, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := strings.TrimSpace(cfg.S3.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})
	return &s3Fetcher{client: client, maxBytes: cfg.MaxBytes}, nil
}

func parseS3URL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", appErr.NewValidationError("file_url", err.Error())
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", appErr.NewValidationError("file_url", "s3 url must look like s3://bucket/key")
	}
	return bucket, key, nil
}

func (f *s3Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, appErr.Upstream("s3", err)
	}
	defer out.Body.Close()
	if f.maxBytes > 0 && out.ContentLength != nil && *out.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: document is %d bytes, limit %d", appErr.ErrTooLarge, *out.ContentLength, f.maxBytes)
	}
	data, err := readLimited(out.Body, f.maxBytes)
	if err != nil {
		if errors.Is(err, appErr.ErrTooLarge) {
			return nil, err
		}
		return nil, appErr.Upstream("s3", err)
	}
	return data, nil
}
