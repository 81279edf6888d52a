package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures an S3 compatible bucket (AWS, MinIO, R2)
type S3Config struct {
	// "http://127.0.0.1:9000"; empty uses AWS
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicBaseURL is prefixed to object keys to build URLs, e.g. a CDN
	PublicBaseURL string
	Folder        string
}

// S3Store stores media in a bucket
type S3Store struct {
	client  *s3.Client
	cfg     S3Config
	baseURL string
}

// NewS3Store connects to the bucket endpoint
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3_BUCKET is required")
	}

	client := s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
	})

	return &S3Store{client: client, cfg: cfg, baseURL: publicBaseURL(cfg)}, nil
}

func publicBaseURL(cfg S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

func (s *S3Store) Provider() string {
	return "s3"
}

func (s *S3Store) Upload(ctx context.Context, data []byte, opts UploadOptions) (*Object, error) {
	folder := opts.Folder
	if folder == "" {
		folder = s.cfg.Folder
	}
	key := objectName(folder, opts.Kind, opts.Filename)

	err := withRetry(ctx, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.cfg.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(opts.ContentType),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload failed: %w", err)
	}

	return &Object{
		URL:         s.baseURL + "/" + key,
		PublicID:    key,
		ContentType: opts.ContentType,
		Kind:        opts.Kind,
		Size:        int64(len(data)),
		Provider:    s.Provider(),
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, publicID string, _ Kind) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}
