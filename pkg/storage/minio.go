package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds configuration for a MinIO bucket.
type MinIOConfig struct {
	Endpoint     string `mapstructure:"endpoint"` // host:port, no scheme
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	PublicURL    string `mapstructure:"public_url"`
	CreateBucket bool   `mapstructure:"create_bucket"`
}

// MinIOStorage implements Storage with the MinIO client.
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOStorage creates the client and, if asked, the bucket.
func NewMinIOStorage(ctx context.Context, cfg MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	if cfg.CreateBucket {
		if err := ensureBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinIOStorage{client: client, bucket: cfg.Bucket, publicURL: cfg.PublicURL}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

// Write stores content from the reader with the given key.
func (s *MinIOStorage) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// Read retrieves content for the given key.
func (s *MinIOStorage) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	return obj, nil
}

// ObjectURL returns publicURL/key, or endpoint/bucket/key.
func (s *MinIOStorage) ObjectURL(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.publicURL, "/"), key)
	}
	if endpoint := s.client.EndpointURL(); endpoint != nil {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(endpoint.String(), "/"), s.bucket, key)
	}
	return fmt.Sprintf("/%s/%s", s.bucket, key)
}

// Bucket returns the bucket name.
func (s *MinIOStorage) Bucket() string {
	return s.bucket
}
