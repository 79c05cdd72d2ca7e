package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/softiel/backend/internal/config"
	"go.uber.org/zap"
)

// MinIOClient stores generated export files.
type MinIOClient struct {
	client      *minio.Client
	bucket      string
	presignHost string
}

func NewMinIOClient(ctx context.Context, cfg config.MinIOConfig, log *zap.Logger) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		if log != nil {
			log.Info("bucket created", zap.String("bucket", cfg.Bucket))
		}
	}

	return &MinIOClient{
		client:      client,
		bucket:      cfg.Bucket,
		presignHost: cfg.PresignHost,
	}, nil
}

func (m *MinIOClient) PutObject(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectKey, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	return nil
}

// GetPresignedGetURL returns a time-limited download link. The host is
// rewritten to the public presign host when one is configured.
func (m *MinIOClient) GetPresignedGetURL(ctx context.Context, objectKey, filename string, expiry time.Duration) (string, error) {
	reqParams := make(url.Values)
	if filename != "" {
		reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	presignedURL, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return rewriteHost(presignedURL, m.presignHost), nil
}

func rewriteHost(u *url.URL, host string) string {
	if host != "" && u.Host != host {
		u.Host = host
	}
	return u.String()
}

func (m *MinIOClient) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *MinIOClient) DeleteObject(ctx context.Context, objectKey string) error {
	return m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{})
}
