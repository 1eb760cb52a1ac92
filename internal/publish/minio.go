package publish

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kiranshivaraju/scenegen/internal/config"
)

// MinIOPublisher stores images in an S3-compatible bucket. With BaseURL set
// the URL is BaseURL + "/" + object; otherwise a presigned GET URL is returned.
type MinIOPublisher struct {
	client  *minio.Client
	bucket  string
	baseURL string
	expiry  time.Duration

	mu          sync.Mutex
	bucketReady bool
}

func NewMinIOPublisher(cfg config.MinIOConfig) (*MinIOPublisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 72 * time.Hour
	}
	return &MinIOPublisher{client: client, bucket: cfg.Bucket, baseURL: cfg.BaseURL, expiry: expiry}, nil
}

func (p *MinIOPublisher) Upload(ctx context.Context, localPath, remoteName string) (string, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(remoteName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := p.client.FPutObject(ctx, p.bucket, remoteName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("%w: put %s: %v", ErrUploadFailed, remoteName, err)
	}

	if p.baseURL != "" {
		url := JoinURL(p.baseURL, remoteName)
		slog.Info("uploaded to object storage", "bucket", p.bucket, "object", remoteName, "url", url)
		return url, nil
	}

	u, err := p.client.PresignedGetObject(ctx, p.bucket, remoteName, p.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", ErrUploadFailed, remoteName, err)
	}
	slog.Info("uploaded to object storage", "bucket", p.bucket, "object", remoteName, "presigned", true)
	return u.String(), nil
}

func (p *MinIOPublisher) ensureBucket(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bucketReady {
		return nil
	}

	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", p.bucket, err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", p.bucket, err)
		}
		slog.Info("bucket created", "bucket", p.bucket)
	}
	p.bucketReady = true
	return nil
}

// Compile-time check that MinIOPublisher implements Publisher.
var _ Publisher = (*MinIOPublisher)(nil)
