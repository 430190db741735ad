package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/share-pet/share-pet/pkg/config"
)

// S3Storage keeps files in an S3 compatible bucket.
type S3Storage struct {
	bucket   string
	baseURL  string
	client   *s3.S3
	uploader *s3manager.Uploader
	log      *slog.Logger
}

// NewS3Storage opens a session for cfg. With an endpoint set, path-style
// addressing is used so MinIO and R2 work as well.
func NewS3Storage(cfg config.MediaConfig, log *slog.Logger) (*S3Storage, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" || strings.HasPrefix(baseURL, "/") {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Storage{
		bucket:   cfg.Bucket,
		baseURL:  baseURL,
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		log:      log,
	}, nil
}

func (s *S3Storage) Save(ctx context.Context, folder, filename string, body io.Reader, contentType string) (string, error) {
	key := NewKey(folder, filename)

	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   io.LimitReader(body, MaxUploadSize),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		s.log.ErrorContext(ctx, "media: upload failed", slog.String("key", key), slog.Any("error", err))
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) URL(key string) string {
	return strings.TrimSuffix(s.baseURL, "/") + "/" + key
}
