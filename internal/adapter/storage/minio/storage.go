package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	// PublicBaseURL overrides the durable URL prefix, e.g. a CDN in front of the bucket.
	PublicBaseURL string
	// PublicRead makes EnsureBucket install an anonymous read policy on images/*.
	PublicRead bool
}

type Storage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	publicRead    bool
	logger        *logger.Logger
}

func NewStorage(cfg Config, log *logger.Logger) (*Storage, error) {
	log.Info("Initializing MinIO storage", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket), zap.Bool("use_ssl", cfg.UseSSL))

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		log.Error("MinIO: failed to create client", zap.String("endpoint", cfg.Endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("%s/%s", client.EndpointURL().String(), cfg.Bucket)
	}

	return &Storage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		publicRead:    cfg.PublicRead,
		logger:        log.Named("MinIOStorage"),
	}, nil
}

// EnsureBucket creates the bucket unless it already exists and, with
// PublicRead set, opens images/* for anonymous GET so durable URLs resolve.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err == nil {
		s.logger.Info("bucket created", zap.String("bucket", s.bucket))
	} else {
		exists, errExists := s.client.BucketExists(ctx, s.bucket)
		if errExists != nil || !exists {
			s.logger.Error("failed to make or verify bucket", zap.String("bucket", s.bucket), zap.NamedError("make_bucket_error", err), zap.NamedError("check_exists_error", errExists))
			return fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", s.bucket, err, errExists)
		}
		s.logger.Info("bucket already exists", zap.String("bucket", s.bucket))
	}

	if !s.publicRead {
		return nil
	}
	policy, err := publicReadPolicy(s.bucket)
	if err != nil {
		return err
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		s.logger.Error("failed to set bucket policy", zap.String("bucket", s.bucket), zap.Error(err))
		return fmt.Errorf("failed to set public-read policy on bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("public-read policy applied", zap.String("bucket", s.bucket), zap.String("prefix", domain.ImagePrefix+"*"))
	return nil
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// publicReadPolicy grants anonymous s3:GetObject on the image prefix only.
func publicReadPolicy(bucket string) (string, error) {
	p := bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{fmt.Sprintf("arn:aws:s3:::%s/%s*", bucket, domain.ImagePrefix)},
		}},
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Storage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}
	s.logger.Debug("object uploaded", zap.String("key", info.Key), zap.String("etag", info.ETag), zap.Int64("size", info.Size))
	return nil
}

// URL returns {publicBaseURL}/{key}; it does not check that the object exists.
func (s *Storage) URL(_ context.Context, key string) (string, error) {
	return s.publicBaseURL + "/" + escapeKey(key), nil
}

func (s *Storage) PreviewURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Delete removes key. RemoveObject succeeds on a missing key, so the object
// is stat'ed first and a miss is reported as domain.ErrBlobNotFound.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			s.logger.Warn("object to delete does not exist", zap.String("bucket", s.bucket), zap.String("key", key))
			return fmt.Errorf("delete object %s from bucket %s: %w", key, s.bucket, domain.ErrBlobNotFound)
		}
		s.logger.Error("StatObject failed", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to stat object %s in bucket %s: %w", key, s.bucket, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Error("RemoveObject failed", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
