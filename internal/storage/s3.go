package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config encapsulates the connection info for AWS S3 or any S3-compatible storage.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Client implements ObjectStorage on top of minio-go.
type S3Client struct {
	client *minio.Client
	bucket string
}

// NewS3Client builds a new S3Client. When no static credentials are given the
// AWS environment, shared credentials file and instance role are tried in order.
func NewS3Client(cfg S3Config) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket must be provided")
	}

	endpoint, secure := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint must be provided")
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	var creds *credentials.Credentials
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, fmt.Errorf("s3 credentials must include both access key and secret key")
		}
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client init failed: %w", err)
	}

	return &S3Client{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// StatObject issues a HEAD request for key.
func (c *S3Client) StatObject(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, translateError("stat", key, err)
	}
	return toObjectInfo(key, info), nil
}

// GetObject downloads the full payload for key.
func (c *S3Client) GetObject(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	object, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, translateError("get", key, err)
	}
	defer object.Close()

	// minio defers the request until the first Stat/Read, so a missing key
	// surfaces here rather than from GetObject.
	info, err := object.Stat()
	if err != nil {
		return nil, ObjectInfo{}, translateError("get", key, err)
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, ObjectInfo{}, translateError("get", key, err)
	}
	return data, toObjectInfo(key, info), nil
}

// PutObject uploads data with its content type and user metadata in one request.
func (c *S3Client) PutObject(ctx context.Context, key string, data []byte, opts PutOptions) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return fmt.Errorf("s3 put %s failed: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*S3Client)(nil)

func toObjectInfo(key string, info minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:         key,
		Size:        info.Size,
		ContentType: info.ContentType,
		Metadata:    normalizeMetadata(info.UserMetadata),
	}
}

func translateError(op, key string, err error) error {
	if isMissingKey(err) {
		return fmt.Errorf("s3 %s %s: %w", op, key, ErrNotFound)
	}
	return fmt.Errorf("s3 %s %s failed: %w", op, key, err)
}

func isMissingKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// normalizeEndpoint strips a URL scheme from endpoint, since minio expects a
// bare host[:port]; an explicit scheme overrides useSSL.
func normalizeEndpoint(endpoint string, useSSL bool) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "http://"), false
	}
	endpoint = strings.TrimPrefix(endpoint, "//")
	return strings.TrimSuffix(endpoint, "/"), useSSL
}
