package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioGateway implements Gateway against any S3-compatible endpoint.
// Construct one at process start and inject it; handlers never build their
// own storage clients.
type MinioGateway struct {
	client *minio.Client
	bucket string
}

// Config holds connection settings for the storage bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioGateway connects to the storage endpoint and ensures the bucket
// exists.
func NewMinioGateway(ctx context.Context, cfg Config) (*MinioGateway, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioGateway{client: client, bucket: cfg.Bucket}, nil
}

func (g *MinioGateway) Exists(ctx context.Context, path string) (bool, error) {
	_, err := g.client.StatObject(ctx, g.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

func (g *MinioGateway) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, g.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (g *MinioGateway) Write(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) error {
	_, err := g.client.PutObject(ctx, g.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

func (g *MinioGateway) Copy(ctx context.Context, sourcePath, destPath string) error {
	_, err := g.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: g.bucket, Object: destPath},
		minio.CopySrcOptions{Bucket: g.bucket, Object: sourcePath},
	)
	if err != nil {
		if isNoSuchKey(err) {
			return ErrNotFound
		}
		return fmt.Errorf("copy %s -> %s: %w", sourcePath, destPath, err)
	}
	return nil
}

func (g *MinioGateway) Delete(ctx context.Context, path string) error {
	// S3 deletes are silently idempotent; stat first so callers can tell a
	// missing object apart from a successful delete.
	if _, err := g.client.StatObject(ctx, g.bucket, path, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return ErrNotFound
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := g.client.RemoveObject(ctx, g.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (g *MinioGateway) ListPrefix(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for obj := range g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, obj.Err)
		}
		objects = append(objects, ObjectInfo{
			Path:         obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			Metadata:     obj.UserMetadata,
		})
	}
	return objects, nil
}

func (g *MinioGateway) ListFolders(ctx context.Context, prefix string) ([]string, error) {
	var folders []string
	for obj := range g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list folders %s: %w", prefix, obj.Err)
		}
		if !strings.HasSuffix(obj.Key, "/") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), "/")
		if name != "" {
			folders = append(folders, name)
		}
	}
	return folders, nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == 404
}
