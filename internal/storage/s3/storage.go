package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aliskhannn/image-hosting/internal/storage"
)

const (
	originalsPrefix = "originals/"
	variantsPrefix  = "variants/"
)

// Storage provides an S3-compatible blob backend using MinIO. It mirrors the
// local filesystem backend: originals and variants live under separate key
// prefixes inside a single bucket. PutObject publishes an object atomically,
// so readers never observe partial blobs.
type Storage struct {
	client     *minio.Client
	bucketName string
}

// NewStorage creates a Storage connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// SaveOriginal uploads the as-uploaded bytes for id.
func (s *Storage) SaveOriginal(ctx context.Context, id, ext string, src io.Reader) error {
	return s.put(ctx, originalsPrefix+id+ext, src)
}

// OpenOriginal returns a reader over the original blob for id, or
// storage.ErrNotFound if it does not exist.
func (s *Storage) OpenOriginal(ctx context.Context, id, ext string) (io.ReadCloser, error) {
	return s.get(ctx, originalsPrefix+id+ext)
}

// DeleteOriginal removes the original blob. A missing object is not an error.
func (s *Storage) DeleteOriginal(ctx context.Context, id, ext string) error {
	return s.client.RemoveObject(ctx, s.bucketName, originalsPrefix+id+ext, minio.RemoveObjectOptions{})
}

// HasVariant reports whether a cached variant exists for (id, width, height).
func (s *Storage) HasVariant(ctx context.Context, id string, width, height int) bool {
	_, err := s.client.StatObject(ctx, s.bucketName, variantsPrefix+storage.VariantKey(id, width, height), minio.StatObjectOptions{})
	return err == nil
}

// OpenVariant returns a reader over the cached variant, or storage.ErrNotFound.
func (s *Storage) OpenVariant(ctx context.Context, id string, width, height int) (io.ReadCloser, error) {
	return s.get(ctx, variantsPrefix+storage.VariantKey(id, width, height))
}

// SaveVariant uploads an encoded variant.
func (s *Storage) SaveVariant(ctx context.Context, id string, width, height int, src io.Reader) error {
	return s.put(ctx, variantsPrefix+storage.VariantKey(id, width, height), src)
}

// DeleteVariants removes every cached variant belonging to id. Per-object
// errors are collected and returned joined, but do not stop deletion of the
// remaining objects.
func (s *Storage) DeleteVariants(ctx context.Context, id string) error {
	objects := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix: variantsPrefix + id + "_",
	})

	var errs []error
	for obj := range objects {
		if obj.Err != nil {
			errs = append(errs, fmt.Errorf("failed to list variants for %s: %w", id, obj.Err))
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucketName, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete variant %s: %w", path.Base(obj.Key), err))
		}
	}

	return errors.Join(errs...)
}

func (s *Storage) put(ctx context.Context, objectName string, src io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucketName, objectName, src, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", path.Base(objectName), err)
	}

	return nil
}

func (s *Storage) get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	// GetObject defers errors until the first read, so stat first to give
	// callers a usable not-found signal.
	if _, err := s.client.StatObject(ctx, s.bucketName, objectName, minio.StatObjectOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to stat %s: %w", path.Base(objectName), err)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path.Base(objectName), err)
	}

	return obj, nil
}
