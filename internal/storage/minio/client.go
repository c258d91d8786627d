// Package minio persists client state as objects in an S3 compatible bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dtroode/zeitnachricht/internal/model"
)

const objectPrefix = "state"

// minioAPI is the subset of *minio.Client the store uses.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}

func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}

func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (w minioClientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return w.c.RemoveObject(ctx, bucketName, objectName, opts)
}

var _ model.StateStore = (*Store)(nil)

// Store keeps one object per state key.
type Store struct {
	api    minioAPI
	bucket string
}

// Connect creates a *minio.Client from static credentials and opens a store on bucket.
func Connect(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return NewStore(ctx, client, bucket)
}

// NewStore opens a store on bucket, creating the bucket if needed.
func NewStore(ctx context.Context, client *minio.Client, bucket string) (*Store, error) {
	return NewStoreWithAPI(ctx, minioClientWrapper{c: client}, bucket)
}

// NewStoreWithAPI allows injecting a fake API.
func NewStoreWithAPI(ctx context.Context, api minioAPI, bucket string) (*Store, error) {
	s := &Store{
		api:    api,
		bucket: bucket,
	}

	if err := s.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return s, nil
}

func (s *Store) ensureBucketExists(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func objectName(key string) string {
	return path.Join(objectPrefix, key)
}

// Get reads the object for key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, objectName(key), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	// a missing object surfaces on first read
	raw, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("failed to read object: %w", err)
	}
	return string(raw), nil
}

// Set writes value as the object for key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.api.PutObject(ctx, s.bucket, objectName(key), bytes.NewReader([]byte(value)), int64(len(value)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Delete removes the object for key. Removing an absent object is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.api.RemoveObject(ctx, s.bucket, objectName(key), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
