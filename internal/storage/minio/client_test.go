package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	minioLib "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/zeitnachricht/internal/model"
)

// fakeMinio implements minioAPI for testing without network.
type fakeMinio struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error
	madeBucket      bool

	putErr    error
	putObject string
	putBody   string
	putSize   int64

	getRC  io.ReadCloser
	getErr error

	removeErr    error
	removeObject string
}

func (f *fakeMinio) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}

func (f *fakeMinio) MakeBucket(_ context.Context, _ string, _ minioLib.MakeBucketOptions) error {
	f.madeBucket = true
	return f.makeBucketErr
}

func (f *fakeMinio) PutObject(_ context.Context, _ string, objectName string, r io.Reader, size int64, _ minioLib.PutObjectOptions) (minioLib.UploadInfo, error) {
	raw, _ := io.ReadAll(r)
	f.putObject, f.putBody, f.putSize = objectName, string(raw), size
	return minioLib.UploadInfo{}, f.putErr
}

func (f *fakeMinio) GetObject(_ context.Context, _ string, _ string, _ minioLib.GetObjectOptions) (io.ReadCloser, error) {
	return f.getRC, f.getErr
}

func (f *fakeMinio) RemoveObject(_ context.Context, _ string, objectName string, _ minioLib.RemoveObjectOptions) error {
	f.removeObject = objectName
	return f.removeErr
}

// failingReader fails on the first read the way a lazily fetched object does.
type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }
func (r failingReader) Close() error             { return nil }

var errNoSuchKey = minioLib.ErrorResponse{Code: "NoSuchKey"}

func TestNewStoreWithAPI(t *testing.T) {
	ctx := context.Background()

	t.Run("bucket exists", func(t *testing.T) {
		api := &fakeMinio{bucketExists: true}
		s, err := NewStoreWithAPI(ctx, api, "b")
		require.NoError(t, err)
		assert.Equal(t, "b", s.bucket)
		assert.False(t, api.madeBucket)
	})

	t.Run("creates bucket", func(t *testing.T) {
		api := &fakeMinio{}
		_, err := NewStoreWithAPI(ctx, api, "b")
		require.NoError(t, err)
		assert.True(t, api.madeBucket)
	})

	t.Run("exists error", func(t *testing.T) {
		s, err := NewStoreWithAPI(ctx, &fakeMinio{bucketExistsErr: errors.New("boom")}, "b")
		assert.Nil(t, s)
		assert.ErrorContains(t, err, "failed to ensure bucket exists")
	})

	t.Run("make bucket error", func(t *testing.T) {
		s, err := NewStoreWithAPI(ctx, &fakeMinio{makeBucketErr: errors.New("fail")}, "b")
		assert.Nil(t, s)
		assert.ErrorContains(t, err, "failed to create bucket")
	})
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		api      *fakeMinio
		expected string
		wantErr  error
		errText  string
	}{
		{
			name:     "success",
			api:      &fakeMinio{getRC: io.NopCloser(bytes.NewReader([]byte("token-1")))},
			expected: "token-1",
		},
		{
			name:    "missing on get",
			api:     &fakeMinio{getErr: errNoSuchKey},
			wantErr: model.ErrNotFound,
		},
		{
			name:    "missing on read",
			api:     &fakeMinio{getRC: failingReader{err: errNoSuchKey}},
			wantErr: model.ErrNotFound,
		},
		{
			name:    "get error",
			api:     &fakeMinio{getErr: errors.New("get-fail")},
			errText: "failed to get object",
		},
		{
			name:    "read error",
			api:     &fakeMinio{getRC: failingReader{err: errors.New("reset")}},
			errText: "failed to read object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{api: tt.api, bucket: "b"}
			got, err := s.Get(ctx, model.TokenKey)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				assert.ErrorContains(t, err, tt.errText)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestStore_Set(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		api := &fakeMinio{}
		s := &Store{api: api, bucket: "b"}
		require.NoError(t, s.Set(ctx, model.LanguageKey, "en"))
		assert.Equal(t, "state/language", api.putObject)
		assert.Equal(t, "en", api.putBody)
		assert.Equal(t, int64(2), api.putSize)
	})

	t.Run("error", func(t *testing.T) {
		s := &Store{api: &fakeMinio{putErr: errors.New("put-fail")}, bucket: "b"}
		assert.ErrorContains(t, s.Set(ctx, model.TokenKey, "x"), "failed to upload object")
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		api := &fakeMinio{}
		s := &Store{api: api, bucket: "b"}
		require.NoError(t, s.Delete(ctx, model.TokenKey))
		assert.Equal(t, "state/token", api.removeObject)
	})

	t.Run("absent", func(t *testing.T) {
		s := &Store{api: &fakeMinio{removeErr: errNoSuchKey}, bucket: "b"}
		assert.NoError(t, s.Delete(ctx, model.TokenKey))
	})

	t.Run("error", func(t *testing.T) {
		s := &Store{api: &fakeMinio{removeErr: errors.New("remove-fail")}, bucket: "b"}
		assert.ErrorContains(t, s.Delete(ctx, model.TokenKey), "failed to delete object")
	})
}
