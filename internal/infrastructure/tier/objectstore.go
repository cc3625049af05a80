package tier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hszk-dev/framegrab/internal/domain/model"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

const objectTierName = "object"

// objectPrefix namespaces frame artifacts within the bucket.
const objectPrefix = "frames/"

const metadataContentType = "application/json"

// objectReader abstracts minio.Object for testability.
// *minio.Object satisfies this interface.
type objectReader interface {
	io.ReadCloser
	Stat() (minio.ObjectInfo, error)
}

// minioClient defines the interface for MinIO operations.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// minioClientAdapter wraps *minio.Client to implement minioClient.
// Needed because *minio.Client.GetObject returns *minio.Object, while the
// interface returns objectReader for testability.
type minioClientAdapter struct {
	client *minio.Client
}

func (a *minioClientAdapter) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.client.BucketExists(ctx, bucketName)
}

func (a *minioClientAdapter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (a *minioClientAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
	return a.client.GetObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.client.StatObject(ctx, bucketName, objectName, opts)
}

// ObjectStoreConfig holds configuration for the object-storage tier.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectStore is the durable, cross-host cache tier backed by S3-compatible
// object storage. Same key layout as the file tier ({key}.img +
// {key}.meta.json) under the frames/ prefix. Higher latency and failure rate
// than the other tiers: lookups that fail for infrastructure reasons surface
// ErrTierUnavailable, which callers treat as a miss.
type ObjectStore struct {
	client minioClient
	bucket string
}

// Compile-time verification that ObjectStore implements repository.Tier.
var _ repository.Tier = (*ObjectStore)(nil)

// NewObjectStore creates an object-storage tier.
// It verifies the bucket exists during initialization to fail fast on
// misconfiguration.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return newObjectStoreWithClient(ctx, &minioClientAdapter{client: client}, cfg.Bucket)
}

// newObjectStoreWithClient creates an ObjectStore with a given minioClient.
// Used for dependency injection in tests.
func newObjectStoreWithClient(ctx context.Context, client minioClient, bucket string) (*ObjectStore, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
	}

	return &ObjectStore{
		client: client,
		bucket: bucket,
	}, nil
}

// Lookup fetches the entry from object storage. The metadata object is
// checked first as the publish signal; a missing metadata or image object is
// a miss, any other failure is ErrTierUnavailable.
func (s *ObjectStore) Lookup(ctx context.Context, key string) (*model.CacheEntry, error) {
	metaBytes, err := s.readObject(ctx, s.metadataKey(key))
	if err != nil {
		return nil, err
	}

	var meta model.Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata for %s: %w", key, err)
	}

	image, err := s.readObject(ctx, s.imageKey(key))
	if err != nil {
		return nil, err
	}

	return &model.CacheEntry{
		Key:      key,
		Image:    image,
		Metadata: meta,
	}, nil
}

// Store uploads the entry: image object first, metadata object second, so a
// reader that finds metadata is guaranteed to find the image (read-after-write
// consistency at key granularity is assumed of the backing store).
func (s *ObjectStore) Store(ctx context.Context, key string, entry *model.CacheEntry) error {
	if err := s.putObject(ctx, s.imageKey(key), entry.Image, entry.Metadata.ContentType); err != nil {
		return fmt.Errorf("store image: %w", err)
	}

	metaBytes, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if err := s.putObject(ctx, s.metadataKey(key), metaBytes, metadataContentType); err != nil {
		return fmt.Errorf("store metadata: %w", err)
	}

	return nil
}

// Name implements repository.Tier.
func (s *ObjectStore) Name() string {
	return objectTierName
}

// Ping verifies the connection is alive by checking bucket access.
func (s *ObjectStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("ping object storage: %w", err)
	}
	return nil
}

func (s *ObjectStore) imageKey(key string) string {
	return objectPrefix + key + imageSuffix
}

func (s *ObjectStore) metadataKey(key string) string {
	return objectPrefix + key + metadataSuffix
}

func (s *ObjectStore) readObject(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", repository.ErrTierUnavailable, name, err)
	}
	defer obj.Close()

	// GetObject returns a lazy reader that doesn't fail until read;
	// Stat distinguishes a missing key from an unreachable store.
	if _, err := obj.Stat(); err != nil {
		if isNoSuchKey(err) {
			return nil, repository.ErrEntryNotFound
		}
		return nil, fmt.Errorf("%w: stat %s: %v", repository.ErrTierUnavailable, name, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", repository.ErrTierUnavailable, name, err)
	}
	return data, nil
}

func (s *ObjectStore) putObject(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", repository.ErrTierUnavailable, name, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
