package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageKey renders the object-store key for one game. Keys are a pure
// function of their fields and injective per run. Date, when set, prefixes
// the key with a hive-style date partition.
type StorageKey struct {
	GameID int64
	Date   string
}

func (k StorageKey) Key() string {
	if k.Date != "" {
		return fmt.Sprintf("dt=%s/%d.csv", k.Date, k.GameID)
	}
	return fmt.Sprintf("%d.csv", k.GameID)
}

// ObjectStore is the minimal object-store surface the crawler needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

type MinioOptions struct {
	// EndpointURL is a http:// or https:// URL, the scheme decides SSL.
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// MinioStore implements ObjectStore against any S3-compatible endpoint.
type MinioStore struct {
	client *minio.Client
	region string
}

func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	u, err := url.Parse(opts.EndpointURL)
	if err != nil {
		return nil, fmt.Errorf("invalid object store endpoint %q: %w", opts.EndpointURL, err)
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = opts.EndpointURL
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: u.Scheme == "https",
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	return &MinioStore{client: client, region: opts.Region}, nil
}

func (s *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region})
}

func (s *MinioStore) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	return err
}

// Storage writes game tables into a destination bucket.
type Storage struct {
	store  ObjectStore
	bucket string
}

func NewStorage(store ObjectStore, bucket string) Storage {
	return Storage{store: store, bucket: bucket}
}

// Init makes sure the destination bucket exists before the crawl starts.
func (s Storage) Init(ctx context.Context) error {
	if err := s.store.EnsureBucket(ctx, s.bucket); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}
	return nil
}

// StoreGame writes data under the rendered key. Write failures propagate as
// *StorageWriteError carrying the key and the underlying cause.
func (s Storage) StoreGame(ctx context.Context, key StorageKey, data []byte) error {
	rendered := key.Key()
	if err := s.store.PutObject(ctx, s.bucket, rendered, data); err != nil {
		return &StorageWriteError{Bucket: s.bucket, Key: rendered, Err: err}
	}
	slog.InfoContext(ctx, "stored game", "key", rendered, "bucket", s.bucket, "bytes", len(data))
	return nil
}
