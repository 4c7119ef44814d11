// Package snapshot persists the best-quality crop seen for each global
// person (SPEC_FULL.md §3's supplemented feature): operators reviewing a
// match want to see the actual image, not just a global_id. Grounded
// directly on the teacher's internal/storage.MinIOStore, trimmed to the
// single put/get/delete surface this needs.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/your-org/reident/internal/config"
)

// Store uploads and retrieves best-snapshot JPEGs under a key namespaced
// by global_id, one object per person; each Put replaces the previous one.
type Store struct {
	client *minio.Client
	bucket string
}

func New(cfg config.MinIOConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the snapshot bucket if it doesn't exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Key returns the canonical object key for a global person's best
// snapshot, stored on GlobalPerson.BestSnapshotKey.
func Key(globalID int64) string {
	return fmt.Sprintf("persons/%d.jpg", globalID)
}

// Put uploads a JPEG crop, overwriting any previous snapshot for the
// same global_id. It applies no quality check of its own, and neither
// cmd/server nor cmd/worker calls it.
func (s *Store) Put(ctx context.Context, globalID int64, jpeg []byte) (string, error) {
	key := Key(globalID)
	reader := bytes.NewReader(jpeg)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(jpeg)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return key, nil
}

// Get retrieves a person's best snapshot by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return data, nil
}

// Delete removes a person's snapshot by key. The Engine's cleanup task
// does not call it; no retention policy is implemented.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// Ping checks MinIO connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
