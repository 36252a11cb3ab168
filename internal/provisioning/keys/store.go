package keys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/platform/s3"
	"github.com/imamik/lambda-provisioner/internal/util/naming"
)

// Store persists private keys keyed by cluster id.
type Store interface {
	Put(ctx context.Context, clusterID string, privateKey []byte) error
	// Delete removes the key. Deleting a missing key succeeds.
	Delete(ctx context.Context, clusterID string) error
	// Location describes where the key of clusterID lives.
	Location(clusterID string) string
}

// NewStore returns an S3 store when a bucket is configured, and a file store otherwise.
func NewStore(ctx context.Context, cfg config.KeysConfig) (Store, error) {
	if cfg.S3 != nil && cfg.S3.Bucket != "" {
		client, err := s3.NewClient(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client), nil
	}
	return NewFileStore(config.ExpandHome(cfg.Dir)), nil
}

// FileStore keeps one owner-only file per cluster in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Location returns the file path of the key of clusterID.
func (s *FileStore) Location(clusterID string) string {
	return filepath.Join(s.dir, clusterID)
}

// Put writes the key with mode 0600, replacing any previous key.
func (s *FileStore) Put(_ context.Context, clusterID string, privateKey []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create key directory %s: %w", s.dir, err)
	}
	p := s.Location(clusterID)
	if err := os.WriteFile(p, privateKey, FileMode); err != nil {
		return fmt.Errorf("failed to write key file %s: %w", p, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(p, FileMode); err != nil {
		return fmt.Errorf("failed to restrict key file %s: %w", p, err)
	}
	return nil
}

// Delete removes the key file.
func (s *FileStore) Delete(_ context.Context, clusterID string) error {
	p := s.Location(clusterID)
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove key file %s: %w", p, err)
	}
	return nil
}

// ObjectStore is the object storage surface the S3 store needs.
type ObjectStore interface {
	PutObject(ctx context.Context, name string, data []byte) error
	DeleteObject(ctx context.Context, name string) error
	Bucket() string
	Key(name string) string
}

// S3Store keeps keys as objects in a bucket.
type S3Store struct {
	objects ObjectStore
}

// NewS3Store creates a store over objects.
func NewS3Store(objects ObjectStore) *S3Store {
	return &S3Store{objects: objects}
}

// Location returns the s3:// URL of the key of clusterID.
func (s *S3Store) Location(clusterID string) string {
	return fmt.Sprintf("s3://%s/%s", s.objects.Bucket(), s.objects.Key(naming.PrivateKeyObject(clusterID)))
}

// Put uploads the key.
func (s *S3Store) Put(ctx context.Context, clusterID string, privateKey []byte) error {
	return s.objects.PutObject(ctx, naming.PrivateKeyObject(clusterID), privateKey)
}

// Delete removes the key object.
func (s *S3Store) Delete(ctx context.Context, clusterID string) error {
	return s.objects.DeleteObject(ctx, naming.PrivateKeyObject(clusterID))
}
