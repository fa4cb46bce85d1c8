// Package store implements a flat, slash-delimited object-key namespace on
// top of a hierarchical filesystem tree. Buckets are directories directly
// under a storage root, objects are regular files at the path their key
// resolves to, and per-object metadata lives in ".metadata" sidecar files.
// The filesystem is the single source of truth: there is no registry,
// cache, or index, and no locking. Concurrent mutation of the same path is
// not serialized here.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"
)

// Store is a key-to-path object store rooted at a single directory.
type Store struct {
	root string
}

// New returns a Store over the given root directory. The root is created if
// missing.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

// BucketInfo describes one bucket in a listing.
type BucketInfo struct {
	Name         string
	CreationDate time.Time
}

// ObjectInfo describes one object. ContentType is a best-effort guess from
// the key's extension and is only populated by StatObject and GetObject.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// BucketExists reports whether the bucket's backing directory exists.
func (s *Store) BucketExists(bucket string) bool {
	info, err := os.Stat(s.BucketPath(bucket))
	return err == nil && info.IsDir()
}

// ObjectExists reports whether a regular file exists at the key's resolved
// path. Directories and marker files do not count, and a missing parent
// directory simply means the object does not exist.
func (s *Store) ObjectExists(bucket, key string) bool {
	info, err := os.Stat(s.ObjectPath(bucket, key))
	return err == nil && info.Mode().IsRegular()
}

// CreateBucket creates the bucket's directory and returns its creation
// timestamp. A bucket whose path already exists, whatever its kind, is a
// collision.
func (s *Store) CreateBucket(name string) (time.Time, error) {
	bucketPath := s.BucketPath(name)

	if _, err := os.Stat(bucketPath); err == nil {
		return time.Time{}, fmt.Errorf("create bucket %q: %w", name, ErrBucketExists)
	}

	if err := os.MkdirAll(bucketPath, 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return time.Time{}, fmt.Errorf("create bucket %q: permission denied on storage root: %w", name, err)
		}
		return time.Time{}, fmt.Errorf("create bucket %q: %w", name, err)
	}

	info, err := os.Stat(bucketPath)
	if err != nil {
		return time.Now().UTC(), nil
	}
	return info.ModTime().UTC(), nil
}

// Buckets lists every bucket under the storage root with its creation
// timestamp (directory mtime; Go has no portable creation-time accessor).
func (s *Store) Buckets() ([]BucketInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	buckets := make([]BucketInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		buckets = append(buckets, BucketInfo{
			Name:         entry.Name(),
			CreationDate: info.ModTime().UTC(),
		})
	}
	return buckets, nil
}

// DeleteBucket removes a bucket. Without force it fails when the bucket
// still has contents; the emptiness check is shallow and counts any
// top-level entry that is not a marker or metadata file, including
// subdirectories, even empty ones. Only the exact name ".directory" is
// treated as a marker: a user object named "foo.directory" counts as
// content. With force, all contents are removed first.
func (s *Store) DeleteBucket(name string, force bool) error {
	bucketPath := s.BucketPath(name)

	if !s.BucketExists(name) {
		return fmt.Errorf("delete bucket %q: %w", name, ErrBucketNotFound)
	}

	entries, err := os.ReadDir(bucketPath)
	if err != nil {
		return fmt.Errorf("delete bucket %q: %w", name, err)
	}

	hasObjects := false
	for _, entry := range entries {
		if isMetadataName(entry.Name()) || isMarkerName(entry.Name()) {
			continue
		}
		hasObjects = true
		break
	}

	if hasObjects && !force {
		return fmt.Errorf("delete bucket %q: %w", name, ErrBucketNotEmpty)
	}

	if force {
		for _, entry := range entries {
			if err := os.RemoveAll(filepath.Join(bucketPath, entry.Name())); err != nil {
				return fmt.Errorf("delete bucket %q: remove %q: %w", name, entry.Name(), err)
			}
		}
	} else {
		// Only marker and metadata leftovers remain at the top level.
		for _, entry := range entries {
			if err := os.Remove(filepath.Join(bucketPath, entry.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("delete bucket %q: remove %q: %w", name, entry.Name(), err)
			}
		}
	}

	if err := os.Remove(bucketPath); err != nil {
		return fmt.Errorf("delete bucket %q: %w", name, err)
	}
	return nil
}

// PutObject stores data under key, overwriting any previous object and its
// sidecar. A key ending in "/" materializes a directory marker instead of a
// data file. A sidecar write failure is logged and swallowed; the upload
// still succeeds.
func (s *Store) PutObject(bucket, key string, data []byte, metadata map[string]any) (ObjectInfo, error) {
	if !s.BucketExists(bucket) {
		return ObjectInfo{}, fmt.Errorf("put object %q in bucket %q: %w", key, bucket, ErrBucketNotFound)
	}

	if IsDirectoryMarkerKey(key) {
		if err := materializeDirectory(s.BucketPath(bucket), key); err != nil {
			return ObjectInfo{}, fmt.Errorf("put object %q in bucket %q: %w", key, bucket, err)
		}
		return ObjectInfo{Key: key, Size: 0, LastModified: time.Now().UTC()}, nil
	}

	objectPath := s.ObjectPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %q in bucket %q: %w", key, bucket, err)
	}
	if err := os.WriteFile(objectPath, data, 0o644); err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %q in bucket %q: %w", key, bucket, err)
	}

	if len(metadata) > 0 {
		if err := writeSidecar(objectPath, metadata); err != nil {
			slog.Error("Write metadata sidecar", "bucket", bucket, "key", key, "err", err)
		}
	} else {
		// An overwrite without metadata must not leave the prior upload's
		// sidecar behind.
		deleteSidecar(objectPath)
	}

	info, err := os.Stat(objectPath)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %q in bucket %q: %w", key, bucket, err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
		ContentType:  guessContentType(key),
	}, nil
}

// GetObject opens an object for reading. The caller closes the returned
// reader.
func (s *Store) GetObject(bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	if !s.BucketExists(bucket) {
		return nil, ObjectInfo{}, fmt.Errorf("get object %q from bucket %q: %w", key, bucket, ErrBucketNotFound)
	}
	if !s.ObjectExists(bucket, key) {
		return nil, ObjectInfo{}, fmt.Errorf("get object %q from bucket %q: %w", key, bucket, ErrObjectNotFound)
	}

	objectPath := s.ObjectPath(bucket, key)
	f, err := os.Open(objectPath)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("get object %q from bucket %q: %w", key, bucket, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("get object %q from bucket %q: %w", key, bucket, err)
	}

	return f, ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
		ContentType:  guessContentType(key),
	}, nil
}

// StatObject returns an object's filesystem attributes and its sidecar
// metadata. Metadata read problems degrade into the returned map rather
// than failing the call.
func (s *Store) StatObject(bucket, key string) (ObjectInfo, map[string]any, error) {
	if !s.BucketExists(bucket) {
		return ObjectInfo{}, nil, fmt.Errorf("stat object %q in bucket %q: %w", key, bucket, ErrBucketNotFound)
	}
	if !s.ObjectExists(bucket, key) {
		return ObjectInfo{}, nil, fmt.Errorf("stat object %q in bucket %q: %w", key, bucket, ErrObjectNotFound)
	}

	objectPath := s.ObjectPath(bucket, key)
	info, err := os.Stat(objectPath)
	if err != nil {
		return ObjectInfo{}, nil, fmt.Errorf("stat object %q in bucket %q: %w", key, bucket, err)
	}

	return ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
		ContentType:  guessContentType(key),
	}, readSidecar(objectPath), nil
}

// DeleteObject removes an object's data file and, best-effort, its sidecar.
func (s *Store) DeleteObject(bucket, key string) error {
	if !s.BucketExists(bucket) {
		return fmt.Errorf("delete object %q from bucket %q: %w", key, bucket, ErrBucketNotFound)
	}
	if !s.ObjectExists(bucket, key) {
		return fmt.Errorf("delete object %q from bucket %q: %w", key, bucket, ErrObjectNotFound)
	}

	objectPath := s.ObjectPath(bucket, key)
	deleteSidecar(objectPath)

	if err := os.Remove(objectPath); err != nil {
		return fmt.Errorf("delete object %q from bucket %q: %w", key, bucket, err)
	}
	return nil
}

func guessContentType(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func isMarkerName(name string) bool {
	// Exact match only. A user file that happens to end in ".directory"
	// is a real object and must block non-forced bucket deletion.
	return name == MarkerName
}
