package store

import "path/filepath"

// BucketPath maps a bucket name to the directory that backs it. The name is
// joined verbatim under the storage root; callers are expected to have
// validated it.
func (s *Store) BucketPath(bucket string) string {
	return filepath.Join(s.root, bucket)
}

// ObjectPath maps a (bucket, key) pair to the file that backs the object.
// Slashes in the key become directory separators, so "a/b/c.txt" resolves
// three levels deep. Intermediate directories are not created here; the
// upload path is responsible for that.
func (s *Store) ObjectPath(bucket, key string) string {
	return filepath.Join(s.BucketPath(bucket), filepath.FromSlash(key))
}
