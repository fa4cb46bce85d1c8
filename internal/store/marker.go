package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MarkerName is the file placed inside a directory to record that the
// directory was explicitly created, as opposed to existing only as an
// implicit ancestor of some object's key.
const MarkerName = ".directory"

// IsDirectoryMarkerKey reports whether key denotes an S3-style "folder":
// a key ending in a slash carries no content and materializes as a
// directory plus marker instead of a data file.
func IsDirectoryMarkerKey(key string) bool {
	return strings.HasSuffix(key, "/")
}

// materializeDirectory creates the directory chain for a trailing-slash key
// and drops a marker file inside the leaf. Re-creating an existing marker
// succeeds; the marker content is refreshed.
func materializeDirectory(bucketPath, key string) error {
	dir := filepath.Join(bucketPath, filepath.FromSlash(strings.TrimSuffix(key, "/")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory for key %q: %w", key, err)
	}
	return writeMarker(dir)
}

func writeMarker(dir string) error {
	content := fmt.Sprintf("directory marker created on %s\n", time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(filepath.Join(dir, MarkerName), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write directory marker in %q: %w", dir, err)
	}
	return nil
}

// CreateDirectory handles the explicit directory-creation operation. The
// path is split on slashes and each segment is created in order if missing,
// then the marker is written at the leaf.
func (s *Store) CreateDirectory(bucket, directoryPath string) error {
	if !s.BucketExists(bucket) {
		return fmt.Errorf("create directory in bucket %q: %w", bucket, ErrBucketNotFound)
	}

	current := s.BucketPath(bucket)
	for _, part := range strings.Split(strings.Trim(directoryPath, "/"), "/") {
		if part == "" {
			continue
		}
		current = filepath.Join(current, part)
		if _, err := os.Stat(current); os.IsNotExist(err) {
			if err := os.Mkdir(current, 0o755); err != nil && !os.IsExist(err) {
				return fmt.Errorf("create directory segment %q: %w", part, err)
			}
		}
	}

	return writeMarker(current)
}
