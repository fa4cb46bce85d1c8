package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ListObjects walks the bucket's directory tree and returns every object
// whose slash-joined key starts with prefix (all objects when prefix is
// empty). Marker files and metadata sidecars are excluded. The result is an
// unordered set; callers that need a total order sort it themselves.
func (s *Store) ListObjects(bucket, prefix string) ([]ObjectInfo, error) {
	if !s.BucketExists(bucket) {
		return nil, fmt.Errorf("list objects in bucket %q: %w", bucket, ErrBucketNotFound)
	}

	objects := make([]ObjectInfo, 0)
	if err := scanTree(s.BucketPath(bucket), "", prefix, &objects); err != nil {
		return nil, fmt.Errorf("list objects in bucket %q: %w", bucket, err)
	}
	return objects, nil
}

// scanTree recursively enumerates one directory level. accumulated is the
// slash-joined key prefix for entries at this level ("" at the bucket root,
// "a/b/" two levels down).
//
// Directories are descended only when the subtree can still contain
// matching keys. The check is two-way on purpose: a child prefix "a/"
// does not start with the filter "a/b", but the filter starts with the
// child prefix, so the walk must still descend into "a/".
func scanTree(dir, accumulated, prefix string, out *[]ObjectInfo) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// The tree can mutate under us; a directory that vanished between
		// the existence check and the walk contributes nothing.
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()

		if name == MarkerName || isMetadataName(name) {
			continue
		}

		if entry.IsDir() {
			if strings.HasPrefix(name, ".") {
				continue
			}
			childPrefix := accumulated + name + "/"
			if prefix != "" && !strings.HasPrefix(childPrefix, prefix) && !strings.HasPrefix(prefix, childPrefix) {
				continue
			}
			if err := scanTree(filepath.Join(dir, name), childPrefix, prefix, out); err != nil {
				return err
			}
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}

		key := accumulated + name
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Entry deleted mid-walk; skip it.
			continue
		}

		*out = append(*out, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	}

	return nil
}
