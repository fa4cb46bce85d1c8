package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
)

// MetadataSuffix is appended to an object's path to form its sidecar file.
const MetadataSuffix = ".metadata"

func metadataPath(objectPath string) string {
	return objectPath + MetadataSuffix
}

func isMetadataName(name string) bool {
	return strings.HasSuffix(name, MetadataSuffix)
}

// writeSidecar persists the metadata map next to the object's data file.
// Only the inner key/value object is written, never any request envelope.
func writeSidecar(objectPath string, metadata map[string]any) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(metadataPath(objectPath), data, 0o644)
}

// readSidecar loads an object's sidecar metadata. A missing sidecar yields
// an empty map. A sidecar that exists but cannot be read or parsed yields a
// map carrying an "error" entry instead of failing the caller; read paths
// degrade, they do not fail.
func readSidecar(objectPath string) map[string]any {
	data, err := os.ReadFile(metadataPath(objectPath))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}
		}
		slog.Debug("Read metadata sidecar", "path", metadataPath(objectPath), "err", err)
		return map[string]any{"error": "error accessing metadata: " + err.Error()}
	}

	var metadata map[string]any
	if err := json.Unmarshal(data, &metadata); err != nil {
		slog.Debug("Decode metadata sidecar", "path", metadataPath(objectPath), "err", err)
		return map[string]any{"error": "metadata file exists but contains invalid JSON format"}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return metadata
}

// deleteSidecar removes an object's sidecar metadata if present. Absence is
// not an error; other failures are logged and swallowed.
func deleteSidecar(objectPath string) {
	if err := os.Remove(metadataPath(objectPath)); err != nil && !os.IsNotExist(err) {
		slog.Debug("Delete metadata sidecar", "path", metadataPath(objectPath), "err", err)
	}
}

// ReadMetadata returns the sidecar metadata for an object, following the
// degrade-don't-fail contract of readSidecar. It does not check that the
// object itself exists.
func (s *Store) ReadMetadata(bucket, key string) map[string]any {
	return readSidecar(s.ObjectPath(bucket, key))
}
