package backup

import (
	"encoding/json"
	"fmt"
	"strings"
)

func marshalMetadata(meta Metadata) ([]byte, error) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot metadata: %w", err)
	}
	return data, nil
}

// ParseMetadata decodes a metadata document.
func ParseMetadata(data []byte) (Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("decode snapshot metadata: %w", err)
	}
	if meta.SnapshotID == "" {
		return Metadata{}, fmt.Errorf("snapshot metadata has no snapshot_id")
	}
	return meta, nil
}

// SnapshotIDFromObject extracts the snapshot id from a metadata object
// name, or "" when the name is not a metadata document.
func SnapshotIDFromObject(name string) string {
	if !strings.HasSuffix(name, "_metadata.json") {
		return ""
	}
	return strings.TrimSuffix(name, "_metadata.json")
}
