package data

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// DefaultManifestName is the file inside a snapshot directory that lists the
// data files referenced by the snapshot.
const DefaultManifestName = ".snapshotinfo"

// SnapshotManifest is the JSON document describing one snapshot.
type SnapshotManifest struct {
	Name  string   `json:"name"`
	Table string   `json:"table,omitempty"`
	Files []string `json:"files"`
}

// ParseManifest decodes a snapshot manifest.
func ParseManifest(buf []byte) (*SnapshotManifest, error) {
	var manifest SnapshotManifest
	if err := json.Unmarshal(buf, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot manifest: %w", err)
	}

	return &manifest, nil
}

// Marshal encodes the manifest as JSON.
func (m *SnapshotManifest) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
