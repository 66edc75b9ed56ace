package data

import (
	"path"
	"strings"
)

type ContentType string

const (
	ContentTypeTextPlain         ContentType = "text/plain"
	ContentTypeApplicationJSON   ContentType = "application/json"
	ContentTypeApplicationGZip   ContentType = "application/gzip"
	ContentTypeApplicationStream ContentType = "application/octet-stream"
	// Marker objects representing directories in object stores
	ContentTypeDirectory ContentType = "application/x-directory"
)

// ExtensionToMIME maps file extensions to MIME types
var ExtensionToMIME = map[string]ContentType{
	".txt":  ContentTypeTextPlain,
	".log":  ContentTypeTextPlain,
	".json": ContentTypeApplicationJSON,
	".gz":   ContentTypeApplicationGZip,
}

// GetMIMEType returns the MIME type stored along with an object at key.
// Snapshot manifests are JSON regardless of their name.
func GetMIMEType(key string) ContentType {
	if path.Base(key) == DefaultManifestName {
		return ContentTypeApplicationJSON
	}

	ext := strings.ToLower(path.Ext(key))
	if mimeType, exists := ExtensionToMIME[ext]; exists {
		return mimeType
	}

	// Default to octet-stream for unknown types
	return ContentTypeApplicationStream
}
