package data

import (
	"path"
	"strings"
)

// CleanPath normalizes an absolute path: leading slash, no trailing slash,
// no "." or ".." elements. The root is returned as "/".
func CleanPath(p string) (string, error) {
	if p == "" {
		return "", ErrInvalidPath
	}

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	return path.Clean(p), nil
}

// ToRelativePath removes the mount prefix from an absolute path and returns
// the backend key without leading slashes. Both paths must be cleaned.
func ToRelativePath(p, prefix string) string {
	if prefix == "/" || prefix == "" {
		return strings.TrimPrefix(p, "/")
	}

	if p == prefix {
		return ""
	}

	return strings.TrimPrefix(strings.TrimPrefix(p, prefix), "/")
}

// ToAbsolutePath joins a mount point with a backend key.
func ToAbsolutePath(mountPoint, key string) string {
	if key == "" {
		return mountPoint
	}

	return path.Join(mountPoint, key)
}

// HasPrefix reports whether the cleaned path p lies at or below prefix,
// respecting path element boundaries.
func HasPrefix(p, prefix string) bool {
	if prefix == "/" || prefix == "" {
		return true
	}

	if p == prefix {
		return true
	}

	return strings.HasPrefix(p, prefix+"/")
}

// ParentKey returns the parent of a backend key; the root key is "".
func ParentKey(key string) string {
	parent := path.Dir(key)
	if parent == "." || parent == "/" {
		return ""
	}

	return parent
}
