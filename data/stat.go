package data

import (
	"path"
	"time"
)

// FileStat is the low-level description of a single object as reported by a
// storage backend. Directory stats carry the modification time of the
// directory itself, which advances whenever a direct child is created or removed.
type FileStat struct {
	// Key of the object, relative within the backend or absolute within a
	// MountFileSystem depending on who returned it.
	Key string `json:"key"`

	// Unix-style mode and permissions
	Mode FileMode `json:"mode"`

	// Size in bytes (0 for directories)
	Size int64 `json:"size"`

	ModifyTime time.Time `json:"modify_time"`
	CreateTime time.Time `json:"create_time"`
}

// NewFileStat creates a stat for key with both timestamps set to now.
func NewFileStat(key string, mode FileMode, now time.Time) *FileStat {
	return &FileStat{
		Key:        key,
		Mode:       mode,
		ModifyTime: now,
		CreateTime: now,
	}
}

// Name returns the last element of the key.
func (fs *FileStat) Name() string {
	if fs.Key == "" || fs.Key == "/" {
		return ""
	}

	return path.Base(fs.Key)
}

// IsDir reports whether the stat describes a directory.
func (fs *FileStat) IsDir() bool {
	return fs.Mode.IsDir()
}

// WithKey returns a copy of the stat using a different key.
// Used when translating backend-relative keys into absolute paths.
func (fs *FileStat) WithKey(key string) *FileStat {
	clone := *fs
	clone.Key = key

	return &clone
}
