package snapcache

import (
	"context"

	"github.com/mwantia/snapcache/data"
)

// FileSystem is the read-only view of the snapshot storage the cache needs.
// Missing paths must be reported with an error matching data.ErrNotExist.
type FileSystem interface {
	// Stat returns the stat of path. Directory stats must carry a ModifyTime
	// that advances whenever a direct child is created or removed.
	Stat(ctx context.Context, path string) (*data.FileStat, error)

	// ReadDir returns the direct children of the directory at path.
	ReadDir(ctx context.Context, path string) ([]*data.FileStat, error)
}

// FileReader is a FileSystem that can also return file contents.
type FileReader interface {
	FileSystem

	ReadFile(ctx context.Context, path string) ([]byte, error)
}
