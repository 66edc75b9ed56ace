package backend

import (
	"context"

	"github.com/mwantia/snapcache/data"
)

// ObjectStorageBackend stores a hierarchy of directories and files addressed by
// slash-separated keys relative to the backend root. The root itself is "".
//
// Implementations must keep POSIX directory semantics for modification times:
// creating or deleting a direct child advances the ModifyTime of its parent
// directory. The snapshot cache relies on this to skip unchanged directories.
type ObjectStorageBackend interface {
	Backend

	// CreateObject creates a file or directory; the parent must exist.
	CreateObject(ctx context.Context, key string, mode data.FileMode) (*data.FileStat, error)

	// ReadObject reads into buf starting at offset. Returns io.EOF past the end.
	ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error)

	// WriteObject writes buf at offset, growing the object when needed.
	WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error)

	// DeleteObject removes a file or directory. Non-empty directories need force.
	DeleteObject(ctx context.Context, key string, force bool) error

	// ListObjects returns the direct children of a directory.
	ListObjects(ctx context.Context, key string) ([]*data.FileStat, error)

	// HeadObject returns the stat of a single object.
	HeadObject(ctx context.Context, key string) (*data.FileStat, error)
}
