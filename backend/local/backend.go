package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mwantia/snapcache/backend"
	"github.com/mwantia/snapcache/data"
)

// LocalBackend exposes a directory of the host filesystem. Directory
// modification times come straight from the operating system.
type LocalBackend struct {
	mu   sync.RWMutex
	path string
}

func NewLocalBackend(path string) *LocalBackend {
	return &LocalBackend{
		path: filepath.Clean(path),
	}
}

// Name returns the identifier name defined for this backend
func (*LocalBackend) Name() string {
	return "local"
}

// Open is part of the lifecycle behaviour and gets called when mounting this backend.
func (lb *LocalBackend) Open(ctx context.Context) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	// Verify the root directory exists
	info, err := os.Stat(lb.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return data.ErrPermission
		}

		return data.ErrMountFailed
	}

	if !info.IsDir() {
		return data.ErrNotDirectory
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting this backend.
func (lb *LocalBackend) Close(ctx context.Context) error {
	// The underlying filesystem persists independently
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (lb *LocalBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityPersistent,
		},
	}
}

// resolvePath joins the backend path with the relative key.
func (lb *LocalBackend) resolvePath(key string) string {
	return filepath.Join(lb.path, filepath.FromSlash(filepath.Clean("/"+key)))
}

func toFileStat(key string, info os.FileInfo) *data.FileStat {
	return &data.FileStat{
		Key:        key,
		Mode:       data.FromFileMode(info.Mode()),
		Size:       info.Size(),
		ModifyTime: info.ModTime(),
		CreateTime: info.ModTime(),
	}
}

// mapError translates os errors into the shared sentinel errors.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return data.ErrNotExist
	case errors.Is(err, fs.ErrExist):
		return data.ErrExist
	case errors.Is(err, fs.ErrPermission):
		return data.ErrPermission
	}

	return err
}
