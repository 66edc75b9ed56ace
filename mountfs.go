package snapcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/snapcache/backend"
	"github.com/mwantia/snapcache/data"
	"github.com/mwantia/snapcache/log"
)

const readChunkSize = 64 * 1024

// MountFileSystem resolves absolute paths onto storage backends mounted at
// absolute mount points. The longest matching mount point wins.
type MountFileSystem struct {
	mu     sync.RWMutex
	log    *log.Logger
	mounts map[string]*mountEntry
}

type mountEntry struct {
	backend backend.ObjectStorageBackend
	info    MountInfo
}

// MountInfo provides metadata about a mounted backend.
type MountInfo struct {
	Path      string    // Mount point path (e.g., "/snapshots")
	Backend   string    // Name of the mounted backend
	ReadOnly  bool      // Whether the mount rejects modifications
	MountedAt time.Time // When the mount was created
}

// MountOption configures mount behavior.
type MountOption func(*MountInfo)

// WithReadOnly sets whether the mount is read-only.
func WithReadOnly(ro bool) MountOption {
	return func(info *MountInfo) {
		info.ReadOnly = ro
	}
}

func NewMountFileSystem(logger *log.Logger) *MountFileSystem {
	if logger == nil {
		logger = log.NewDiscardLogger()
	}

	return &MountFileSystem{
		log:    logger,
		mounts: make(map[string]*mountEntry),
	}
}

// Mount opens b and makes it available below path.
func (m *MountFileSystem) Mount(ctx context.Context, path string, b backend.ObjectStorageBackend, opts ...MountOption) error {
	path, err := data.CleanPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[path]; exists {
		return fmt.Errorf("%w: %s", data.ErrAlreadyMounted, path)
	}

	if !b.GetCapabilities().Contains(backend.CapabilityObjectStorage) {
		return fmt.Errorf("%w: backend '%s' provides no object storage", data.ErrBackendUnsupported, b.Name())
	}

	if err := b.Open(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", data.ErrMountFailed, path, err)
	}

	info := MountInfo{
		Path:      path,
		Backend:   b.Name(),
		MountedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&info)
	}

	m.mounts[path] = &mountEntry{
		backend: b,
		info:    info,
	}

	m.log.Debug("Mounted backend '%s' at '%s'", b.Name(), path)
	return nil
}

// Unmount closes and removes the backend mounted at path.
// Returns ErrNotMounted if the path is not mounted.
// Returns ErrMountBusy if child mounts exist.
func (m *MountFileSystem) Unmount(ctx context.Context, path string) error {
	path, err := data.CleanPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.mounts[path]
	if !exists {
		return fmt.Errorf("%w: %s", data.ErrNotMounted, path)
	}

	if m.hasChildMounts(path) {
		return fmt.Errorf("%w: %s has child mounts", data.ErrMountBusy, path)
	}

	delete(m.mounts, path)
	if err := entry.backend.Close(ctx); err != nil {
		return fmt.Errorf("failed to close backend '%s': %w", entry.info.Backend, err)
	}

	m.log.Debug("Unmounted backend '%s' from '%s'", entry.info.Backend, path)
	return nil
}

// Mounts returns information about all mounts, sorted by path.
func (m *MountFileSystem) Mounts() []MountInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]MountInfo, 0, len(m.mounts))
	for _, entry := range m.mounts {
		infos = append(infos, entry.info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Path < infos[j].Path
	})
	return infos
}

// Shutdown closes every mounted backend, deepest mount points first.
func (m *MountFileSystem) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.mounts))
	for path := range m.mounts {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		return strings.Count(paths[i], "/") > strings.Count(paths[j], "/")
	})

	errs := &data.Errors{}
	for _, path := range paths {
		entry := m.mounts[path]
		if err := entry.backend.Close(ctx); err != nil {
			errs.Add(fmt.Errorf("failed to close backend '%s' at '%s': %w", entry.info.Backend, path, err))
		}
		delete(m.mounts, path)
	}

	return errs.Errors()
}

func (m *MountFileSystem) resolve(path string) (*mountEntry, string, error) {
	path, err := data.CleanPath(path)
	if err != nil {
		return nil, "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.mounts) == 0 {
		return nil, "", fmt.Errorf("%w: no mounts configured", data.ErrNotMounted)
	}

	// Find longest matching mount point
	var bestMatch string
	for mountPoint := range m.mounts {
		if data.HasPrefix(path, mountPoint) && len(mountPoint) > len(bestMatch) {
			bestMatch = mountPoint
		}
	}

	if bestMatch == "" {
		return nil, "", fmt.Errorf("%w: no mount for path %s", data.ErrNotMounted, path)
	}

	return m.mounts[bestMatch], data.ToRelativePath(path, bestMatch), nil
}

// hasChildMounts checks if any mounts exist under the given parent path.
// Must be called with lock held.
func (m *MountFileSystem) hasChildMounts(parent string) bool {
	for mountPoint := range m.mounts {
		if mountPoint != parent && data.HasPrefix(mountPoint, parent) {
			return true
		}
	}
	return false
}

func (m *MountFileSystem) resolveWritable(path string) (*mountEntry, string, error) {
	entry, key, err := m.resolve(path)
	if err != nil {
		return nil, "", err
	}

	if entry.info.ReadOnly {
		return nil, "", fmt.Errorf("%w: mount '%s' is read-only", data.ErrPermission, entry.info.Path)
	}

	return entry, key, nil
}

// Stat returns the stat of path with an absolute key.
func (m *MountFileSystem) Stat(ctx context.Context, path string) (*data.FileStat, error) {
	entry, key, err := m.resolve(path)
	if err != nil {
		return nil, err
	}

	stat, err := entry.backend.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}

	return stat.WithKey(data.ToAbsolutePath(entry.info.Path, key)), nil
}

// ReadDir lists the direct children of a directory with absolute keys.
func (m *MountFileSystem) ReadDir(ctx context.Context, path string) ([]*data.FileStat, error) {
	entry, key, err := m.resolve(path)
	if err != nil {
		return nil, err
	}

	stats, err := entry.backend.ListObjects(ctx, key)
	if err != nil {
		return nil, err
	}

	result := make([]*data.FileStat, len(stats))
	for i, stat := range stats {
		result[i] = stat.WithKey(data.ToAbsolutePath(entry.info.Path, stat.Key))
	}

	return result, nil
}

// ReadFile returns the full content of a regular file.
func (m *MountFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	entry, key, err := m.resolve(path)
	if err != nil {
		return nil, err
	}

	stat, err := entry.backend.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, data.ErrIsDirectory
	}

	content := make([]byte, 0, stat.Size)
	buf := make([]byte, readChunkSize)
	for offset := int64(0); ; {
		n, err := entry.backend.ReadObject(ctx, key, offset, buf)
		content = append(content, buf[:n]...)
		offset += int64(n)

		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			return content, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// MkDir creates a single directory; the parent must exist.
func (m *MountFileSystem) MkDir(ctx context.Context, path string) error {
	entry, key, err := m.resolveWritable(path)
	if err != nil {
		return err
	}

	_, err = entry.backend.CreateObject(ctx, key, data.ModeDir|0755)
	return err
}

// MkDirAll creates path and every missing parent directory.
func (m *MountFileSystem) MkDirAll(ctx context.Context, path string) error {
	entry, key, err := m.resolveWritable(path)
	if err != nil {
		return err
	}

	if key == "" {
		return nil
	}

	var current string
	for _, element := range strings.Split(key, "/") {
		if current == "" {
			current = element
		} else {
			current = current + "/" + element
		}

		_, err := entry.backend.CreateObject(ctx, current, data.ModeDir|0755)
		if err != nil && !errors.Is(err, data.ErrExist) {
			return fmt.Errorf("failed to create directory '%s': %w", current, err)
		}
	}

	return nil
}

// WriteFile replaces the content of the file at path, creating it when needed.
func (m *MountFileSystem) WriteFile(ctx context.Context, path string, content []byte) error {
	entry, key, err := m.resolveWritable(path)
	if err != nil {
		return err
	}

	if !entry.backend.GetCapabilities().CheckObjectSize(int64(len(content))) {
		return fmt.Errorf("%w: %d bytes", data.ErrTooLarge, len(content))
	}

	stat, err := entry.backend.HeadObject(ctx, key)
	switch {
	case err == nil && stat.IsDir():
		return data.ErrIsDirectory
	case err == nil:
		// Objects cannot be truncated, so an existing file is recreated
		if err := entry.backend.DeleteObject(ctx, key, false); err != nil {
			return err
		}
	case !errors.Is(err, data.ErrNotExist):
		return err
	}

	if _, err := entry.backend.CreateObject(ctx, key, 0644); err != nil {
		return err
	}

	if len(content) == 0 {
		return nil
	}

	_, err = entry.backend.WriteObject(ctx, key, 0, content)
	return err
}

// Remove deletes a file or directory. Non-empty directories need recursive.
func (m *MountFileSystem) Remove(ctx context.Context, path string, recursive bool) error {
	entry, key, err := m.resolveWritable(path)
	if err != nil {
		return err
	}

	if key == "" {
		return fmt.Errorf("%w: cannot remove mount point '%s'", data.ErrMountBusy, entry.info.Path)
	}

	return entry.backend.DeleteObject(ctx, key, recursive)
}
