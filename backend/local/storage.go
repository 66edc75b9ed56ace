package local

import (
	"context"
	"io"
	"os"
	"path"

	"github.com/mwantia/snapcache/data"
)

func (lb *LocalBackend) CreateObject(ctx context.Context, key string, mode data.FileMode) (*data.FileStat, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	fullPath := lb.resolvePath(key)

	if mode.IsDir() {
		if err := os.Mkdir(fullPath, os.FileMode(mode.Perm())|0700); err != nil {
			return nil, mapError(err)
		}
	} else {
		file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, os.FileMode(mode.Perm())|0600)
		if err != nil {
			return nil, mapError(err)
		}
		if err := file.Close(); err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	return toFileStat(key, info), nil
}

func (lb *LocalBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	file, err := os.Open(lb.resolvePath(key))
	if err != nil {
		return 0, mapError(err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, data.ErrIsDirectory
	}

	n, err := file.ReadAt(buf, offset)
	if err == io.EOF && n > 0 {
		return n, nil
	}

	return n, err
}

func (lb *LocalBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	file, err := os.OpenFile(lb.resolvePath(key), os.O_RDWR, 0)
	if err != nil {
		return 0, mapError(err)
	}
	defer file.Close()

	return file.WriteAt(buf, offset)
}

func (lb *LocalBackend) DeleteObject(ctx context.Context, key string, force bool) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if key == "" {
		return data.ErrInvalid
	}

	fullPath := lb.resolvePath(key)

	info, err := os.Stat(fullPath)
	if err != nil {
		return mapError(err)
	}

	if info.IsDir() && force {
		return os.RemoveAll(fullPath)
	}

	if err := os.Remove(fullPath); err != nil {
		if info.IsDir() {
			return data.ErrDirectoryNotEmpty
		}
		return mapError(err)
	}

	return nil
}

func (lb *LocalBackend) ListObjects(ctx context.Context, key string) ([]*data.FileStat, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	fullPath := lb.resolvePath(key)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}
	if !info.IsDir() {
		return nil, data.ErrNotDirectory
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	stats := make([]*data.FileStat, 0, len(entries))
	for _, entry := range entries {
		childInfo, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info
			continue
		}

		stats = append(stats, toFileStat(path.Join(key, entry.Name()), childInfo))
	}

	return stats, nil
}

func (lb *LocalBackend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	info, err := os.Stat(lb.resolvePath(key))
	if err != nil {
		return nil, mapError(err)
	}

	return toFileStat(key, info), nil
}
