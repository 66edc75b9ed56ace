package memory

import (
	"context"
	"io"
	"strings"

	"github.com/mwantia/snapcache/data"
)

func (mb *MemoryBackend) CreateObject(ctx context.Context, key string, mode data.FileMode) (*data.FileStat, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if key == "" {
		return nil, data.ErrExist
	}

	if _, exists := mb.keys.Get(key); exists {
		return nil, data.ErrExist
	}

	// Verify parent directory exists
	parent, exists := mb.lookup(data.ParentKey(key))
	if !exists {
		return nil, data.ErrNotExist
	}
	if !parent.stat.Mode.IsDir() {
		return nil, data.ErrNotDirectory
	}

	now := mb.now()
	obj := mb.insert(data.NewFileStat(key, mode, now))
	mb.touch(key, now)

	stat := obj.stat
	return &stat, nil
}

func (mb *MemoryBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	obj, exists := mb.lookup(key)
	if !exists {
		return 0, data.ErrNotExist
	}
	if obj.stat.Mode.IsDir() {
		return 0, data.ErrIsDirectory
	}

	if offset >= int64(len(obj.content)) {
		return 0, io.EOF
	}

	return copy(buf, obj.content[offset:]), nil
}

func (mb *MemoryBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	obj, exists := mb.lookup(key)
	if !exists {
		return 0, data.ErrNotExist
	}
	if obj.stat.Mode.IsDir() {
		return 0, data.ErrIsDirectory
	}

	writeEnd := offset + int64(len(buf))
	// Expand buffer if needed
	if int64(len(obj.content)) < writeEnd {
		expanded := make([]byte, writeEnd)
		copy(expanded, obj.content)
		obj.content = expanded
	}

	copy(obj.content[offset:], buf)
	obj.stat.Size = int64(len(obj.content))
	obj.stat.ModifyTime = mb.now()

	return len(buf), nil
}

func (mb *MemoryBackend) DeleteObject(ctx context.Context, key string, force bool) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if key == "" {
		return data.ErrInvalid
	}

	obj, exists := mb.lookup(key)
	if !exists {
		return data.ErrNotExist
	}

	if obj.stat.Mode.IsDir() {
		prefix := key + "/"

		var children []string
		mb.keys.Ascend(prefix, func(child string, _ string) bool {
			if !strings.HasPrefix(child, prefix) {
				return false
			}
			children = append(children, child)
			return true
		})

		if len(children) > 0 && !force {
			return data.ErrDirectoryNotEmpty
		}

		for _, child := range children {
			mb.remove(child)
		}
	}

	mb.remove(key)
	mb.touch(key, mb.now())
	return nil
}

func (mb *MemoryBackend) ListObjects(ctx context.Context, key string) ([]*data.FileStat, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	obj, exists := mb.lookup(key)
	if !exists {
		return nil, data.ErrNotExist
	}
	if !obj.stat.Mode.IsDir() {
		return nil, data.ErrNotDirectory
	}

	prefix := ""
	if key != "" {
		prefix = key + "/"
	}

	result := make([]*data.FileStat, 0)
	// Children of a directory are ordered and contiguous in the B-tree
	mb.keys.Ascend(prefix, func(child string, id string) bool {
		if !strings.HasPrefix(child, prefix) {
			return false
		}

		rel := child[len(prefix):]
		if rel == "" || strings.Contains(rel, "/") {
			return true
		}

		if childObj, exists := mb.objects[id]; exists {
			stat := childObj.stat
			result = append(result, &stat)
		}
		return true
	})

	return result, nil
}

func (mb *MemoryBackend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	obj, exists := mb.lookup(key)
	if !exists {
		return nil, data.ErrNotExist
	}

	stat := obj.stat
	return &stat, nil
}
