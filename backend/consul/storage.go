package consul

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mwantia/snapcache/data"
)

// lookup resolves a key to its entry and the consul key it is stored under.
func (cb *ConsulBackend) lookup(ctx context.Context, key string) (*consulEntry, string, error) {
	if key != "" {
		entry, err := cb.getEntry(ctx, cb.fileKey(key))
		if err == nil {
			return entry, cb.fileKey(key), nil
		}
		if !errors.Is(err, data.ErrNotExist) {
			return nil, "", err
		}
	}

	entry, err := cb.getEntry(ctx, cb.dirKey(key))
	if err != nil {
		return nil, "", err
	}

	return entry, cb.dirKey(key), nil
}

// touch advances the modification time of the parent directory of key.
func (cb *ConsulBackend) touch(ctx context.Context, key string, now time.Time) error {
	parentKey := cb.dirKey(data.ParentKey(key))

	parent, err := cb.getEntry(ctx, parentKey)
	if err != nil {
		return err
	}

	parent.ModifyTime = now.UnixNano()
	return cb.putEntry(ctx, parentKey, parent)
}

// CreateObject creates a new object (file or directory)
func (cb *ConsulBackend) CreateObject(ctx context.Context, key string, mode data.FileMode) (*data.FileStat, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if _, _, err := cb.lookup(ctx, key); err == nil {
		return nil, data.ErrExist
	} else if !errors.Is(err, data.ErrNotExist) {
		return nil, err
	}

	parent, _, err := cb.lookup(ctx, data.ParentKey(key))
	if err != nil {
		return nil, err
	}
	if !parent.Mode.IsDir() {
		return nil, data.ErrNotDirectory
	}

	now := time.Now()
	consulKey := cb.fileKey(key)
	if mode.IsDir() {
		consulKey = cb.dirKey(key)
	}

	entry := &consulEntry{
		Mode:       mode,
		ModifyTime: now.UnixNano(),
		CreateTime: now.UnixNano(),
	}
	if err := cb.putEntry(ctx, consulKey, entry); err != nil {
		return nil, err
	}

	if err := cb.touch(ctx, key, now); err != nil {
		return nil, err
	}

	return entry.toFileStat(key), nil
}

// ReadObject reads data from an object at a given offset
func (cb *ConsulBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	entry, _, err := cb.lookup(ctx, key)
	if err != nil {
		return 0, err
	}
	if entry.Mode.IsDir() {
		return 0, data.ErrIsDirectory
	}

	if offset >= int64(len(entry.Content)) {
		return 0, io.EOF
	}

	return copy(buf, entry.Content[offset:]), nil
}

// WriteObject writes data to an object at a given offset
func (cb *ConsulBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	entry, consulKey, err := cb.lookup(ctx, key)
	if err != nil {
		return 0, err
	}
	if entry.Mode.IsDir() {
		return 0, data.ErrIsDirectory
	}

	writeEnd := offset + int64(len(buf))
	if !cb.GetCapabilities().CheckObjectSize(writeEnd) {
		return 0, data.ErrTooLarge
	}

	if int64(len(entry.Content)) < writeEnd {
		expanded := make([]byte, writeEnd)
		copy(expanded, entry.Content)
		entry.Content = expanded
	}
	copy(entry.Content[offset:], buf)
	entry.ModifyTime = time.Now().UnixNano()

	if err := cb.putEntry(ctx, consulKey, entry); err != nil {
		return 0, err
	}

	return len(buf), nil
}

// DeleteObject deletes an object (file or directory)
func (cb *ConsulBackend) DeleteObject(ctx context.Context, key string, force bool) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if key == "" {
		return data.ErrInvalid
	}

	entry, consulKey, err := cb.lookup(ctx, key)
	if err != nil {
		return err
	}

	if entry.Mode.IsDir() {
		keys, _, err := cb.kv.Keys(consulKey, "", cb.queryOptions(ctx))
		if err != nil {
			return err
		}

		if len(keys) > 1 && !force {
			return data.ErrDirectoryNotEmpty
		}

		if _, err := cb.kv.DeleteTree(consulKey, cb.writeOptions(ctx)); err != nil {
			return err
		}
	} else if _, err := cb.kv.Delete(consulKey, cb.writeOptions(ctx)); err != nil {
		return err
	}

	return cb.touch(ctx, key, time.Now())
}

// ListObjects lists the direct children of a directory
func (cb *ConsulBackend) ListObjects(ctx context.Context, key string) ([]*data.FileStat, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	entry, consulKey, err := cb.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !entry.Mode.IsDir() {
		return nil, data.ErrNotDirectory
	}

	// With a "/" separator Consul returns files and child directory keys only
	keys, _, err := cb.kv.Keys(consulKey, "/", cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}

	result := make([]*data.FileStat, 0, len(keys))
	for _, childKey := range keys {
		if childKey == consulKey {
			continue
		}

		child, err := cb.getEntry(ctx, childKey)
		if err != nil {
			if errors.Is(err, data.ErrNotExist) {
				continue
			}
			return nil, err
		}

		result = append(result, child.toFileStat(cb.toKey(childKey)))
	}

	return result, nil
}

// HeadObject returns the stat of a single object
func (cb *ConsulBackend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	entry, _, err := cb.lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	return entry.toFileStat(key), nil
}
