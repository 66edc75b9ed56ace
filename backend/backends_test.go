package backend_test

import (
	"bytes"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/snapcache/backend"
	"github.com/mwantia/snapcache/backend/local"
	"github.com/mwantia/snapcache/backend/memory"
	"github.com/mwantia/snapcache/backend/sqlite"
	"github.com/mwantia/snapcache/data"
)

// TestBackendFactory creates a new backend instance for testing.
type TestBackendFactory func(t *testing.T) (backend.ObjectStorageBackend, error)

// GetTestBackendFactories returns all backend implementations to test.
func GetTestBackendFactories() map[string]TestBackendFactory {
	return map[string]TestBackendFactory{
		"memory": func(t *testing.T) (backend.ObjectStorageBackend, error) {
			return memory.NewMemoryBackend(memory.WithClock(steppingClock())), nil
		},
		"sqlite": func(t *testing.T) (backend.ObjectStorageBackend, error) {
			return sqlite.NewSQLiteBackend(":memory:")
		},
		"local": func(t *testing.T) (backend.ObjectStorageBackend, error) {
			return local.NewLocalBackend(t.TempDir()), nil
		},
	}
}

func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Unix(1000, 0)

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		now = now.Add(time.Second)
		return now
	}
}

func openTestBackend(t *testing.T, factory TestBackendFactory) backend.ObjectStorageBackend {
	t.Helper()

	b, err := factory(t)
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}

	if err := b.Open(t.Context()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	t.Cleanup(func() {
		b.Close(t.Context())
	})
	return b
}

func readAll(t *testing.T, b backend.ObjectStorageBackend, key string) []byte {
	t.Helper()

	var content []byte
	buf := make([]byte, 4)
	for offset := int64(0); ; {
		n, err := b.ReadObject(t.Context(), key, offset, buf)
		content = append(content, buf[:n]...)
		offset += int64(n)

		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			return content
		}
		if err != nil {
			t.Fatalf("ReadObject failed: %v", err)
		}
	}
}

// TestAllBackends_FileOperations verifies basic file create, write, and read operations
// across all backend implementations.
func TestAllBackends_FileOperations(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			stat, err := b.CreateObject(ctx, "test.txt", 0644)
			if err != nil {
				tst.Fatalf("CreateObject failed: %v", err)
			}
			if stat.Key != "test.txt" || stat.IsDir() {
				tst.Fatalf("Unexpected stat: %+v", stat)
			}

			content := []byte("Hello, World!")
			if n, err := b.WriteObject(ctx, "test.txt", 0, content); err != nil || n != len(content) {
				tst.Fatalf("WriteObject failed: %d, %v", n, err)
			}

			if got := readAll(tst, b, "test.txt"); !bytes.Equal(got, content) {
				tst.Fatalf("Expected %q, got %q", content, got)
			}

			// Writing past the end grows the object
			if _, err := b.WriteObject(ctx, "test.txt", int64(len(content)), []byte(" Again")); err != nil {
				tst.Fatalf("WriteObject append failed: %v", err)
			}
			if got := string(readAll(tst, b, "test.txt")); got != "Hello, World! Again" {
				tst.Fatalf("Unexpected content after append: %q", got)
			}

			stat, err = b.HeadObject(ctx, "test.txt")
			if err != nil {
				tst.Fatalf("HeadObject failed: %v", err)
			}
			if stat.Size != 19 {
				tst.Fatalf("Expected size 19, got %d", stat.Size)
			}

			if _, err := b.ReadObject(ctx, "test.txt", 100, make([]byte, 4)); !errors.Is(err, io.EOF) {
				tst.Fatalf("Expected io.EOF past the end, got %v", err)
			}
		})
	}
}

// TestAllBackends_DirectoryOperations verifies directory creation, listing, and removal
// across all backend implementations.
func TestAllBackends_DirectoryOperations(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			if _, err := b.CreateObject(ctx, "data", data.ModeDir|0755); err != nil {
				tst.Fatalf("CreateObject dir failed: %v", err)
			}

			for _, file := range []string{"file1.txt", "file2.txt", "file3.txt"} {
				if _, err := b.CreateObject(ctx, "data/"+file, 0644); err != nil {
					tst.Fatalf("CreateObject %s failed: %v", file, err)
				}
			}
			if _, err := b.CreateObject(ctx, "data/nested", data.ModeDir|0755); err != nil {
				tst.Fatalf("CreateObject nested failed: %v", err)
			}
			if _, err := b.CreateObject(ctx, "data/nested/deep.txt", 0644); err != nil {
				tst.Fatalf("CreateObject deep failed: %v", err)
			}

			entries, err := b.ListObjects(ctx, "data")
			if err != nil {
				tst.Fatalf("ListObjects failed: %v", err)
			}

			keys := make([]string, 0, len(entries))
			for _, entry := range entries {
				keys = append(keys, entry.Key)
			}
			sort.Strings(keys)

			expected := []string{"data/file1.txt", "data/file2.txt", "data/file3.txt", "data/nested"}
			if len(keys) != len(expected) {
				tst.Fatalf("Expected %v, got %v", expected, keys)
			}
			for i := range expected {
				if keys[i] != expected[i] {
					tst.Fatalf("Expected %v, got %v", expected, keys)
				}
			}

			root, err := b.ListObjects(ctx, "")
			if err != nil {
				tst.Fatalf("ListObjects root failed: %v", err)
			}
			if len(root) != 1 || root[0].Key != "data" || !root[0].IsDir() {
				tst.Fatalf("Unexpected root entries: %+v", root)
			}

			if err := b.DeleteObject(ctx, "data", false); !errors.Is(err, data.ErrDirectoryNotEmpty) {
				tst.Fatalf("Expected ErrDirectoryNotEmpty, got %v", err)
			}
			if err := b.DeleteObject(ctx, "data", true); err != nil {
				tst.Fatalf("Forced DeleteObject failed: %v", err)
			}
			if _, err := b.HeadObject(ctx, "data/nested/deep.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Fatalf("Expected descendants to be removed, got %v", err)
			}
		})
	}
}

// TestAllBackends_ErrorCases verifies the sentinel errors of every backend.
func TestAllBackends_ErrorCases(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			if _, err := b.HeadObject(ctx, "missing"); !errors.Is(err, data.ErrNotExist) {
				tst.Fatalf("Expected ErrNotExist, got %v", err)
			}
			if _, err := b.ListObjects(ctx, "missing"); !errors.Is(err, data.ErrNotExist) {
				tst.Fatalf("Expected ErrNotExist, got %v", err)
			}
			if _, err := b.CreateObject(ctx, "missing/file", 0644); !errors.Is(err, data.ErrNotExist) {
				tst.Fatalf("Expected ErrNotExist for missing parent, got %v", err)
			}
			if err := b.DeleteObject(ctx, "missing", false); !errors.Is(err, data.ErrNotExist) {
				tst.Fatalf("Expected ErrNotExist, got %v", err)
			}

			if _, err := b.CreateObject(ctx, "file", 0644); err != nil {
				tst.Fatalf("CreateObject failed: %v", err)
			}
			if _, err := b.CreateObject(ctx, "file", 0644); !errors.Is(err, data.ErrExist) {
				tst.Fatalf("Expected ErrExist, got %v", err)
			}
			if _, err := b.ListObjects(ctx, "file"); !errors.Is(err, data.ErrNotDirectory) {
				tst.Fatalf("Expected ErrNotDirectory, got %v", err)
			}

			if _, err := b.CreateObject(ctx, "dir", data.ModeDir|0755); err != nil {
				tst.Fatalf("CreateObject dir failed: %v", err)
			}
			if _, err := b.ReadObject(ctx, "dir", 0, make([]byte, 4)); !errors.Is(err, data.ErrIsDirectory) {
				tst.Fatalf("Expected ErrIsDirectory, got %v", err)
			}
		})
	}
}

// TestAllBackends_EmptyDirectory verifies that an empty directory lists no children.
func TestAllBackends_EmptyDirectory(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			if _, err := b.CreateObject(ctx, "empty", data.ModeDir|0755); err != nil {
				tst.Fatalf("CreateObject failed: %v", err)
			}

			entries, err := b.ListObjects(ctx, "empty")
			if err != nil {
				tst.Fatalf("ListObjects failed: %v", err)
			}
			if len(entries) != 0 {
				tst.Fatalf("Expected no entries, got %d", len(entries))
			}

			if err := b.DeleteObject(ctx, "empty", false); err != nil {
				tst.Fatalf("DeleteObject failed: %v", err)
			}
		})
	}
}

// TestAllBackends_ParentModifyTime verifies that creating or deleting a child
// advances the modification time of its parent directory only.
func TestAllBackends_ParentModifyTime(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		// Host directory timestamps may not advance between two fast operations
		if name == "local" {
			continue
		}

		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			modifyTime := func(key string) time.Time {
				tst.Helper()
				stat, err := b.HeadObject(ctx, key)
				if err != nil {
					tst.Fatalf("HeadObject(%q) failed: %v", key, err)
				}
				return stat.ModifyTime
			}

			if _, err := b.CreateObject(ctx, "snapshots", data.ModeDir|0755); err != nil {
				tst.Fatalf("CreateObject failed: %v", err)
			}
			if _, err := b.CreateObject(ctx, "snapshots/A", data.ModeDir|0755); err != nil {
				tst.Fatalf("CreateObject failed: %v", err)
			}

			parent := modifyTime("snapshots")
			snapshot := modifyTime("snapshots/A")

			// A grandchild changes A, not the snapshots directory
			if _, err := b.CreateObject(ctx, "snapshots/A/f1", 0644); err != nil {
				tst.Fatalf("CreateObject failed: %v", err)
			}
			if !modifyTime("snapshots/A").After(snapshot) {
				tst.Fatal("Expected snapshot directory mtime to advance on create")
			}
			if !modifyTime("snapshots").Equal(parent) {
				tst.Fatal("Expected snapshots directory mtime to stay unchanged")
			}

			// Writing content does not touch the parent
			snapshot = modifyTime("snapshots/A")
			if _, err := b.WriteObject(ctx, "snapshots/A/f1", 0, []byte("x")); err != nil {
				tst.Fatalf("WriteObject failed: %v", err)
			}
			if !modifyTime("snapshots/A").Equal(snapshot) {
				tst.Fatal("Expected snapshot directory mtime to stay unchanged on write")
			}

			if err := b.DeleteObject(ctx, "snapshots/A", true); err != nil {
				tst.Fatalf("DeleteObject failed: %v", err)
			}
			if !modifyTime("snapshots").After(parent) {
				tst.Fatal("Expected snapshots directory mtime to advance on delete")
			}
		})
	}
}

// TestMemoryBackend_CloseResets verifies that closing the memory backend drops all objects.
func TestMemoryBackend_CloseResets(t *testing.T) {
	ctx := t.Context()
	b := memory.NewMemoryBackend()

	if _, err := b.CreateObject(ctx, "file", 0644); err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := b.HeadObject(ctx, "file"); !errors.Is(err, data.ErrNotExist) {
		t.Fatalf("Expected ErrNotExist after close, got %v", err)
	}
	if _, err := b.HeadObject(ctx, ""); err != nil {
		t.Fatalf("Expected root to exist after close, got %v", err)
	}
}
