package snapcache_test

import (
	"errors"
	"path"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/mwantia/snapcache"
	"github.com/mwantia/snapcache/data"
	"github.com/mwantia/snapcache/log"
)

func seedSnapshot(t *testing.T, fs *snapcache.MountFileSystem, files map[string]string) {
	t.Helper()
	ctx := t.Context()

	keys := make([]string, 0, len(files))
	for p := range files {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	for _, p := range keys {
		parent := path.Dir(p)
		if err := fs.MkDirAll(ctx, parent); err != nil {
			t.Fatalf("MkDirAll(%s) failed: %v", parent, err)
		}
		if err := fs.WriteFile(ctx, p, []byte(files[p])); err != nil {
			t.Fatalf("WriteFile(%s) failed: %v", p, err)
		}
	}
}

func TestFileListInspector_Filters(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs := snapcache.NewMountFileSystem(nil)
			mountTestBackend(tst, factory, "/", fs)
			defer fs.Shutdown(ctx)

			seedSnapshot(tst, fs, map[string]string{
				"/snapshots/A/.snapshotinfo":        "{}",
				"/snapshots/A/region/data/f1.hfile": "1",
				"/snapshots/A/region/data/f2.hfile": "2",
				"/snapshots/A/wal/00001.log":        "3",
				"/snapshots/A/wal/00002.log":        "4",
			})

			tests := map[string]struct {
				filters  []snapcache.FileFilter
				expected []string
			}{
				"all": {
					expected: []string{".snapshotinfo", "00001.log", "00002.log", "f1.hfile", "f2.hfile"},
				},
				"skip hidden": {
					filters:  []snapcache.FileFilter{snapcache.SkipHidden()},
					expected: []string{"00001.log", "00002.log", "f1.hfile", "f2.hfile"},
				},
				"log files": {
					filters:  []snapcache.FileFilter{snapcache.WithSuffix(".log")},
					expected: []string{"00001.log", "00002.log"},
				},
				"region data": {
					filters:  []snapcache.FileFilter{snapcache.InDirectory("data"), snapcache.SkipHidden()},
					expected: []string{"f1.hfile", "f2.hfile"},
				},
			}

			for testName, test := range tests {
				tst.Run(testName, func(st *testing.T) {
					inspect := snapcache.NewFileListInspector(fs, test.filters...)

					files, err := inspect(st.Context(), "/snapshots/A")
					if err != nil {
						st.Fatalf("Inspect failed: %v", err)
					}

					sort.Strings(files)
					if !slices.Equal(files, test.expected) {
						st.Fatalf("Expected %v, got %v", test.expected, files)
					}
				})
			}
		})
	}
}

func TestFileListInspector_MissingDirectory(t *testing.T) {
	ctx := t.Context()
	fs := snapcache.NewMountFileSystem(nil)
	mountTestBackend(t, GetTestBackendFactories()["memory"], "/", fs)
	defer fs.Shutdown(ctx)

	inspect := snapcache.NewFileListInspector(fs)
	if _, err := inspect(ctx, "/snapshots/missing"); !errors.Is(err, data.ErrNotExist) {
		t.Fatalf("Expected ErrNotExist, got %v", err)
	}
}

func TestFileListInspector_PlainFile(t *testing.T) {
	ctx := t.Context()
	fs := snapcache.NewMountFileSystem(nil)
	mountTestBackend(t, GetTestBackendFactories()["memory"], "/", fs)
	defer fs.Shutdown(ctx)

	seedSnapshot(t, fs, map[string]string{
		"/snapshots/README": "not a snapshot",
		"/snapshots/A/f1":   "1",
	})

	inspect := snapcache.NewFileListInspector(fs)
	files, err := inspect(ctx, "/snapshots/README")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("Expected no files, got %v", files)
	}

	cache, err := snapcache.New(fs, "/snapshots", inspect,
		snapcache.WithRefreshDelay(time.Hour),
		snapcache.WithLogger(log.NewDiscardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cache.Stop("test finished")

	found, err := cache.Contains(ctx, "f1")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !found {
		t.Fatal("Expected f1 to be referenced")
	}
	if stats := cache.Stats(); stats.Snapshots != 2 || stats.Files != 1 {
		t.Fatalf("Expected 2 snapshots with 1 file, got %d snapshots with %d files", stats.Snapshots, stats.Files)
	}
}

func TestManifestInspector(t *testing.T) {
	ctx := t.Context()
	fs := snapcache.NewMountFileSystem(nil)
	mountTestBackend(t, GetTestBackendFactories()["memory"], "/", fs)
	defer fs.Shutdown(ctx)

	manifest := &data.SnapshotManifest{
		Name:  "A",
		Table: "users",
		Files: []string{"f1.hfile", "f2.hfile"},
	}
	buf, err := manifest.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	seedSnapshot(t, fs, map[string]string{
		"/snapshots/A/.snapshotinfo": string(buf),
		"/snapshots/B/.snapshotinfo": "not json",
		"/snapshots/C/other":         "",
	})

	inspect := snapcache.NewManifestInspector(fs, "")

	files, err := inspect(ctx, "/snapshots/A")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !slices.Equal(files, manifest.Files) {
		t.Fatalf("Expected %v, got %v", manifest.Files, files)
	}

	if _, err := inspect(ctx, "/snapshots/B"); err == nil {
		t.Fatal("Expected error for malformed manifest")
	}
	if _, err := inspect(ctx, "/snapshots/C"); !errors.Is(err, data.ErrNotExist) {
		t.Fatalf("Expected ErrNotExist for missing manifest, got %v", err)
	}
}
