package snapcache_test

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/snapcache/data"
)

// fakeFileSystem is a FileSystem where every directory modification time is
// set explicitly by the test. It counts Stat and ReadDir calls.
type fakeFileSystem struct {
	mu    sync.Mutex
	stats map[string]*data.FileStat
	fail  map[string]error

	statCalls    int
	readDirCalls int
}

func newFakeFileSystem() *fakeFileSystem {
	return &fakeFileSystem{
		stats: make(map[string]*data.FileStat),
		fail:  make(map[string]error),
	}
}

// setDir creates or updates the directory at p with a modification time in
// unix seconds.
func (f *fakeFileSystem) setDir(p string, mtime int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stats[p] = data.NewFileStat(p, data.ModeDir|0755, time.Unix(mtime, 0))
}

func (f *fakeFileSystem) setFile(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stats[p] = data.NewFileStat(p, 0644, time.Unix(1, 0))
}

// remove deletes p and everything below it.
func (f *fakeFileSystem) remove(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key := range f.stats {
		if key == p || strings.HasPrefix(key, p+"/") {
			delete(f.stats, key)
		}
	}
}

// failReadDir makes ReadDir of p return err until cleared with nil.
func (f *fakeFileSystem) failReadDir(p string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		delete(f.fail, p)
		return
	}
	f.fail[p] = err
}

func (f *fakeFileSystem) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.statCalls, f.readDirCalls
}

func (f *fakeFileSystem) resetCounts() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statCalls = 0
	f.readDirCalls = 0
}

func (f *fakeFileSystem) Stat(ctx context.Context, p string) (*data.FileStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statCalls++

	stat, exists := f.stats[p]
	if !exists {
		return nil, fmt.Errorf("stat %s: %w", p, data.ErrNotExist)
	}

	clone := *stat
	return &clone, nil
}

func (f *fakeFileSystem) ReadDir(ctx context.Context, p string) ([]*data.FileStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.readDirCalls++

	if err, exists := f.fail[p]; exists {
		return nil, err
	}

	if _, exists := f.stats[p]; !exists {
		return nil, fmt.Errorf("readdir %s: %w", p, data.ErrNotExist)
	}

	var result []*data.FileStat
	for key, stat := range f.stats {
		if key != p && path.Dir(key) == p {
			clone := *stat
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result, nil
}

// fakeInspector returns fixed file lists per snapshot directory and counts
// how often each directory was inspected.
type fakeInspector struct {
	mu    sync.Mutex
	files map[string][]string
	fail  map[string]error
	calls map[string]int
}

func newFakeInspector() *fakeInspector {
	return &fakeInspector{
		files: make(map[string][]string),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (fi *fakeInspector) set(dir string, files ...string) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	fi.files[dir] = files
}

func (fi *fakeInspector) failOn(dir string, err error) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	if err == nil {
		delete(fi.fail, dir)
		return
	}
	fi.fail[dir] = err
}

func (fi *fakeInspector) callsFor(dir string) int {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	return fi.calls[dir]
}

func (fi *fakeInspector) total() int {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	total := 0
	for _, n := range fi.calls {
		total += n
	}
	return total
}

func (fi *fakeInspector) Inspect(ctx context.Context, dir string) ([]string, error) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	fi.calls[dir]++
	if err, exists := fi.fail[dir]; exists {
		return nil, err
	}

	return append([]string(nil), fi.files[dir]...), nil
}
