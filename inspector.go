package snapcache

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/mwantia/snapcache/data"
)

// InspectorFunc returns the names of the files referenced by the snapshot
// stored in snapshotDir. Returning an error aborts the whole refresh pass.
type InspectorFunc func(ctx context.Context, snapshotDir string) ([]string, error)

// FileFilter decides whether a regular file found below a snapshot directory
// is reported by NewFileListInspector.
type FileFilter func(stat *data.FileStat) bool

// WithSuffix accepts files whose name ends with one of suffixes.
func WithSuffix(suffixes ...string) FileFilter {
	return func(stat *data.FileStat) bool {
		name := stat.Name()
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				return true
			}
		}
		return false
	}
}

// InDirectory accepts files having a parent directory called name anywhere
// below the snapshot directory.
func InDirectory(name string) FileFilter {
	return func(stat *data.FileStat) bool {
		for _, element := range strings.Split(path.Dir(stat.Key), "/") {
			if element == name {
				return true
			}
		}
		return false
	}
}

// SkipHidden rejects files whose name starts with a dot.
func SkipHidden() FileFilter {
	return func(stat *data.FileStat) bool {
		return !strings.HasPrefix(stat.Name(), ".")
	}
}

// NewFileListInspector walks a snapshot directory recursively and returns the
// base names of all regular files accepted by every filter.
func NewFileListInspector(fs FileSystem, filters ...FileFilter) InspectorFunc {
	return func(ctx context.Context, snapshotDir string) ([]string, error) {
		var files []string

		pending := []string{snapshotDir}
		for len(pending) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			dir := pending[len(pending)-1]
			pending = pending[:len(pending)-1]

			entries, err := fs.ReadDir(ctx, dir)
			if errors.Is(err, data.ErrNotDirectory) && dir == snapshotDir {
				// A plain file next to the snapshots references nothing
				return nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("failed to list '%s': %w", dir, err)
			}

			for _, entry := range entries {
				entryPath := path.Join(dir, entry.Name())
				if entry.IsDir() {
					pending = append(pending, entryPath)
					continue
				}

				if !entry.Mode.IsRegular() {
					continue
				}

				if accept(entry.WithKey(entryPath), filters) {
					files = append(files, entry.Name())
				}
			}
		}

		return files, nil
	}
}

func accept(stat *data.FileStat, filters []FileFilter) bool {
	for _, filter := range filters {
		if !filter(stat) {
			return false
		}
	}
	return true
}

// NewManifestInspector reads the JSON manifest called manifestName inside each
// snapshot directory and returns the files it lists.
func NewManifestInspector(fs FileReader, manifestName string) InspectorFunc {
	if manifestName == "" {
		manifestName = data.DefaultManifestName
	}

	return func(ctx context.Context, snapshotDir string) ([]string, error) {
		manifestPath := path.Join(snapshotDir, manifestName)

		buf, err := fs.ReadFile(ctx, manifestPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest '%s': %w", manifestPath, err)
		}

		manifest, err := data.ParseManifest(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse manifest '%s': %w", manifestPath, err)
		}

		return manifest.Files, nil
	}
}
