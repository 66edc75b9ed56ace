package cmd

import (
	"context"
	"io"

	"github.com/mwantia/snapcache"
)

// API is the query surface of a snapshot file cache.
// It strips away everything not required for command operations.
type API interface {
	// Contains reports whether fileName is referenced by any snapshot.
	// A miss forces a refresh before answering.
	Contains(ctx context.Context, fileName string) (bool, error)

	// TriggerCacheRefresh refreshes the cache synchronously; failures are only logged.
	TriggerCacheRefresh(ctx context.Context)

	// Snapshots returns the sorted names of all tracked finished snapshots.
	Snapshots() []string

	// Files returns the sorted names of all referenced files.
	Files() []string

	// Stats returns a summary of the cache content.
	Stats() snapcache.Stats
}

// Command represents an executable operator command against the cache.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "contains [-q] <file>...")
	Usage() string

	// Execute runs the command with parsed arguments
	// The writer parameter is where command output should be written
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, api API, args *CommandArgs, writer io.Writer) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *CommandFlagSet
}

var _ API = (*snapcache.SnapshotFileCache)(nil)
