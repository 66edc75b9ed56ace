package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/snapcache/cmd"
)

// SnapshotsCommand lists tracked snapshots or, with --files, referenced files.
type SnapshotsCommand struct {
}

func (s *SnapshotsCommand) Name() string {
	return "snapshots"
}

func (s *SnapshotsCommand) Description() string {
	return "List tracked snapshots or referenced files"
}

func (s *SnapshotsCommand) Usage() string {
	return "snapshots [-f]"
}

func (s *SnapshotsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	api.TriggerCacheRefresh(ctx)

	names := api.Snapshots()
	if args.Bool("files") {
		names = api.Files()
	}

	for _, name := range names {
		fmt.Fprintln(writer, name)
	}
	return 0, nil
}

func (s *SnapshotsCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"files": {
				Name:        "files",
				Short:       "f",
				Type:        "bool",
				Description: "List referenced files instead of snapshots",
			},
		},
	}
}
