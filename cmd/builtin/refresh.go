package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/snapcache/cmd"
)

type RefreshCommand struct {
}

func (r *RefreshCommand) Name() string {
	return "refresh"
}

func (r *RefreshCommand) Description() string {
	return "Refresh the cache synchronously"
}

func (r *RefreshCommand) Usage() string {
	return "refresh"
}

func (r *RefreshCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	api.TriggerCacheRefresh(ctx)

	stats := api.Stats()
	fmt.Fprintf(writer, "%d snapshots, %d files\n", stats.Snapshots, stats.Files)
	return 0, nil
}

func (r *RefreshCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
