package builtin

import (
	"context"
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mwantia/snapcache/cmd"
)

type StatsCommand struct {
}

func (s *StatsCommand) Name() string {
	return "stats"
}

func (s *StatsCommand) Description() string {
	return "Show a summary of the cache"
}

func (s *StatsCommand) Usage() string {
	return "stats [-j]"
}

func (s *StatsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	stats := api.Stats()

	if args.Bool("json") {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(stats); err != nil {
			return 1, fmt.Errorf("stats: %w", err)
		}
		return 0, nil
	}

	lastRefresh := "never"
	if !stats.LastRefreshTime.IsZero() {
		lastRefresh = stats.LastRefreshTime.Format(time.RFC3339)
	}

	fmt.Fprintf(writer, "name:          %s\n", stats.Name)
	fmt.Fprintf(writer, "directory:     %s\n", stats.SnapshotsDir)
	fmt.Fprintf(writer, "snapshots:     %d\n", stats.Snapshots)
	fmt.Fprintf(writer, "files:         %d\n", stats.Files)
	fmt.Fprintf(writer, "last refresh:  %s\n", lastRefresh)
	fmt.Fprintf(writer, "stopped:       %t\n", stats.Stopped)
	return 0, nil
}

func (s *StatsCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"json": {
				Name:        "json",
				Short:       "j",
				Type:        "bool",
				Description: "Print the summary as JSON",
			},
		},
	}
}
