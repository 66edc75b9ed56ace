package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mwantia/snapcache"
	"github.com/mwantia/snapcache/backend/address"
	"github.com/mwantia/snapcache/cmd"
	"github.com/mwantia/snapcache/cmd/builtin"
	"github.com/mwantia/snapcache/log"
)

var globalFlags = &cmd.CommandFlagSet{
	Flags: map[string]*cmd.CommandFlag{
		"backend": {
			Name:        "backend",
			Short:       "b",
			Type:        "string",
			Default:     "local:///",
			Description: "Storage backend address (e.g. local:///var/lib/hbase, sqlite:///tmp/snap.db)",
		},
		"mount": {
			Name:        "mount",
			Short:       "m",
			Type:        "string",
			Default:     "/",
			Description: "Mount point of the backend",
		},
		"dir": {
			Name:        "dir",
			Short:       "d",
			Type:        "string",
			Default:     "/snapshots",
			Description: "Snapshots directory",
		},
		"running": {
			Name:        "running",
			Type:        "string",
			Default:     snapcache.DefaultRunningDirName,
			Description: "Name of the in-progress snapshots directory",
		},
		"inspector": {
			Name:        "inspector",
			Short:       "i",
			Type:        "string",
			Default:     "files",
			Description: "Snapshot inspector: files or manifest",
		},
		"suffix": {
			Name:        "suffix",
			Short:       "s",
			Type:        "string",
			Description: "Comma separated file suffixes reported by the files inspector",
		},
		"manifest": {
			Name:        "manifest",
			Type:        "string",
			Default:     "",
			Description: "Manifest file name used by the manifest inspector",
		},
		"period": {
			Name:        "period",
			Short:       "p",
			Type:        "duration",
			Default:     snapcache.DefaultRefreshPeriod,
			Description: "Interval between scheduled refreshes",
		},
		"log-level": {
			Name:        "log-level",
			Short:       "l",
			Type:        "string",
			Default:     "warn",
			Description: "Log level (debug, info, warn, error)",
		},
		"log-file": {
			Name:        "log-file",
			Type:        "string",
			Description: "Additional log file with rotation",
		},
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

func run(ctx context.Context, raw []string, writer io.Writer) (int, error) {
	args, err := cmd.NewParser(globalFlags).StopAtFirstArg().Parse(raw)
	if err != nil {
		return 2, err
	}

	if len(args.Args) == 0 {
		args.Args = []string{"help"}
	}

	level, err := log.Parse(args.String("log-level"))
	if err != nil {
		return 2, err
	}
	logger := log.NewLogger("snapcache", level, args.String("log-file"), false)

	b, err := address.Parse(ctx, args.String("backend"))
	if err != nil {
		return 2, err
	}

	fs := snapcache.NewMountFileSystem(logger.Named("mount"))
	if err := fs.Mount(ctx, args.String("mount"), b, snapcache.WithReadOnly(true)); err != nil {
		return 1, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := fs.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shutdown mounts: %v", err)
		}
	}()

	inspector, err := newInspector(fs, args)
	if err != nil {
		return 2, err
	}

	// The scheduler is not needed for a single command
	cache, err := snapcache.New(fs, args.String("dir"), inspector,
		snapcache.WithLogger(logger),
		snapcache.WithRefreshDelay(args.Duration("period")),
		snapcache.WithRefreshPeriod(args.Duration("period")),
		snapcache.WithRunningDirName(args.String("running")))
	if err != nil {
		return 2, err
	}
	defer func() {
		cache.Stop("command finished")
		cache.Wait()
	}()

	center := cmd.NewCommandCenter()
	if err := builtin.InitBuiltin(center); err != nil {
		return 1, err
	}

	return center.Execute(ctx, cache, writer, args.Args...)
}

func newInspector(fs *snapcache.MountFileSystem, args *cmd.CommandArgs) (snapcache.InspectorFunc, error) {
	switch args.String("inspector") {
	case "files":
		filters := []snapcache.FileFilter{snapcache.SkipHidden()}
		if suffix := args.String("suffix"); suffix != "" {
			filters = append(filters, snapcache.WithSuffix(strings.Split(suffix, ",")...))
		}
		return snapcache.NewFileListInspector(fs, filters...), nil
	case "manifest":
		return snapcache.NewManifestInspector(fs, args.String("manifest")), nil
	}

	return nil, fmt.Errorf("unknown inspector '%s'", args.String("inspector"))
}
