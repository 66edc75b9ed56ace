package builtin

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/mwantia/snapcache/cmd"
)

type HelpCommand struct {
	center *cmd.CommandCenter
}

func (h *HelpCommand) Name() string {
	return "help"
}

func (h *HelpCommand) Description() string {
	return "Show available commands or the usage of one command"
}

func (h *HelpCommand) Usage() string {
	return "help [command]"
}

func (h *HelpCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) == 0 {
		for _, command := range h.center.List() {
			fmt.Fprintf(writer, "  %-10s %s\n", command.Name(), command.Description())
		}
		return 0, nil
	}

	command, err := h.center.Get(args.Args[0])
	if err != nil {
		return 1, err
	}

	fmt.Fprintf(writer, "Usage: %s\n\n%s\n", command.Usage(), command.Description())

	flagSet := command.GetFlags()
	if flagSet == nil || len(flagSet.Flags) == 0 {
		return 0, nil
	}

	names := make([]string, 0, len(flagSet.Flags))
	for name := range flagSet.Flags {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(writer, "\nFlags:")
	for _, name := range names {
		flag := flagSet.Flags[name]
		fmt.Fprintf(writer, "  -%s, --%-10s %s\n", flag.Short, flag.Name, flag.Description)
	}
	return 0, nil
}

func (h *HelpCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
