package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/snapcache/cmd"
)

// ContainsCommand checks whether files are still referenced by any snapshot.
// It exits with 1 when at least one file is unreferenced, which makes it
// usable as a guard in cleanup scripts.
type ContainsCommand struct {
}

// Name returns the command identifier
func (c *ContainsCommand) Name() string {
	return "contains"
}

// Description returns human-readable help text
func (c *ContainsCommand) Description() string {
	return "Check whether files are referenced by any snapshot"
}

// Usage returns a usage string for help
func (c *ContainsCommand) Usage() string {
	return "contains [-q] <file>..."
}

// Execute runs the command with parsed arguments
func (c *ContainsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return 2, fmt.Errorf("contains: missing file name")
	}

	quiet := args.Bool("quiet")
	code := 0

	for _, name := range args.Args {
		found, err := api.Contains(ctx, name)
		if err != nil {
			return 2, fmt.Errorf("contains: %s: %w", name, err)
		}

		if !found {
			code = 1
		}

		if !quiet {
			state := "unreferenced"
			if found {
				state = "referenced"
			}
			fmt.Fprintf(writer, "%s\t%s\n", name, state)
		}
	}

	return code, nil
}

// GetFlags returns the flag set for this command
func (c *ContainsCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"quiet": {
				Name:        "quiet",
				Short:       "q",
				Type:        "bool",
				Description: "Only report the result through the exit code",
			},
		},
	}
}
