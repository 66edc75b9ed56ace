package builtin

import "github.com/mwantia/snapcache/cmd"

// InitBuiltin registers all builtin commands at center.
func InitBuiltin(center *cmd.CommandCenter) error {
	commands := []cmd.Command{
		&ContainsCommand{},
		&RefreshCommand{},
		&SnapshotsCommand{},
		&StatsCommand{},
		&HelpCommand{center: center},
	}

	for _, command := range commands {
		if err := center.Register(command); err != nil {
			return err
		}
	}

	return nil
}
