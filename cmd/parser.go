package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parser parses user-defined arguments into flags
type Parser struct {
	flagSet     *CommandFlagSet
	stopAtFirst bool
}

func NewParser(flagSet *CommandFlagSet) *Parser {
	if flagSet == nil {
		flagSet = &CommandFlagSet{Flags: make(map[string]*CommandFlag)}
	}

	return &Parser{
		flagSet: flagSet,
	}
}

// StopAtFirstArg makes the parser treat the first positional argument and
// everything after it as positional. Used for global flags before a command.
func (cp *Parser) StopAtFirstArg() *Parser {
	cp.stopAtFirst = true
	return cp
}

func (cp *Parser) Parse(raw []string) (*CommandArgs, error) {
	args := &CommandArgs{
		Flags: make(map[string]any),
		Raw:   raw,
	}

	for flagName, flag := range cp.flagSet.Flags {
		if flag.Default != nil {
			args.Flags[flagName] = flag.Default
		}
	}

	longToName := make(map[string]string)
	shortToName := make(map[string]string)
	for flagName, flag := range cp.flagSet.Flags {
		longToName[flag.Name] = flagName
		if flag.Short != "" {
			shortToName[flag.Short] = flagName
		}
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			args.Args = append(args.Args, raw[i+1:]...)
			break
		}

		if strings.HasPrefix(arg, "--") {
			key, value, hasValue := parseLongFlag(arg)
			flagName, exists := longToName[key]
			if !exists {
				return nil, fmt.Errorf("unknown flag: --%s", key)
			}

			flag := cp.flagSet.Flags[flagName]
			if flag.Type == "bool" && !hasValue {
				args.Flags[flagName] = true
				continue
			}

			if !hasValue {
				if i+1 >= len(raw) || strings.HasPrefix(raw[i+1], "-") {
					return nil, fmt.Errorf("flag --%s requires a value", key)
				}
				value = raw[i+1]
				i++
			}

			v, err := coerce(value, flag.Type)
			if err != nil {
				return nil, fmt.Errorf("flag --%s: %w", key, err)
			}
			args.Flags[flagName] = v
			continue
		}

		if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			shortFlags := arg[1:]

			for j, shortChar := range shortFlags {
				shortStr := string(shortChar)
				flagName, exists := shortToName[shortStr]
				if !exists {
					return nil, fmt.Errorf("unknown flag: -%s", shortStr)
				}

				flag := cp.flagSet.Flags[flagName]
				if flag.Type == "bool" {
					args.Flags[flagName] = true
					continue
				}

				var value string
				if j+1 < len(shortFlags) {
					value = shortFlags[j+1:]
				} else if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
					value = raw[i+1]
					i++
				} else {
					return nil, fmt.Errorf("flag -%s requires a value", shortStr)
				}

				v, err := coerce(value, flag.Type)
				if err != nil {
					return nil, fmt.Errorf("flag -%s: %w", shortStr, err)
				}
				args.Flags[flagName] = v
				break
			}
			continue
		}

		if cp.stopAtFirst {
			args.Args = append(args.Args, raw[i:]...)
			break
		}

		args.Args = append(args.Args, arg)
	}

	for flagName, flag := range cp.flagSet.Flags {
		if flag.Required {
			if _, ok := args.Flags[flagName]; !ok {
				if flag.Short != "" {
					return nil, fmt.Errorf("required flag: -%s / --%s", flag.Short, flag.Name)
				}
				return nil, fmt.Errorf("required flag: --%s", flag.Name)
			}
		}
	}

	return args, nil
}

func parseLongFlag(arg string) (key, value string, hasValue bool) {
	arg = strings.TrimPrefix(arg, "--")
	if idx := strings.Index(arg, "="); idx >= 0 {
		return arg[:idx], arg[idx+1:], true
	}
	return arg, "", false
}

func coerce(value string, typeStr string) (any, error) {
	switch typeStr {
	case "int":
		return strconv.ParseInt(value, 10, 64)
	case "bool":
		return value == "true" || value == "1" || value == "yes", nil
	case "duration":
		return time.ParseDuration(value)
	default:
		return value, nil
	}
}
