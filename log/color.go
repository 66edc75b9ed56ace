package log

import (
	"os"

	"github.com/mattn/go-isatty"
)

const colorReset = "\033[0m"

var levelColors = map[LogLevel]string{
	Debug: "\033[34m",
	Info:  "\033[32m",
	Warn:  "\033[33m",
	Error: "\033[31m",
	Fatal: "\033[35m",
}

// Color returns the ANSI sequence used for messages of level l.
func Color(l LogLevel) string {
	if color, ok := levelColors[l]; ok {
		return color
	}
	return colorReset
}

func colorize(l LogLevel, text string) string {
	return Color(l) + text + colorReset
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
