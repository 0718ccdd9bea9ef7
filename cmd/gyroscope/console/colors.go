package console

import "github.com/fatih/color"

// Available ANSI colors
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Axis colors X, Y and Z the way most plotting tools do.
func Axis(name string, v any) string {
	switch name {
	case "x", "X":
		return color.New(color.FgRed).Sprint(v)
	case "y", "Y":
		return color.New(color.FgGreen).Sprint(v)
	case "z", "Z":
		return color.New(color.FgBlue).Sprint(v)
	}
	return White(v)
}

// Bool renders true green and false yellow.
func Bool(v bool) string {
	if v {
		return Green(v)
	}
	return Yellow(v)
}
