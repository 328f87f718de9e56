package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Silent silences all the non-error messages
var Silent bool

// Verbose allows printing info messages.
var Verbose bool

// Output is where the messages are written.
var Output io.Writer = color.Output

// ErrOutput is where the failure messages are written.
var ErrOutput io.Writer = color.Error

type level int

const (
	levelVerbose level = iota
	levelInfo
	levelFailure
)

func write(lvl level, w io.Writer, symbol, msg string) {
	switch {
	case lvl == levelFailure:
	case Silent:
		return
	case lvl == levelVerbose && !Verbose:
		return
	}
	fmt.Fprint(w, "["+symbol+"] "+msg)
}

// Warningln formats warning message
func Warningln(content ...interface{}) {
	write(levelInfo, Output, color.YellowString("!"), fmt.Sprintln(content...))
}

// Successln formats success message
func Successln(content ...interface{}) {
	write(levelInfo, Output, color.GreenString("✓"), fmt.Sprintln(content...))
}

// Infoln formats info message
func Infoln(content ...interface{}) {
	write(levelInfo, Output, color.BlueString("•"), fmt.Sprintln(content...))
}

// Verboseln formats info message, only printed in verbose mode
func Verboseln(content ...interface{}) {
	write(levelVerbose, Output, color.BlueString("•"), fmt.Sprintln(content...))
}

// Failureln formats failure message
func Failureln(content ...interface{}) {
	write(levelFailure, ErrOutput, color.RedString("x"), fmt.Sprintln(content...))
}

// Warningf formats warning message
func Warningf(format string, values ...interface{}) {
	write(levelInfo, Output, color.YellowString("!"), fmt.Sprintf(format, values...))
}

// Successf formats success message
func Successf(format string, values ...interface{}) {
	write(levelInfo, Output, color.GreenString("✓"), fmt.Sprintf(format, values...))
}

// Infof formats info message
func Infof(format string, values ...interface{}) {
	write(levelInfo, Output, color.BlueString("•"), fmt.Sprintf(format, values...))
}

// Verbosef formats info message, only printed in verbose mode
func Verbosef(format string, values ...interface{}) {
	write(levelVerbose, Output, color.BlueString("•"), fmt.Sprintf(format, values...))
}

// Failuref formats failure message
func Failuref(format string, values ...interface{}) {
	write(levelFailure, ErrOutput, color.RedString("x"), fmt.Sprintf(format, values...))
}

// Hintln prints a hint for fixing a failure, unless hint is empty.
func Hintln(hint string) {
	if hint == "" {
		return
	}
	write(levelFailure, ErrOutput, color.CyanString("?"), hint+"\n")
}
