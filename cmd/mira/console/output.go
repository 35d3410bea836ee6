// Package console holds the terminal helpers of the mira command: colored
// output, exit codes and confirmation prompts.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
)

const (
	PictoFinish = "🏁"
	PictoStop   = "🚫"
	PictoPin    = "📌"
)

var (
	writer    io.Writer = os.Stdout
	errWriter io.Writer = os.Stderr
)

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

// Output is where command results (tables, YAML) are written.
func Output() io.Writer {
	return writer
}

// Exit ends the command with a formatted message and exit code.
func Exit(code int, msg string, args ...any) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

func Errorf(msg string, args ...any) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", White("..."), fmt.Sprintf(msg, args...))
}

// PInfof prints a message prefixed with a pictogram.
func PInfof(picto, msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Printf(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}
