package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"
	"github.com/spf13/viper"
)

// Output is the writer all log functions print to. Tests replace it to
// capture what was logged.
var Output io.Writer = os.Stderr

// Renderers run concurrently and all of them log, so writes to Output
// are serialized.
var mu sync.Mutex

func log(style pterm.Style, icon string, a ...any) {
	s := fmt.Sprint(a...)
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}

	mu.Lock()
	defer mu.Unlock()

	// Clear the spinner line before printing, otherwise the message is
	// appended to the spinner text.
	if currentProgressSpinner != nil {
		_, _ = fmt.Fprint(Output, "\r\033[K")
	}
	_, _ = fmt.Fprint(Output, style.Sprint(icon+s))
}

// Successf highlights a message as successful
func Successf(format string, a ...any) {
	Success(fmt.Sprintf(format, a...))
}

func Success(a ...any) {
	log(pterm.Style{pterm.FgGreen}, "✅ ", a...)
}

// Warnf highlights a message as a warning
func Warnf(format string, a ...any) {
	Warn(fmt.Sprintf(format, a...))
}

func Warn(a ...any) {
	log(pterm.Style{pterm.Bold, pterm.FgYellow}, "⚠️ ", a...)
}

// Notef highlights a message as a note
func Notef(format string, a ...any) {
	Note(fmt.Sprintf(format, a...))
}

func Note(a ...any) {
	log(pterm.Style{pterm.Bold}, "", a...)
}

// Errorf highlights a message as an error and shows the stack strace if the --verbose flag is active
func Errorf(err error, format string, a ...any) {
	Error(err, fmt.Sprintf(format, a...))
}

// Error highlights a message as an error and shows the stack strace if the --verbose flag is active
func Error(err error, a ...any) {
	// If no message is provided, print the message of the error
	if len(a) == 0 {
		a = []any{err.Error()}
	}
	msg := fmt.Sprint(a...)

	if viper.GetBool("verbose") && err != nil {
		msg = fmt.Sprintf("%s\n%+v", msg, err)
	}
	log(pterm.Style{pterm.Bold, pterm.FgRed}, "❌ ", msg)
}

// Infof outputs a regular user message without any highlighting
func Infof(format string, a ...any) {
	Info(fmt.Sprintf(format, a...))
}

func Info(a ...any) {
	log(pterm.Style{pterm.Fuzzy}, "", a...)
}

// Debugf outputs additional information when the --verbose flag is active
func Debugf(format string, a ...any) {
	Debug(fmt.Sprintf(format, a...))
}

func Debug(a ...any) {
	if viper.GetBool("verbose") {
		log(pterm.Style{pterm.Fuzzy}, "🔍 ", a...)
	}
}

// Printf writes without any colors
func Printf(format string, a ...any) {
	Print(fmt.Sprintf(format, a...))
}

func Print(a ...any) {
	log(pterm.Style{pterm.Reset}, "", a...)
}
