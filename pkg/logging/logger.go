// Package logging configures the process-wide structured logger.
//
// All pgfleet packages log through the shared logger returned by L so that
// CLI invocations and the monitor endpoint produce a single consistent
// stream. Output defaults to a human-readable console format; level can be
// raised or lowered per invocation.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/phuslu/log"
)

var mainLogger *log.Logger

func init() {
	mainLogger = &log.Logger{
		Level: log.InfoLevel,
		Writer: &log.ConsoleWriter{
			Formatter: func(w io.Writer, a *log.FormatterArgs) (int, error) {
				return fmt.Fprintf(w, "%c%s %s] %s%s\n",
					strings.ToUpper(a.Level)[0], a.Time, a.Caller, a.Message, formatKV(a))
			},
		},
	}
}

func formatKV(a *log.FormatterArgs) string {
	if len(a.KeyValues) == 0 {
		return ""
	}
	var b strings.Builder
	for _, kv := range a.KeyValues {
		b.WriteString(" ")
		b.WriteString(kv.Key)
		b.WriteString("=")
		b.WriteString(kv.Value)
	}
	return b.String()
}

// L returns the shared logger.
func L() *log.Logger {
	return mainLogger
}

// SetLevel adjusts the global log level ("debug", "info", "warning", "error").
func SetLevel(level string) {
	mainLogger.Level = log.ParseLevel(level)
}

// SetWriter redirects log output, primarily for tests.
func SetWriter(w log.Writer) {
	mainLogger.Writer = w
}
