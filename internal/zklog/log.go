// Package zklog provides a configurable logger for the zkVM core. The
// interpreter (package vm) logs through it; the circuit and proof packages
// do not log.
//
// The root logger uses github.com/rs/zerolog with a console writer, mirroring
// Consensys-gnark's logger package (see DESIGN.md).
package zklog

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	logger = zerolog.New(output).With().Timestamp().Logger()

	if strings.HasSuffix(os.Args[0], ".test") {
		logger = zerolog.Nop()
	}
}

// SetOutput redirects the global logger's output.
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

// Set overrides the global logger entirely.
func Set(l zerolog.Logger) {
	logger = l
}

// Disable silences all logging.
func Disable() {
	logger = zerolog.Nop()
}

// Logger returns a sub-logger tagged with the given component name.
func Logger(component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
