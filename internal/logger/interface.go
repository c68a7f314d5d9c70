package logger

import "codeberg.org/mutker/threadstone/internal/errors"

// Logger is the logging surface components accept. Default returns the
// package-level implementation; tests may pass their own.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
}
