/*
Package logx provides a structured logging wrapper based on zerolog.

It is responsible for initializing the global logger, configuring the output format
(JSON or console) based on the environment, and providing unified helper functions
for logging levels like Debug, Info, Warn, Error, and Fatal.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls how the global logger is built.
type Options struct {
	// Development switches to a colored console writer on stderr.
	Development bool

	// Level overrides the default level ("debug" in development, "info" otherwise).
	Level string

	// Output replaces the destination writer. Defaults to stdout (JSON) or stderr (console).
	Output io.Writer
}

// InitGlobalLogger initializes the global zerolog instance.
// Development: Debug level, uses ConsoleWriter (colored/human-readable format).
// Production: Info level, uses standard JSON format.
// All logs include a Unix timestamp and caller information.
func InitGlobalLogger(opts Options) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	level := zerolog.InfoLevel

	if opts.Development {
		consoleOut := opts.Output
		if consoleOut == nil {
			consoleOut = os.Stderr
		}
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        consoleOut,
			NoColor:    false,
			TimeFormat: time.RFC3339,
		})
		level = zerolog.DebugLevel
	}

	if opts.Level != "" {
		if parsed, err := zerolog.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}

	log.Logger = logger.Level(level).With().Caller().Logger()
}

// Logger returns a pointer to the global zerolog.Logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// checkFields validates that the variadic fields parameter has an even number (key-value pairs).
// If the count is odd, it logs a warning and returns nil to prevent zerolog from panicking.
func checkFields(level string, fields []any) []any {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msgf("Logx call (%s) received odd number of fields: %v. Fields ignored.", level, fields)
		return nil
	}
	return fields
}

// Debug records a log message at the Debug level.
func Debug(msg string, fields ...any) {
	fields = checkFields("Debug", fields)

	Logger().Debug().
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Info records a log message at the Info level.
// It accepts a message string and optional key-value field list.
func Info(msg string, fields ...any) {
	fields = checkFields("Info", fields)

	Logger().Info().
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Warn records a log message at the Warn level.
// It accepts a message string and optional key-value field list.
func Warn(msg string, fields ...any) {
	fields = checkFields("Warn", fields)

	Logger().Warn().
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Error records a log message at the Error level.
// It accepts an error object, a message string, and an optional key-value field list.
func Error(err error, msg string, fields ...any) {
	fields = checkFields("Error", fields)

	Logger().Error().
		Err(err).
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Fatal records a log message at the Fatal level and then calls os.Exit(1) to terminate the program.
func Fatal(err error, msg string, fields ...any) {
	fields = checkFields("Fatal", fields)

	Logger().Fatal().
		Err(err).
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}
