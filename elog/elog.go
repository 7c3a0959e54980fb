// Package elog configures the engine's default slog logger, grounded on
// the teacher's ConfigureLogging/SetLogLevel.
package elog

import (
	"log/slog"
	"os"
)

var logLevel = new(slog.LevelVar)

// Configure sets up the global default logger with a TextHandler and
// configures its level from the EMBERCACHE_LOG_LEVEL environment variable,
// defaulting to Info. Call this once at startup to use the engine's
// default logging; Store.Open does not call it implicitly, so embedding
// applications keep control of their own logger setup.
func Configure() {
	logLevel.Set(slog.LevelInfo)

	switch os.Getenv("EMBERCACHE_LOG_LEVEL") {
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLevel changes the level of the logger configured by Configure.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}
