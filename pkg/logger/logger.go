// Package logger provides the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the global logger. It is usable before Init is called (tests, tools)
// and gets reconfigured by Init at process start.
var Log = logrus.New()

// Init configures the global logger from the environment.
// LOG_LEVEL selects the level (default "info"), LOG_FORMAT=json switches to
// JSON output for log collectors, anything else uses the text formatter.
func Init() {
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	Log.SetOutput(os.Stdout)
}

// Silence discards all log output. Used by tests that drive noisy code paths.
func Silence() {
	Log.SetOutput(io.Discard)
}

// Instance returns an entry tagged with a simulation instance id.
func Instance(id string) *logrus.Entry {
	return Log.WithField("instance", id)
}
