package logger

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Initialize sets up the logger with the specified level and format.
// Format "json" emits structured JSON events; anything else uses the
// plain text formatter.
func Initialize(level, format string) {
	log.SetOutput(os.Stdout)
	log.SetLevel(parseLevel(level))

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006/01/02 15:04:05",
		})
	}
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	log.Debugf(format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	log.Infof(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	log.Warnf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	log.Errorf(format, v...)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(fields)
}

// ToolCall emits the structured per-invocation event consumed by the
// observability sink: tool name, client, duration, and outcome.
func ToolCall(requestID, tool, client string, duration time.Duration, outcome string) {
	log.WithFields(logrus.Fields{
		"request_id": requestID,
		"tool":       tool,
		"client":     client,
		"duration":   duration.Seconds(),
		"outcome":    outcome,
	}).Info("tool call")
}
