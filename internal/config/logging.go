package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/domain"
)

// NewLogger builds a logger from the logging section. Unknown levels fall
// back to info.
func NewLogger(c domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	ApplyLogging(logger, c)
	return logger
}

// ApplyLogging reconfigures an existing logger in place.
func ApplyLogging(logger *logrus.Logger, c domain.LoggingConfig) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(c.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger.SetOutput(outputFor(c.Output))
}

func outputFor(name string) io.Writer {
	switch strings.ToLower(name) {
	case "stdout":
		return os.Stdout
	default:
		return os.Stderr
	}
}
