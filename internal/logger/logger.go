// Package logger configures the process-wide logrus logger.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to out at the given level ("debug", "info", ...)
// and format ("text" or "json").
func New(out io.Writer, level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	if err := configure(log, level, format); err != nil {
		return nil, err
	}
	return log, nil
}

// Setup applies level and format to the standard logger and returns it.
func Setup(out io.Writer, level, format string) (*logrus.Logger, error) {
	log := logrus.StandardLogger()
	log.SetOutput(out)

	if err := configure(log, level, format); err != nil {
		return nil, err
	}
	return log, nil
}

func configure(log *logrus.Logger, level, format string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("log format: unknown format %q", format)
	}
	return nil
}
