// Package logging configures logrus for secretline and hands out per-package
// entries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. format is "text" or "json";
// an empty level keeps the current one.
func Setup(level, format string, out io.Writer) error {
	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)

	switch strings.ToLower(format) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// For returns an entry tagged with the package name.
func For(pkg string) *logrus.Entry {
	return logrus.WithField("package", pkg)
}
