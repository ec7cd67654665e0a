package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLogger is the process wide logger, at info level with the crystal text format.
func DefaultLogger() logrus.FieldLogger {
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(new(Formatter))
	return logrus.StandardLogger()
}

// New builds a standalone logger. An unknown level falls back to info.
func New(level string, out io.Writer) *logrus.Logger {
	ret := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	ret.SetOutput(out)
	ret.SetFormatter(new(Formatter))
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	ret.SetLevel(lvl)
	return ret
}

// Discard is used by components constructed without a logger.
func Discard() logrus.FieldLogger {
	ret := logrus.New()
	ret.SetOutput(io.Discard)
	ret.SetLevel(logrus.PanicLevel)
	return ret
}
