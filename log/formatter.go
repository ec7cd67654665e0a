package log

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type Formatter struct {
	Color bool
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	_, _ = fmt.Fprintf(buf, "%s ", entry.Time.Format(time.RFC3339))
	printLogLevel(buf, entry.Level, f.Color)
	_, _ = fmt.Fprintf(buf, "%s ", firstUpper(entry.Message))
	printFields(buf, entry.Data)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func firstUpper(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Fields are printed in key order so that lines are stable across runs.
func printFields(w io.Writer, fields logrus.Fields) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		suffix := ""
		if i < len(keys)-1 {
			suffix = ", "
		}
		_, _ = fmt.Fprintf(w, "%s=%v%s", k, fields[k], suffix)
	}
}

func printLogLevel(w io.Writer, level logrus.Level, colored bool) {
	var attr color.Attribute
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		attr = color.FgWhite
	case logrus.WarnLevel:
		attr = color.FgYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		attr = color.FgRed
	default:
		attr = color.FgCyan
	}
	levelString := strings.ToUpper(level.String())
	if colored {
		c := color.New(attr)
		// forced on, whatever the tty detection says
		c.EnableColor()
		_, _ = fmt.Fprintf(w, "%s ", c.Sprint(levelString))
	} else {
		_, _ = fmt.Fprintf(w, "%-7s ", levelString)
	}
}
