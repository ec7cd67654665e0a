package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestFormatter(t *testing.T) {
	assert := assert.New(t)
	var buf bytes.Buffer
	logger := New("debug", &buf)
	logger.WithFields(logrus.Fields{"b": 2, "a": "x"}).Warn("apply failed")

	line := buf.String()
	assert.True(strings.HasSuffix(line, "\n"))
	assert.Contains(line, "WARNING Apply failed a=x, b=2")
}

func TestLevelFallback(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, New("loud", nil).GetLevel())
	assert.Equal(t, logrus.DebugLevel, New("debug", nil).GetLevel())
}

func TestColoredLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", &buf)
	logger.SetFormatter(&Formatter{Color: true})
	logger.Error("boom")
	assert.Contains(t, buf.String(), "\x1b[31mERROR\x1b[0m Boom")
}
