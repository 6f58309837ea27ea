package marshal

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// logLevel is a logging severity, mirroring the small leveled-logger
// interface the teacher's pe.File accepts through Options.Logger
// (github.com/saferwall/pe/log's Helper), backed here by logrus.
type logLevel int

const (
	logDebug logLevel = iota
	logWarn
	logError
)

// logHelper adds printf-style convenience methods over a *logrus.Logger,
// the way pe.File.logger (a *log.Helper) is used throughout Parse.
type logHelper struct {
	entry *logrus.Logger
}

// newLogHelper wraps l, falling back to a logger with its output
// discarded when l is nil, so that the documented zero-value Options
// default (Options.Logger == nil) is actually silent.
func newLogHelper(l *logrus.Logger) *logHelper {
	if l == nil {
		l = logrus.New()
		l.SetOutput(io.Discard)
	}
	return &logHelper{entry: l}
}

func (h *logHelper) log(level logLevel, format string, args ...interface{}) {
	if h == nil || h.entry == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	switch level {
	case logDebug:
		h.entry.Debug(msg)
	case logWarn:
		h.entry.Warn(msg)
	case logError:
		h.entry.Error(msg)
	}
}

func (h *logHelper) Debugf(format string, args ...interface{}) { h.log(logDebug, format, args...) }
func (h *logHelper) Warnf(format string, args ...interface{})  { h.log(logWarn, format, args...) }
func (h *logHelper) Errorf(format string, args ...interface{}) { h.log(logError, format, args...) }
