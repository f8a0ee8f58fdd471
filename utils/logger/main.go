package logger

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Configure sets the level (debug, info, warn, error) and the formatter (text or json)
func Configure(level string, format string) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// SetOutput redirects the log output
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// WithFields returns an entry carrying the given context
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(logrus.Fields(fields))
}

// Err logs error level messages, returns the error so it can be chained
func Err(err error) error {
	log.Error(err.Error())
	return err
}

// ErrStr logs error level messages, returns the error so it can be chained
func ErrStr(err string) error {
	log.Error(err)
	return errors.New(err)
}

// ErrFmt logs error level messages, returns the error so it can be chained.
// The returned error wraps err.
func ErrFmt(fmtstr string, err error) error {
	wrapped := fmt.Errorf(fmtstr, err)
	log.Error(wrapped.Error())
	return wrapped
}

// Warn logs warning level messages
func Warn(msg string) {
	log.Warn(msg)
}

// WarnFmt logs warning level formatted messages
func WarnFmt(fmtstr string, args ...interface{}) {
	log.Warnf(fmtstr, args...)
}

// Info logs info level messages
func Info(msg string) {
	log.Info(msg)
}

// InfoFmt logs info level formatted messages
func InfoFmt(fmtstr string, args ...interface{}) {
	log.Infof(fmtstr, args...)
}

// Debug logs debug level messages
func Debug(msg string) {
	log.Debug(msg)
}

// DebugFmt logs debug level formatted messages
func DebugFmt(fmtstr string, args ...interface{}) {
	log.Debugf(fmtstr, args...)
}
