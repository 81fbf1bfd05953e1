// Package logger holds the logrus logger shared by postrender's commands and
// libraries. setupRun tags a run_id entry onto the command context, and the
// packages below it log through G(ctx) so every line of a run carries that id.
package logger

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Log formats accepted by SetLogFormat. Anything else selects FormatFmt.
const (
	FormatFmt  = "fmt"
	FormatText = "text"
	FormatJSON = "json"
)

// RunIDField is the field that correlates the log lines of one invocation.
const RunIDField = "run_id"

var (
	// G returns the entry for ctx.
	G = GetLogger
	// L is used when ctx carries no entry.
	L = logrus.NewEntry(newLogger())
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying entry.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry.WithContext(ctx))
}

// GetLogger returns the entry carried by ctx, or L.
func GetLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return L.WithContext(ctx)
}

// WithRunID tags the entry of ctx with a new run id.
func WithRunID(ctx context.Context) (context.Context, string) {
	runID := uuid.NewString()
	return WithLogger(ctx, G(ctx).WithField(RunIDField, runID)), runID
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = formatterFor(FormatFmt)
	l.SetLevel(logrus.InfoLevel)
	return l
}

func formatterFor(format string) logrus.Formatter {
	if format == FormatJSON {
		return &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "logLevel",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
	}
	return &logrus.TextFormatter{
		TimestampFormat: time.RFC3339Nano,
		FullTimestamp:   true,
	}
}

// SetLogLevel parses level (for example "debug" or "warn") and applies it to L.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	L.Logger.SetLevel(lvl)
	return nil
}

// SetLogFormat switches L between FormatFmt and FormatJSON.
func SetLogFormat(format string) {
	L.Logger.Formatter = formatterFor(format)
}

// SetLogOutput redirects L.
func SetLogOutput(w io.Writer) {
	L.Logger.SetOutput(w)
}
