package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// Init sets up apex/log with the compact handler writing to w at the given
// level name (debug, info, warn, error, fatal). Unknown names mean error.
func Init(level string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	log.SetHandler(&Handler{w: w})
	log.SetLevel(parseLevel(level))
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "fatal":
		return log.FatalLevel
	}
	return log.ErrorLevel
}

// Handler formats entries as "timestamp L message k=v ...".
type Handler struct {
	mu sync.Mutex
	w  io.Writer
}

// HandleLog implements the log.Handler interface
func (h *Handler) HandleLog(e *log.Entry) error {
	level := "?"
	switch e.Level {
	case log.DebugLevel:
		level = "D"
	case log.InfoLevel:
		level = "I"
	case log.WarnLevel:
		level = "W"
	case log.ErrorLevel:
		level = "E"
	case log.FatalLevel:
		level = "F"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", time.Now().Format("2006-01-02 15:04:05"), level, e.Message)

	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// Debugf logs at Debug level.
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Infof logs at Info level.
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warnf logs at Warn level.
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Errorf logs at Error level.
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// WithField returns an entry with one field.
func WithField(key string, value interface{}) *log.Entry {
	return log.WithField(key, value)
}

// WithFields returns an entry with fields.
func WithFields(fields log.Fields) *log.Entry {
	return log.WithFields(fields)
}

// WithError returns an entry with error.
func WithError(err error) *log.Entry {
	return log.WithError(err)
}

// Leveled adapts the logger to the leveled interface used by retrying HTTP
// clients: a message followed by alternating keys and values.
type Leveled struct{}

func (Leveled) Error(msg string, keysAndValues ...interface{}) {
	entry(keysAndValues).Error(msg)
}

func (Leveled) Info(msg string, keysAndValues ...interface{}) {
	entry(keysAndValues).Info(msg)
}

func (Leveled) Debug(msg string, keysAndValues ...interface{}) {
	entry(keysAndValues).Debug(msg)
}

func (Leveled) Warn(msg string, keysAndValues ...interface{}) {
	entry(keysAndValues).Warn(msg)
}

func entry(keysAndValues []interface{}) *log.Entry {
	fields := log.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return log.WithFields(fields)
}
