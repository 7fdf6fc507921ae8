// Package logging writes the pipeline's timestamped log lines to stdout and an
// append-only log file, and forwards WARN and above to a notifier.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TimeLayout is ISO-8601 with numeric offset, second precision.
const TimeLayout = "2006-01-02T15:04:05-07:00"

// Notifier delivers a formatted log line to an external channel.
type Notifier interface {
	Notify(ctx context.Context, line string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, line string) error

func (f NotifierFunc) Notify(ctx context.Context, line string) error { return f(ctx, line) }

// Logger is safe for use from one pipeline run; the mutex only guards the
// ordering of the line and its notification.
type Logger struct {
	mu       sync.Mutex
	zl       zerolog.Logger
	notifier Notifier
	stderr   io.Writer
	now      func() time.Time
	file     *os.File

	// OnNotify, when set, observes every delivery attempt and its result.
	OnNotify func(err error)
}

// Options configure a Logger.
type Options struct {
	Stdout   io.Writer // default os.Stdout
	Stderr   io.Writer // local-only diagnostics, default os.Stderr
	File     io.Writer // optional extra sink; Open uses the log file
	Notifier Notifier
	Now      func() time.Time
}

// New builds a Logger writing to opts.Stdout and opts.File.
func New(opts Options) *Logger {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	writers := []io.Writer{consoleWriter(opts.Stdout)}
	if opts.File != nil {
		writers = append(writers, consoleWriter(opts.File))
	}

	return &Logger{
		zl:       zerolog.New(zerolog.MultiLevelWriter(writers...)),
		notifier: opts.Notifier,
		stderr:   opts.Stderr,
		now:      opts.Now,
	}
}

// Open creates the log file's directory, opens the file for appending and
// returns a Logger teeing to it. Close releases the file.
func Open(path string, opts Options) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create log directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", path)
	}
	opts.File = f
	l := New(opts)
	l.file = f
	return l, nil
}

// Close closes the log file if the Logger owns one.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// SetNotifier replaces the notifier; used once secrets are loaded.
func (l *Logger) SetNotifier(n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifier = n
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:         w,
		NoColor:     true,
		PartsOrder:  []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: formatLevel,
		FormatTimestamp: func(i interface{}) string {
			s, _ := i.(string)
			return s
		},
	}
}

// Format renders one record the way it appears in the log file.
func Format(ts time.Time, level Level, msg string) string {
	return fmt.Sprintf("%s [%s] %s", ts.Format(TimeLayout), level, msg)
}

// Log writes msg at level and, for WARN and above, makes one notification
// attempt with the formatted line. Notification failures only reach stderr.
func (l *Logger) Log(level Level, msg string) {
	l.LogContext(context.Background(), level, msg)
}

// LogContext is Log with a context for the notification request.
func (l *Logger) LogContext(ctx context.Context, level Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now()
	l.zl.WithLevel(level.zerolog()).
		Str(zerolog.TimestampFieldName, ts.Format(TimeLayout)).
		Msg(msg)

	if !level.Notifies() || l.notifier == nil {
		return
	}
	err := l.notifier.Notify(ctx, Format(ts, level, msg))
	if l.OnNotify != nil {
		l.OnNotify(err)
	}
	if err != nil {
		fmt.Fprintf(l.stderr, "notification failed: %v\n", err)
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.Log(Debug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.Log(Info, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.Log(Warn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.Log(Error, fmt.Sprintf(format, args...)) }
func (l *Logger) Criticalf(format string, args ...any) {
	l.Log(Critical, fmt.Sprintf(format, args...))
}
