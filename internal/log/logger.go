package log

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"packedit/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	isDebug atomic.Bool
	logger  = NewLogger()
)

// Field is one structured key/value pair attached to a log line
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger wraps a logrus logger. The zero value is not usable; use NewLogger.
type Logger struct {
	base *logrus.Logger
	file *os.File
}

// Option configures a Logger
type Option func(*Logger)

// WithOutput sends log lines to w
func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.base.SetOutput(w)
	}
}

// WithJSON switches to one JSON object per line
func WithJSON() Option {
	return func(l *Logger) {
		l.base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	}
}

// WithFile appends log lines to path. When stdout is the current output the
// lines go to both.
func WithFile(path string) Option {
	return func(l *Logger) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			l.base.WithError(err).Warn("could not open log file")
			return
		}
		l.file = f
		if l.base.Out == os.Stdout {
			l.base.SetOutput(io.MultiWriter(os.Stdout, f))
		} else {
			l.base.SetOutput(f)
		}
	}
}

// WithFileOnly writes to path and nowhere else. Used while a terminal UI
// owns stdout.
func WithFileOnly(path string) Option {
	return func(l *Logger) {
		l.base.SetOutput(io.Discard)
		WithFile(path)(l)
	}
}

// NewLogger creates a logger writing human readable lines to stdout
func NewLogger(opts ...Option) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	l := &Logger{base: base}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Configure replaces the package level logger
func Configure(opts ...Option) {
	logger = NewLogger(opts...)
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// SetDebug enables or disables debug lines for every logger
func SetDebug(debug bool) {
	isDebug.Store(debug)
}

// Entry is a log line under construction with its fields
type Entry struct {
	e *logrus.Entry
}

func toLogrus(fields []Field) logrus.Fields {
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return lf
}

// With attaches fields
func (l *Logger) With(fields ...Field) *Entry {
	return &Entry{e: l.base.WithFields(toLogrus(fields))}
}

// WithContext is reserved for request scoped fields
func (l *Logger) WithContext(ctx context.Context) *Entry {
	if ctx == nil {
		return &Entry{e: logrus.NewEntry(l.base)}
	}
	return &Entry{e: l.base.WithContext(ctx)}
}

// WithError attaches err together with its kind and path or param
func (l *Logger) WithError(err error) *Entry {
	return &Entry{e: l.base.WithFields(errorFields(err))}
}

func errorFields(err error) logrus.Fields {
	fields := logrus.Fields{}
	if err == nil {
		fields["error"] = "<nil>"
		return fields
	}
	fields["error"] = err.Error()
	fields["error_kind"] = int(errors.KindOf(err))

	var entryErr *errors.EntryError
	if errors.As(err, &entryErr) && entryErr.Path() != "" {
		fields["path"] = entryErr.Path()
	}
	var configErr *errors.ConfigError
	if errors.As(err, &configErr) && configErr.Param() != "" {
		fields["param"] = configErr.Param()
	}
	return fields
}

func (l *Logger) Info(msg string)                   { l.base.Info(msg) }
func (l *Logger) Infof(format string, args ...any)  { l.base.Infof(format, args...) }
func (l *Logger) Warn(msg string)                   { l.base.Warn(msg) }
func (l *Logger) Warnf(format string, args ...any)  { l.base.Warnf(format, args...) }
func (l *Logger) Error(msg string)                  { l.base.Error(msg) }
func (l *Logger) Errorf(format string, args ...any) { l.base.Errorf(format, args...) }

func (l *Logger) Debug(msg string) {
	if isDebug.Load() {
		l.base.Debug(msg)
	}
}

func (l *Logger) Debugf(format string, args ...any) {
	if isDebug.Load() {
		l.base.Debugf(format, args...)
	}
}

// With adds more fields to the entry
func (e *Entry) With(fields ...Field) *Entry {
	return &Entry{e: e.e.WithFields(toLogrus(fields))}
}

// WithError adds err and its kind to the entry
func (e *Entry) WithError(err error) *Entry {
	return &Entry{e: e.e.WithFields(errorFields(err))}
}

func (e *Entry) Info(msg string)                   { e.e.Info(msg) }
func (e *Entry) Infof(format string, args ...any)  { e.e.Infof(format, args...) }
func (e *Entry) Warn(msg string)                   { e.e.Warn(msg) }
func (e *Entry) Warnf(format string, args ...any)  { e.e.Warnf(format, args...) }
func (e *Entry) Error(msg string)                  { e.e.Error(msg) }
func (e *Entry) Errorf(format string, args ...any) { e.e.Errorf(format, args...) }

func (e *Entry) Debug(msg string) {
	if isDebug.Load() {
		e.e.Debug(msg)
	}
}

func (e *Entry) Debugf(format string, args ...any) {
	if isDebug.Load() {
		e.e.Debugf(format, args...)
	}
}

// LogWithFields starts a line on the package logger
func LogWithFields(fields ...Field) *Entry {
	return logger.With(fields...)
}

// LogWithError starts a line on the package logger describing err
func LogWithError(err error) *Entry {
	return logger.WithError(err)
}

// LogError logs err at error level
func LogError(err error, msg string) {
	logger.WithError(err).Error(msg)
}

func Info(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// Debug logs a message with arguments
func Debug(msg string, args ...interface{}) {
	if len(args) == 0 {
		logger.Debug(msg)
		return
	}
	logger.Debugf(msg+": %v", args...)
}

// Debugf logs a formatted message
func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// Error logs an error message with arguments
func Error(msg string, args ...interface{}) {
	if len(args) == 0 {
		logger.Error(msg)
		return
	}
	logger.Errorf(msg+": %v", args...)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// Warn logs a warning message with arguments
func Warn(msg string, args ...interface{}) {
	if len(args) == 0 {
		logger.Warn(msg)
		return
	}
	logger.Warnf(msg+": %v", args...)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}
