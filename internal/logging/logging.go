package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// Field names used in every emitted record.
const (
	FieldComponent = "logger"
	FieldFile      = "file"
)

const timestampFormat = "2006-01-02T15:04:05"

// Logger is the interface to our internal logger.
type Logger interface {
	Debug(msg string, kvpairs ...interface{})
	Info(msg string, kvpairs ...interface{})
	Warn(msg string, kvpairs ...interface{})
	Error(msg string, kvpairs ...interface{})
	SetField(key string, val interface{})
}

// LogrusLogger is a thread-safe logger whose properties persist and can be modified.
type LogrusLogger struct {
	mtx    sync.Mutex
	logger *logrus.Entry
	ctx    string
	fields map[string]interface{}
}

// NoopLogger implements Logger, but does nothing.
type NoopLogger struct{}

// LogrusLogger implements Logger
var _ Logger = (*LogrusLogger)(nil)
var _ Logger = (*NoopLogger)(nil)

// Configure sets up the process-wide logrus output: one JSON record per line
// written to out, at debug level if verbose is set and info level otherwise.
func Configure(out io.Writer, verbose bool) {
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

//
// LogrusLogger
//

// NewLogrusLogger will instantiate a logger for the given component.
func NewLogrusLogger(ctx string, kvpairs ...interface{}) Logger {
	var logger *logrus.Entry
	if len(ctx) > 0 {
		logger = logrus.WithField(FieldComponent, ctx)
	} else {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogrusLogger{
		logger: logger,
		ctx:    ctx,
		fields: serializeKVPairs(kvpairs...),
	}
}

func serializeKVPairs(kvpairs ...interface{}) map[string]interface{} {
	res := make(map[string]interface{})
	if (len(kvpairs) % 2) == 0 {
		for i := 0; i < len(kvpairs); i += 2 {
			key, ok := kvpairs[i].(string)
			if !ok {
				key = fmt.Sprintf("%v", kvpairs[i])
			}
			res[key] = kvpairs[i+1]
		}
	}
	return res
}

// callerLocation reports "file.go:line" for the code that called into the
// Logger. skip counts the frames between this function and that caller.
func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "???"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func (l *LogrusLogger) entry(file string, kvpairs ...interface{}) *logrus.Entry {
	e := l.logger
	if len(l.fields) > 0 {
		e = e.WithFields(l.fields)
	}
	if fields := serializeKVPairs(kvpairs...); len(fields) > 0 {
		e = e.WithFields(fields)
	}
	return e.WithField(FieldFile, file)
}

func (l *LogrusLogger) log(level logrus.Level, msg string, kvpairs ...interface{}) {
	// log <- Debug/Info/Warn/Error <- caller
	file := callerLocation(2)
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.entry(file, kvpairs...).Logln(level, msg)
}

func (l *LogrusLogger) Debug(msg string, kvpairs ...interface{}) {
	l.log(logrus.DebugLevel, msg, kvpairs...)
}

func (l *LogrusLogger) Info(msg string, kvpairs ...interface{}) {
	l.log(logrus.InfoLevel, msg, kvpairs...)
}

func (l *LogrusLogger) Warn(msg string, kvpairs ...interface{}) {
	l.log(logrus.WarnLevel, msg, kvpairs...)
}

func (l *LogrusLogger) Error(msg string, kvpairs ...interface{}) {
	l.log(logrus.ErrorLevel, msg, kvpairs...)
}

func (l *LogrusLogger) SetField(key string, val interface{}) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.fields[key] = val
}

//
// NoopLogger
//

// NewNoopLogger will instantiate a logger that does nothing when called.
func NewNoopLogger() Logger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, kvpairs ...interface{}) {}
func (l *NoopLogger) Info(msg string, kvpairs ...interface{})  {}
func (l *NoopLogger) Warn(msg string, kvpairs ...interface{})  {}
func (l *NoopLogger) Error(msg string, kvpairs ...interface{}) {}
func (l *NoopLogger) SetField(key string, val interface{})     {}
