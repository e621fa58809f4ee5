package winc

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is what every component logs through. Components derive a child
// tagged with their name.
type Logger interface {
	Info(...interface{})
	Debug(...interface{})
	Error(...interface{})
	Warn(...interface{})

	Infof(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Warnf(string, ...interface{})

	ChildLogger(tags map[string]interface{}) Logger
}

// LogLevelEnv names the variable read for the default logger's level.
const LogLevelEnv = "WINC_LOG"

var (
	logger   Logger
	loggerMu sync.Mutex
)

// SetLogLevel changes the level of the default logger, e.g. "debug" or "warn".
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "bad log level")
	}

	lg, ok := GetLogger().(*logrusLogger)
	if !ok {
		return errors.New("custom logger installed, level not changed")
	}
	lg.Entry.Logger.SetLevel(lvl)
	return nil
}

// SetLogLevelMax turns on trace output for the default logger.
func SetLogLevelMax() {
	if err := SetLogLevel(logrus.TraceLevel.String()); err != nil {
		GetLogger().Error(err)
	}
}

// SetLogger replaces the package logger. Components created afterwards use it.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func GetLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		logger = newLogrusLogger(os.Getenv(LogLevelEnv))
	}
	return logger
}

// ComponentLogger returns a child of the package logger tagged with the component name.
func ComponentLogger(name string) Logger {
	return GetLogger().ChildLogger(map[string]interface{}{"component": name})
}

type logrusLogger struct {
	*logrus.Entry
}

// newLogrusLogger writes text to stderr at level, Info when level is empty
// or unknown.
func newLogrusLogger(level string) Logger {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	l := &logrus.Logger{
		Formatter: &logrus.TextFormatter{DisableTimestamp: true},
		Level:     lvl,
		Out:       os.Stderr,
		Hooks:     make(logrus.LevelHooks),
	}
	return &logrusLogger{Entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) ChildLogger(tags map[string]interface{}) Logger {
	return &logrusLogger{l.Entry.WithFields(tags)}
}
