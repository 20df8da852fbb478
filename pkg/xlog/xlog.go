package xlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Level type
type Level uint8

// Log Level
const (
	ErrorLevel Level = iota
	WarnLevel
	InfoLevel
	DebugLevel
	TraceLevel
	Disabled
)

// TimeFormat
const TimeFormat = "2006/01/02 15:04:05.000"

var levelNames = [...]string{"error", "warn", "info", "debug", "trace", "disabled"}

var glog *Logger

func (lv Level) String() string {
	if int(lv) < len(levelNames) {
		return levelNames[lv]
	}
	return fmt.Sprintf("Level(%d)", lv)
}

// ParseLevel accepts the level names in any case.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return Disabled, errors.Errorf("invalid log level %q", s)
}

func (lv Level) toLogrus() logrus.Level {
	switch lv {
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case InfoLevel:
		return logrus.InfoLevel
	case DebugLevel:
		return logrus.DebugLevel
	case TraceLevel:
		return logrus.TraceLevel
	}
	return logrus.PanicLevel
}

func fromLogrus(lv logrus.Level) Level {
	switch {
	case lv <= logrus.ErrorLevel:
		return ErrorLevel
	case lv == logrus.WarnLevel:
		return WarnLevel
	case lv == logrus.InfoLevel:
		return InfoLevel
	case lv == logrus.DebugLevel:
		return DebugLevel
	}
	return TraceLevel
}

// LogHook implement it and add hook to logger
// msg is pointer can be change
type LogHook interface {
	Hook(lv Level, msg *string) error
}

type hookAdapter struct {
	h LogHook
}

func (a hookAdapter) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (a hookAdapter) Fire(e *logrus.Entry) error {
	return a.h.Hook(fromLogrus(e.Level), &e.Message)
}

// Logger call NewLogger to new one
type Logger struct {
	mux  sync.Mutex
	lg   *logrus.Logger
	lv   Level
	file *os.File
}

// NewLogger create new logger writing text to stdout
func NewLogger() *Logger {
	lg := logrus.New()
	lg.Out = os.Stdout
	lg.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimeFormat,
	}
	lg.Level = logrus.InfoLevel
	return &Logger{lg: lg, lv: InfoLevel}
}

// SetLogLevel level
func (lg *Logger) SetLogLevel(lv Level) {
	lg.mux.Lock()
	defer lg.mux.Unlock()
	lg.lv = lv
	lg.lg.SetLevel(lv.toLogrus())
}

// GetLogLevel level
func (lg *Logger) GetLogLevel() Level {
	lg.mux.Lock()
	defer lg.mux.Unlock()
	return lg.lv
}

// SetJSON switch between json and text output
func (lg *Logger) SetJSON(on bool) {
	if on {
		lg.lg.SetFormatter(&logrus.JSONFormatter{TimestampFormat: TimeFormat})
		return
	}
	lg.lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: TimeFormat})
}

// SetOutput replace the writer
func (lg *Logger) SetOutput(w io.Writer) {
	lg.lg.SetOutput(w)
}

// SetLogFile append log to file, the previous file is closed
func (lg *Logger) SetLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	lg.mux.Lock()
	old := lg.file
	lg.file = f
	lg.mux.Unlock()
	lg.lg.SetOutput(f)
	if old != nil {
		old.Close()
	}
	return nil
}

// AddHook add hook interface
func (lg *Logger) AddHook(h LogHook) {
	lg.lg.AddHook(hookAdapter{h})
}

// Close release the log file if any
func (lg *Logger) Close() {
	lg.mux.Lock()
	defer lg.mux.Unlock()
	if lg.file != nil {
		lg.lg.SetOutput(os.Stdout)
		lg.file.Close()
		lg.file = nil
	}
}

func (lg *Logger) should(lv Level) bool {
	cur := lg.GetLogLevel()
	return cur != Disabled && cur >= lv
}

// Error log by error
func (lg *Logger) Error(format string, v ...interface{}) {
	if lg.should(ErrorLevel) {
		lg.lg.Errorf(format, v...)
	}
}

// Warn log by warn
func (lg *Logger) Warn(format string, v ...interface{}) {
	if lg.should(WarnLevel) {
		lg.lg.Warnf(format, v...)
	}
}

// Info log by info
func (lg *Logger) Info(format string, v ...interface{}) {
	if lg.should(InfoLevel) {
		lg.lg.Infof(format, v...)
	}
}

// Debug log by debug
func (lg *Logger) Debug(format string, v ...interface{}) {
	if lg.should(DebugLevel) {
		lg.lg.Debugf(format, v...)
	}
}

// Trace log by trace
func (lg *Logger) Trace(format string, v ...interface{}) {
	if lg.should(TraceLevel) {
		lg.lg.Tracef(format, v...)
	}
}

// Default return the global logger
func Default() *Logger {
	return glog
}

// SetLogLevel for glog
func SetLogLevel(lv Level) {
	glog.SetLogLevel(lv)
}

// SetJSON for glog
func SetJSON(on bool) {
	glog.SetJSON(on)
}

// SetOutput for glog
func SetOutput(w io.Writer) {
	glog.SetOutput(w)
}

// SetLogFile for glog
func SetLogFile(path string) error {
	return glog.SetLogFile(path)
}

// AddHook for glog
func AddHook(h LogHook) {
	glog.AddHook(h)
}

// Close for glog
func Close() {
	glog.Close()
}

// Error log by error
func Error(format string, v ...interface{}) {
	glog.Error(format, v...)
}

// Warn log by warn
func Warn(format string, v ...interface{}) {
	glog.Warn(format, v...)
}

// Info log by info
func Info(format string, v ...interface{}) {
	glog.Info(format, v...)
}

// Debug log by debug
func Debug(format string, v ...interface{}) {
	glog.Debug(format, v...)
}

// Trace log by trace
func Trace(format string, v ...interface{}) {
	glog.Trace(format, v...)
}

func init() {
	glog = NewLogger()
}
