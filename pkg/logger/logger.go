package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"video-api/pkg/config"
)

// Logger 封装logrus，提供统一的日志出口
type Logger struct {
	entry *logrus.Logger
	file  io.Closer
}

var (
	globalMu     sync.RWMutex
	globalLogger = newDefault()
)

func newDefault() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{entry: l}
}

// NewLogger 根据配置构建日志器
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger := &Logger{entry: l}
	if cfg.Log.Output != "" && cfg.Log.Output != "stdout" {
		if f, err := os.OpenFile(cfg.Log.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			l.SetOutput(f)
			logger.file = f
		} else {
			l.SetOutput(os.Stdout)
			l.Warnf("failed to open log file %s, fallback to stdout: %v", cfg.Log.Output, err)
		}
	} else {
		l.SetOutput(os.Stdout)
	}

	return logger
}

// SetGlobalLogger 设置全局日志器
func SetGlobalLogger(l *Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Close 关闭日志输出文件
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

// Info 记录信息日志，fields为结构化字段
func Info(msg string, fields map[string]interface{}) {
	global().entry.WithFields(fields).Info(msg)
}

// Debug 记录调试日志
func Debug(msg string, fields ...map[string]interface{}) {
	e := global().entry
	if len(fields) > 0 {
		e.WithFields(fields[0]).Debug(msg)
		return
	}
	e.Debug(msg)
}

// Error 记录错误日志
func Error(msg string, fields map[string]interface{}) {
	global().entry.WithFields(fields).Error(msg)
}

// Infof 格式化信息日志
func Infof(format string, args ...interface{}) {
	global().entry.Infof(format, args...)
}

// Warnf 格式化警告日志
func Warnf(format string, args ...interface{}) {
	global().entry.Warnf(format, args...)
}

// Errorf 格式化错误日志
func Errorf(format string, args ...interface{}) {
	global().entry.Errorf(format, args...)
}

// Debugf 格式化调试日志
func Debugf(format string, args ...interface{}) {
	global().entry.Debugf(format, args...)
}

// Fatal 记录致命错误并退出
func Fatal(msg string) {
	global().entry.Fatal(msg)
}
