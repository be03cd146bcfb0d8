// internal/logger/logger.go
package logger

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger configuration
type Config struct {
	LogsDirectory string
	LogFilePath   string // optional; when set, logs are mirrored to this file
	Development   bool
}

var (
	initialized int32 // 0 = not initialized, 1 = initialized
	sugar       *zap.SugaredLogger
	base        *zap.Logger
	logFilePath string
	mu          sync.Mutex // protect against concurrent initialization
)

// SetupLogger initializes the zap-backed logger with console and optional file output.
func SetupLogger(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	if atomic.LoadInt32(&initialized) == 1 {
		return fmt.Errorf("logger already initialized")
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if config.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)

	cores := []zapcore.Core{consoleCore}

	if config.LogFilePath != "" {
		if config.LogsDirectory != "" {
			if err := os.MkdirAll(config.LogsDirectory, 0775); err != nil {
				return fmt.Errorf("creating logs directory %q: %w", config.LogsDirectory, err)
			}
		}
		logFile, err := os.OpenFile(config.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0664)
		if err != nil {
			return fmt.Errorf("opening log file %q: %w", config.LogFilePath, err)
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.Lock(logFile),
			zapcore.InfoLevel,
		)
		cores = append(cores, fileCore)
		logFilePath = config.LogFilePath
	}

	base = zap.New(zapcore.NewTee(cores...), zap.AddCallerSkip(2))
	sugar = base.Sugar()

	atomic.StoreInt32(&initialized, 1)
	LogInfo("Logger initialized, writing to %s", logTarget())
	return nil
}

func logTarget() string {
	if logFilePath == "" {
		return "stdout"
	}
	return logFilePath
}

func GetLogFilePath() string {
	return logFilePath
}

func IsInitialized() bool {
	return atomic.LoadInt32(&initialized) == 1
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	if IsInitialized() {
		_ = base.Sync()
	}
}

func logf(level zapcore.Level, message string, v ...interface{}) {
	if !IsInitialized() {
		// Setup failures and very early startup still need to be visible.
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level.CapitalString(), fmt.Sprintf(message, v...))
		return
	}

	switch level {
	case zapcore.WarnLevel:
		sugar.Warnf(message, v...)
	case zapcore.ErrorLevel:
		sugar.Errorf(message, v...)
	case zapcore.FatalLevel:
		sugar.Fatalf(message, v...)
	default:
		sugar.Infof(message, v...)
	}
}

func LogInfo(message string, v ...interface{})  { logf(zapcore.InfoLevel, message, v...) }
func LogWarn(message string, v ...interface{})  { logf(zapcore.WarnLevel, message, v...) }
func LogError(message string, v ...interface{}) { logf(zapcore.ErrorLevel, message, v...) }
func LogFatal(message string, v ...interface{}) {
	if !IsInitialized() {
		fmt.Fprintf(os.Stderr, "[FATAL] %s\n", fmt.Sprintf(message, v...))
		os.Exit(1)
	}
	logf(zapcore.FatalLevel, message, v...)
}

func LogHTTPRequest(r *http.Request) {
	clientIP := GetClientIP(r)
	LogInfo("HTTP %s %s from %s", r.Method, r.URL.Path, clientIP)
}

func LogHTTPError(r *http.Request, status int, err error) {
	clientIP := GetClientIP(r)
	LogError("HTTP %d error for %s %s from %s: %v", status, r.Method, r.URL.Path, clientIP, err)
}

func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
