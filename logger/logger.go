package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config mirrors config.LogConfig so this package stays import-free of config.
type Config struct {
	Level  string
	Output string
	File   string
}

var (
	mu            sync.RWMutex
	defaultLogger = zap.NewNop()
)

// New 创建 zap 日志器；output=file 时通过 lumberjack 轮转
func New(cfg Config) (*zap.Logger, error) {
	level := ParseLevel(cfg.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	encCfg.MessageKey = "message"

	var sink zapcore.WriteSyncer
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		sink = zapcore.Lock(os.Stdout)
	case "stderr":
		sink = zapcore.Lock(os.Stderr)
	case "file":
		if cfg.File == "" {
			return nil, fmt.Errorf("log.file is required when log.output=file")
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	default:
		return nil, fmt.Errorf("unsupported log output %q", cfg.Output)
	}

	var encoder zapcore.Encoder
	if level == zapcore.DebugLevel {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller()), nil
}

// SetDefault installs l as the logger behind the package helpers.
func SetDefault(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	defaultLogger = l
}

func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

func Debug(format string, args ...any) {
	L().WithOptions(zap.AddCallerSkip(1)).Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...any) {
	L().WithOptions(zap.AddCallerSkip(1)).Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...any) {
	L().WithOptions(zap.AddCallerSkip(1)).Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...any) {
	L().WithOptions(zap.AddCallerSkip(1)).Error(fmt.Sprintf(format, args...))
}

func Sync() {
	_ = L().Sync()
}

func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
