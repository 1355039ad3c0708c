package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hamed0406/bgpcheck/internal/config"
)

// Options describes where log entries go. Standard output is never used:
// it carries the route commands.
type Options struct {
	// Verbosity is the -v count: 0 warn, 1 info, 2 and more debug.
	Verbosity int
	// Console defaults to stderr.
	Console io.Writer
	Targets []config.LogTarget
}

func ConsoleLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zap.WarnLevel
	case verbosity == 1:
		return zap.InfoLevel
	}
	return zap.DebugLevel
}

// New builds a logger writing to the console and every configured target.
func New(opts Options) (*zap.Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	cc := zap.NewProductionEncoderConfig()
	cc.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(cc), zapcore.AddSync(console), ConsoleLevel(opts.Verbosity)),
	}

	for _, t := range opts.Targets {
		core, err := targetCore(t)
		if err != nil {
			return nil, fmt.Errorf("log target %s %s: %w", t.Method, t.Destination, err)
		}
		cores = append(cores, newFilterCore(core, t.Checks, t.General))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

func targetCore(t config.LogTarget) (zapcore.Core, error) {
	level := zap.InfoLevel
	if t.Level != "" {
		l, err := zapcore.ParseLevel(t.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}

	var w zapcore.WriteSyncer
	switch t.Method {
	case "file":
		if err := os.MkdirAll(filepath.Dir(t.Destination), 0o755); err != nil {
			return nil, err
		}
		w = zapcore.AddSync(&lumberjack.Logger{
			Filename:   t.Destination,
			MaxSize:    t.MaxSizeMB, // MB
			MaxBackups: t.MaxBackups,
			MaxAge:     t.MaxAgeDays, // days
			Compress:   t.Compress,
		})
	case "syslog":
		sw, err := dialSyslog(t)
		if err != nil {
			return nil, err
		}
		w = zapcore.AddSync(sw)
	default:
		return nil, fmt.Errorf("unknown log method %q", t.Method)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	return zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, level), nil
}
