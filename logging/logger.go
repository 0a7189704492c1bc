// Package logging builds the zap loggers used across the service.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeFmt = "2006/01/02 15:04:05.000"

// Config selects the logger's level and sinks
type Config struct {
	Level string
	App   string
	// Dir holds the rotated log files when File is set
	Dir  string
	File bool
	// Console receives the coloured console output; nil means stdout.
	// The stdio MCP mode points it at stderr because stdout carries the protocol.
	Console io.Writer
}

// New creates a logger from cfg. An invalid level falls back to info.
func New(cfg Config) *zap.Logger {
	if cfg.App == "" {
		cfg.App = "snake"
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}

	lv := zap.NewAtomicLevel()
	if err := lv.UnmarshalText([]byte(cfg.Level)); err != nil || cfg.Level == "" {
		lv.SetLevel(zapcore.InfoLevel)
		if cfg.Level != "" {
			fmt.Fprintf(os.Stderr, "logger: invalid log level %q, defaulting to INFO\n", cfg.Level)
		}
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg(false)),
			zapcore.Lock(zapcore.AddSync(cfg.Console)),
			lv,
		),
	}
	if cfg.File {
		name := filepath.Join(cfg.Dir, cfg.App)
		cores = append(cores, fileCore(name+".log", lv))
		cores = append(cores, fileCore(name+"_error.log", zap.ErrorLevel))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// OrNop returns logger, or a no-op logger when it is nil
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func fileCore(file string, lv zapcore.LevelEnabler) zapcore.Core {
	w := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     10,
		Compress:   true,
	}
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg(true)),
		zapcore.AddSync(w),
		lv,
	)
}

func encCfg(file bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + t.Format(timeFmt) + "]")
	}
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.ConsoleSeparator = " "
	if file {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg
}
