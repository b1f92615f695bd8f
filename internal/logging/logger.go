package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ariefcatur/go-warranty-cards/internal/config"
)

// New builds the process logger. With LOG_FILE set, JSON lines go to a
// rotated file and a console encoder keeps writing to stdout.
func New(cfg config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.LogMode == "development" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	zcfg.OutputPaths = []string{"stdout"}

	if cfg.LogFile == "" {
		return zcfg.Build(zap.AddCaller())
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotated),
			zcfg.Level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			zcfg.Level,
		),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// Must is New for mains: a broken logger config is fatal.
func Must(cfg config.Config) *zap.Logger {
	l, err := New(cfg)
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(l)
	return l
}
