package cliapp

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// traceLevel implements spec §6's TRACE verbosity as a custom zapcore.Level
// below Debug, the same "extra level beneath the stock set" convention
// theRebelliousNerd-codenerd uses for its own verbose flag.
const traceLevel = zapcore.Level(-2)

// NewLogger builds the process-wide structured logger. Precedence follows
// spec §6: `-v`/`-vv` flags win over RASH_LOG_LEVEL, which wins over the
// default Info level — the same flag-over-env-over-default order the
// teacher's config.go resolves DEVSHELL_CONFIG_DIR with.
func NewLogger(opts Options) *zap.Logger {
	level := levelFor(opts)

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = ""
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func levelFor(opts Options) zapcore.Level {
	switch {
	case opts.Verbosity >= 2:
		return traceLevel
	case opts.Verbosity == 1:
		return zapcore.DebugLevel
	}
	switch os.Getenv("RASH_LOG_LEVEL") {
	case "TRACE":
		return traceLevel
	case "DEBUG":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
