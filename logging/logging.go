/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log modes accepted by New.
const (
	ModeDebug = "debug"
	ModeLog   = "log"
	ModeWarn  = "warn"
	ModeError = "error"
)

// DefaultModes are used when no mode is configured.
var DefaultModes = []string{ModeLog, ModeWarn, ModeError}

// New builds a JSON logger writing to stderr that emits only the levels
// named by modes.
func New(modes []string) (*zap.Logger, error) {
	return NewWithWriter(modes, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(modes []string, w io.Writer) (*zap.Logger, error) {
	if len(modes) == 0 {
		modes = DefaultModes
	}
	enabled := map[zapcore.Level]bool{}
	for _, mode := range modes {
		switch mode {
		case ModeDebug:
			enabled[zapcore.DebugLevel] = true
		case ModeLog:
			enabled[zapcore.InfoLevel] = true
		case ModeWarn:
			enabled[zapcore.WarnLevel] = true
		case ModeError:
			for _, l := range []zapcore.Level{zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel} {
				enabled[l] = true
			}
		default:
			return nil, fmt.Errorf("unknown log mode %q", mode)
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		zap.LevelEnablerFunc(func(l zapcore.Level) bool { return enabled[l] }),
	)
	return zap.New(core), nil
}
