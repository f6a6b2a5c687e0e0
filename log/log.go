// Copyright 2026 The satellion Authors
// This file is part of the satellion library.
//
// The satellion library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The satellion library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the satellion library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the key/value logger handed out to each module.
type Logger interface {
	NewWith(keysAndValues ...interface{}) Logger
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	// Crit logs the message and terminates the process.
	Crit(msg string, keysAndValues ...interface{})
}

type zapLogger struct {
	sugared *zap.SugaredLogger
}

func (l *zapLogger) NewWith(keysAndValues ...interface{}) Logger {
	return &zapLogger{sugared: l.sugared.With(keysAndValues...)}
}

func (l *zapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugared.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugared.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugared.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugared.Errorw(msg, keysAndValues...)
}

func (l *zapLogger) Crit(msg string, keysAndValues ...interface{}) {
	l.sugared.Fatalw(msg, keysAndValues...)
}

var (
	baseMu     sync.Mutex
	baseLogger *zap.SugaredLogger
	level      = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func base() *zap.SugaredLogger {
	baseMu.Lock()
	defer baseMu.Unlock()
	if baseLogger == nil {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		)
		baseLogger = zap.New(core).Sugar()
	}
	return baseLogger
}

// NewModuleLogger returns a logger tagged with the given module name.
func NewModuleLogger(mi ModuleID) Logger {
	return &zapLogger{sugared: base().With("module", mi.String())}
}

// New returns a logger carrying the given context pairs.
func New(keysAndValues ...interface{}) Logger {
	return &zapLogger{sugared: base().With(keysAndValues...)}
}

// ChangeGlobalLogLevel adjusts the level of every module logger at once.
// Verbosity follows the CLI convention 0=crit, 1=error, 2=warn, 3=info, 4+=debug.
func ChangeGlobalLogLevel(verbosity int) {
	switch {
	case verbosity <= 0:
		level.SetLevel(zapcore.FatalLevel)
	case verbosity == 1:
		level.SetLevel(zapcore.ErrorLevel)
	case verbosity == 2:
		level.SetLevel(zapcore.WarnLevel)
	case verbosity == 3:
		level.SetLevel(zapcore.InfoLevel)
	default:
		level.SetLevel(zapcore.DebugLevel)
	}
}
