package bench

import (
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logFiles hands out one logger per configuration, teeing the runner's
// core into <dir>/<backend>_<hash>_<field>_<threads>_thread.log
type logFiles struct {
	dir  string
	base *zap.Logger

	mu      sync.Mutex
	writers map[string]*lumberjack.Logger
	loggers map[string]*zap.Logger
}

func newLogFiles(dir string, base *zap.Logger) *logFiles {
	return &logFiles{
		dir:     dir,
		base:    base,
		writers: make(map[string]*lumberjack.Logger),
		loggers: make(map[string]*zap.Logger),
	}
}

// For returns the logger of a configuration. Without a directory it is the
// base logger.
func (l *logFiles) For(cfg Configuration) *zap.Logger {
	if l.dir == "" {
		return l.base
	}
	name := cfg.LogName()

	l.mu.Lock()
	defer l.mu.Unlock()
	if logger, ok := l.loggers[name]; ok {
		return logger
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(l.dir, name),
		MaxSize:    100,
		MaxBackups: 3,
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	logger := l.base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))

	l.writers[name] = w
	l.loggers[name] = logger
	return logger
}

// Close flushes and closes every log file
func (l *logFiles) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for name, logger := range l.loggers {
		_ = logger.Sync()
		if err := l.writers[name].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.writers = make(map[string]*lumberjack.Logger)
	l.loggers = make(map[string]*zap.Logger)
	return firstErr
}
