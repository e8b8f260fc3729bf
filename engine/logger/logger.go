// Package logger holds the engine-wide structured logger.
//
// By default the engine logs nothing. Applications opt in by installing their own
// zap logger:
//
//	l, _ := zap.NewDevelopment()
//	logger.SetLogger(l)
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// SetLogger installs l as the engine logger. Passing nil restores the silent default.
//
// Parameters:
//   - l: the logger to install, or nil
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// Logger returns the engine logger. It is never nil.
//
// Returns:
//   - *zap.Logger: the current logger
func Logger() *zap.Logger {
	return current.Load()
}

// Named returns a child of the engine logger scoped to a subsystem name.
//
// Parameters:
//   - name: the subsystem name, e.g. "program"
//
// Returns:
//   - *zap.Logger: the scoped logger
func Named(name string) *zap.Logger {
	return current.Load().Named(name)
}
