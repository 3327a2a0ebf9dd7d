// Package logging provides categorized zap loggers for locvault.
// Categories map to the subsystems of the store so log output can be
// filtered per concern.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // startup, config, schema migration
	CategoryStore   Category = "store"   // originals/subsets/metadata operations
	CategoryMerge   Category = "merge"   // merge engine invocations
	CategoryExport  Category = "export"  // export artifact production
	CategoryListing Category = "listing" // combined listing queries
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = make(map[Category]*zap.Logger)
)

// Initialize installs the process-wide root logger. verbose enables debug
// level. Safe to call more than once; later calls replace the root and
// drop cached category loggers.
func Initialize(verbose bool) error {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*zap.Logger)
	return nil
}

// Get returns the logger for a category. Before Initialize it returns a
// no-op logger, so library code can log unconditionally.
func Get(c Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}
	l := root.Named(string(c))
	loggers[c] = l
	return l
}

// Sync flushes buffered log entries. Called on process shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
