package fiberrunner

import (
	"context"
	"sync"

	"github.com/Swind/go-fiber-runner/core"
)

// =============================================================================
// Global Pool Helper (Singleton)
// =============================================================================

var (
	globalPool *core.Pool
	globalMu   sync.Mutex
)

// InitGlobalPool creates and starts the global pool with the given number of
// workers. Calling it again while a global pool exists is a no-op.
func InitGlobalPool(workers int) error {
	config := core.DefaultPoolConfig()
	config.Name = "global-pool"
	config.Workers = workers
	return InitGlobalPoolWithConfig(config)
}

// InitGlobalPoolWithConfig is InitGlobalPool with a full configuration.
func InitGlobalPoolWithConfig(config *core.PoolConfig) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool != nil {
		return nil // Already initialized
	}

	pool, err := core.NewPoolWithConfig(config)
	if err != nil {
		return err
	}
	globalPool = pool
	return nil
}

// GetGlobalPool returns the global pool instance.
// It panics if InitGlobalPool has not been called.
func GetGlobalPool() *core.Pool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool == nil {
		panic("GlobalPool not initialized. Call InitGlobalPool() first.")
	}
	return globalPool
}

// ShutdownGlobalPool drains and stops the global pool.
func ShutdownGlobalPool() {
	globalMu.Lock()
	pool := globalPool
	globalPool = nil
	globalMu.Unlock()

	if pool != nil {
		pool.Shutdown()
	}
}

// ShutdownGlobalPoolContext is ShutdownGlobalPool with a deadline; see
// Pool.ShutdownContext.
func ShutdownGlobalPoolContext(ctx context.Context) error {
	globalMu.Lock()
	pool := globalPool
	globalPool = nil
	globalMu.Unlock()

	if pool == nil {
		return nil
	}
	return pool.ShutdownContext(ctx)
}

// Go starts fn(t, arg) as a task on the global pool.
func Go(fn TaskFunc, arg any) (*Task, error) {
	return GetGlobalPool().Go(fn, arg)
}
