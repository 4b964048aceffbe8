package signalhandler

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitInterrupted is the status used when a signal stops the program
const ExitInterrupted = 130

type cleanupEntry struct {
	fn func()
}

var (
	mu       sync.Mutex
	cleanups []*cleanupEntry
	once     sync.Once
)

// SetupHandler registers cleanup and starts listening for SIGINT and SIGTERM.
// On a signal every registered cleanup runs, newest first, and the process
// exits. OpenCV calls run in cgo, so the process is stopped from here rather
// than waiting for the pipeline to notice. Calling it again only adds cleanup.
func SetupHandler(cleanup func()) {
	if cleanup != nil {
		AddCleanup(cleanup)
	}

	once.Do(func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			<-sigChan
			RunCleanups()
			os.Exit(ExitInterrupted)
		}()
	})
}

// AddCleanup registers fn to run on a signal. The returned function
// unregisters it once the resource has been released normally.
func AddCleanup(fn func()) (remove func()) {
	entry := &cleanupEntry{fn: fn}

	mu.Lock()
	cleanups = append(cleanups, entry)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		for i, e := range cleanups {
			if e == entry {
				cleanups = append(cleanups[:i], cleanups[i+1:]...)
				return
			}
		}
	}
}

// RunCleanups runs and clears the registered cleanups, newest first
func RunCleanups() {
	mu.Lock()
	pending := cleanups
	cleanups = nil
	mu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i].fn()
	}
}
