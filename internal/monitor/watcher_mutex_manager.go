package monitor

import (
	"sync"

	"github.com/rs/zerolog"
)

// WatcherMutexManager hands out one mutex per watcher ID. Every write to a
// watcher record (scheduler mutations and run-cycle bookkeeping) happens while
// holding the watcher's mutex.
type WatcherMutexManager struct {
	logger   zerolog.Logger
	mutexes  map[string]*sync.Mutex
	mapMutex sync.RWMutex
}

// NewWatcherMutexManager creates a new WatcherMutexManager
func NewWatcherMutexManager(logger zerolog.Logger) *WatcherMutexManager {
	return &WatcherMutexManager{
		logger:  logger.With().Str("component", "WatcherMutexManager").Logger(),
		mutexes: make(map[string]*sync.Mutex),
	}
}

// GetMutex gets or creates a mutex for a watcher using double-checked locking
func (wmm *WatcherMutexManager) GetMutex(watcherID string) *sync.Mutex {
	if mutex := wmm.tryGetExistingMutex(watcherID); mutex != nil {
		return mutex
	}
	return wmm.getOrCreateMutex(watcherID)
}

// Lock acquires the watcher's mutex and returns the matching unlock function.
func (wmm *WatcherMutexManager) Lock(watcherID string) func() {
	mutex := wmm.GetMutex(watcherID)
	mutex.Lock()
	return mutex.Unlock
}

// Forget drops the mutex of a deleted watcher. A caller still holding it keeps
// a working lock; later callers get a fresh mutex.
func (wmm *WatcherMutexManager) Forget(watcherID string) {
	wmm.mapMutex.Lock()
	_, existed := wmm.mutexes[watcherID]
	delete(wmm.mutexes, watcherID)
	remaining := len(wmm.mutexes)
	wmm.mapMutex.Unlock()

	if existed {
		wmm.logger.Debug().
			Str("watcher_id", watcherID).
			Int("remaining_mutexes", remaining).
			Msg("Dropped watcher mutex")
	}
}

// GetMutexCount returns the current number of mutexes
func (wmm *WatcherMutexManager) GetMutexCount() int {
	wmm.mapMutex.RLock()
	defer wmm.mapMutex.RUnlock()
	return len(wmm.mutexes)
}

func (wmm *WatcherMutexManager) tryGetExistingMutex(watcherID string) *sync.Mutex {
	wmm.mapMutex.RLock()
	defer wmm.mapMutex.RUnlock()
	return wmm.mutexes[watcherID]
}

func (wmm *WatcherMutexManager) getOrCreateMutex(watcherID string) *sync.Mutex {
	wmm.mapMutex.Lock()
	defer wmm.mapMutex.Unlock()

	// Another goroutine might have created it in between.
	if mutex, exists := wmm.mutexes[watcherID]; exists {
		return mutex
	}

	wmm.mutexes[watcherID] = &sync.Mutex{}
	return wmm.mutexes[watcherID]
}
