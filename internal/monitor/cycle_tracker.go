package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CycleTracker records which watchers have a run cycle in flight. A watcher
// has at most one cycle at a time; overlapping ticks are skipped, not queued.
type CycleTracker struct {
	inFlight map[string]cycleInfo
	mutex    sync.RWMutex
}

type cycleInfo struct {
	cycleID   string
	startedAt time.Time
}

// NewCycleTracker creates a new CycleTracker
func NewCycleTracker() *CycleTracker {
	return &CycleTracker{
		inFlight: make(map[string]cycleInfo),
	}
}

// TryBegin marks a cycle for watcherID as started and returns its cycle ID.
// It returns false when a cycle for the watcher is already running.
func (ct *CycleTracker) TryBegin(watcherID string) (string, bool) {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()

	if _, running := ct.inFlight[watcherID]; running {
		return "", false
	}
	cycleID := uuid.NewString()
	ct.inFlight[watcherID] = cycleInfo{cycleID: cycleID, startedAt: time.Now()}
	return cycleID, true
}

// End releases the in-flight slot of watcherID.
func (ct *CycleTracker) End(watcherID string) {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()
	delete(ct.inFlight, watcherID)
}

// IsRunning reports whether a cycle for watcherID is in flight.
func (ct *CycleTracker) IsRunning(watcherID string) bool {
	ct.mutex.RLock()
	defer ct.mutex.RUnlock()
	_, running := ct.inFlight[watcherID]
	return running
}

// GetCurrentCycleID returns the ID of the in-flight cycle of watcherID, if any.
func (ct *CycleTracker) GetCurrentCycleID(watcherID string) string {
	ct.mutex.RLock()
	defer ct.mutex.RUnlock()
	return ct.inFlight[watcherID].cycleID
}

// InFlight returns the sorted IDs of watchers with a running cycle.
func (ct *CycleTracker) InFlight() []string {
	ct.mutex.RLock()
	defer ct.mutex.RUnlock()

	ids := make([]string, 0, len(ct.inFlight))
	for id := range ct.inFlight {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of cycles in flight.
func (ct *CycleTracker) Count() int {
	ct.mutex.RLock()
	defer ct.mutex.RUnlock()
	return len(ct.inFlight)
}
