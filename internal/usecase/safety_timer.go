package usecase

import (
	"sync"
	"time"
)

const defaultRecordingCeiling = 120 * time.Second

// safetyTimer bounds how long a recording may run. fire runs at most once and never
// after a Stop that returned true.
type safetyTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// newSafetyTimer arms the ceiling relative to startedAt, so time spent before the
// timer was created counts against the recording.
func newSafetyTimer(startedAt time.Time, ceiling time.Duration, fire func()) *safetyTimer {
	remaining := ceiling - time.Since(startedAt)
	if remaining < 0 {
		remaining = 0
	}
	t := &safetyTimer{}
	t.mu.Lock()
	t.timer = time.AfterFunc(remaining, func() {
		t.mu.Lock()
		if t.done {
			t.mu.Unlock()
			return
		}
		t.done = true
		t.mu.Unlock()
		fire()
	})
	t.mu.Unlock()
	return t
}

// Stop cancels the timer. It returns false when the timer already fired or was stopped.
func (t *safetyTimer) Stop() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.timer.Stop()
	return true
}

// recordingCeiling trusts validated settings and only fills in a missing value.
func recordingCeiling(ceiling time.Duration) time.Duration {
	if ceiling <= 0 {
		return defaultRecordingCeiling
	}
	return ceiling
}
