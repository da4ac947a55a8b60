package goGate

import (
	"sync"
	"time"
)

type grantEntry struct {
	timer  *time.Timer
	tokens []string
	userID string
	ref    *MessageRef
}

// grantJanitor owns the per-grant cleanup timers. Firing and cancellation
// both remove the entry under the lock, so each grant is cleaned up at
// most once and later revokes become no-ops.
type grantJanitor struct {
	mu      sync.Mutex
	entries map[string]*grantEntry
	fire    func(batchID string, tokens []string, userID string, ref *MessageRef)
	closed  bool
}

func newGrantJanitor(fire func(batchID string, tokens []string, userID string, ref *MessageRef)) *grantJanitor {
	return &grantJanitor{
		entries: make(map[string]*grantEntry),
		fire:    fire,
	}
}

func (j *grantJanitor) Schedule(batchID string, tokens []string, userID string, ttl time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}

	entry := &grantEntry{
		tokens: tokens,
		userID: userID,
	}
	entry.timer = time.AfterFunc(ttl, func() {
		j.fireEntry(batchID)
	})
	j.entries[batchID] = entry
}

func (j *grantJanitor) fireEntry(batchID string) {
	j.mu.Lock()
	entry, ok := j.entries[batchID]
	if !ok || j.closed {
		j.mu.Unlock()
		return
	}
	delete(j.entries, batchID)
	j.mu.Unlock()

	j.fire(batchID, entry.tokens, entry.userID, entry.ref)
}

// Cancel stops the timer and removes the entry. The second return value
// reports whether the grant was still pending.
func (j *grantJanitor) Cancel(batchID string) (*grantEntry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, ok := j.entries[batchID]
	if !ok {
		return nil, false
	}
	delete(j.entries, batchID)
	entry.timer.Stop()
	return entry, true
}

// Bind attaches the delivered message so cleanup can retract it.
func (j *grantJanitor) Bind(batchID string, ref MessageRef) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, ok := j.entries[batchID]
	if !ok {
		return false
	}
	entry.ref = &ref
	return true
}

func (j *grantJanitor) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func (j *grantJanitor) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	j.closed = true
	for id, entry := range j.entries {
		entry.timer.Stop()
		delete(j.entries, id)
	}
}
