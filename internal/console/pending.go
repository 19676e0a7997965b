package console

import (
	"sync"
	"time"

	"fleetgap.app/console/internal/model"
)

// defaultPendingTTL bounds how long a dispatched action keeps the scheduler
// in fast-poll mode when the backend never surfaces the expected status.
const defaultPendingTTL = 30 * time.Minute

type pendingEntry struct {
	expected  model.AlertStatus
	expiresAt time.Time
}

// PendingSet tracks alerts whose lifecycle action was accepted (202) but
// whose resulting status has not yet appeared in a list fetch. While any
// entry is live the scheduler polls at the fast cadence.
type PendingSet struct {
	mu      sync.Mutex
	entries map[int64]pendingEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewPendingSet() *PendingSet {
	return &PendingSet{
		entries: make(map[int64]pendingEntry),
		ttl:     defaultPendingTTL,
		now:     time.Now,
	}
}

// Add registers an alert as awaiting the given status from the backend.
func (p *PendingSet) Add(alertID int64, expected model.AlertStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[alertID] = pendingEntry{
		expected:  expected,
		expiresAt: p.now().Add(p.ttl),
	}
}

// Reconcile clears entries whose alert now shows the expected status (or any
// terminal status - the backend may resolve differently than requested).
func (p *PendingSet) Reconcile(alerts []model.GapAlert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range alerts {
		entry, ok := p.entries[a.ID]
		if !ok {
			continue
		}
		if a.Status == entry.expected || a.Status.Terminal() {
			delete(p.entries, a.ID)
		}
	}
}

// Active reports whether any non-expired entry remains.
func (p *PendingSet) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for id, entry := range p.entries {
		if now.After(entry.expiresAt) {
			delete(p.entries, id)
			continue
		}
		return true
	}
	return false
}
