// Package dedup enforces the alert cooldown window per (machine,
// recipient) pair so a degraded machine does not flood a mailbox on
// every tick.
package dedup

import (
	"context"
	"sync"
	"time"

	"fleetmon/internal/logger"
	"fleetmon/internal/metrics"
)

// Eviction horizon: records idle for this many cooldown windows are
// swept. Within the cooldown horizon the observable behavior is
// unchanged; the sweep only bounds memory growth.
const evictionWindows = 5

type key struct {
	machineID string
	recipient string
}

// Deduplicator tracks the last successful send per (machine, recipient)
// pair. All operations are safe for concurrent use; the check-then-record
// sequence for one key is made atomic through Begin/Succeed/Fail.
type Deduplicator struct {
	mu       sync.Mutex
	lastSent map[key]time.Time
	inFlight map[key]struct{}

	cooldown time.Duration
}

// New creates a deduplicator with the given default cooldown.
func New(cooldown time.Duration) *Deduplicator {
	return &Deduplicator{
		lastSent: make(map[key]time.Time),
		inFlight: make(map[key]struct{}),
		cooldown: cooldown,
	}
}

// Cooldown returns the default cooldown window.
func (d *Deduplicator) Cooldown() time.Duration { return d.cooldown }

// ShouldSend reports whether an alert for the key may be sent at now:
// true iff no record exists, or now - lastSentAt >= cooldown.
func (d *Deduplicator) ShouldSend(machineID, recipient string, now time.Time, cooldown time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allowed(key{machineID, recipient}, now, cooldown)
}

// RecordSent records a successful send at now.
func (d *Deduplicator) RecordSent(machineID, recipient string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSent[key{machineID, recipient}] = now
	metrics.DedupRecords.Set(float64(len(d.lastSent)))
}

// Begin atomically checks the cooldown and reserves the key for an
// in-flight send. Returns false when the key is inside its cooldown
// window or another send for it is already in flight. A true return must
// be paired with Succeed or Fail.
func (d *Deduplicator) Begin(machineID, recipient string, now time.Time, cooldown time.Duration) bool {
	k := key{machineID, recipient}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, busy := d.inFlight[k]; busy {
		return false
	}
	if !d.allowed(k, now, cooldown) {
		return false
	}
	d.inFlight[k] = struct{}{}
	return true
}

// Succeed releases the reservation and records the send. Failed sends
// must call Fail instead so they do not count against the cooldown.
func (d *Deduplicator) Succeed(machineID, recipient string, now time.Time) {
	k := key{machineID, recipient}

	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.inFlight, k)
	d.lastSent[k] = now
	metrics.DedupRecords.Set(float64(len(d.lastSent)))
}

// Fail releases the reservation without recording a send.
func (d *Deduplicator) Fail(machineID, recipient string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, key{machineID, recipient})
}

// Len returns the number of cooldown records held.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastSent)
}

// Sweep evicts records idle for more than evictionWindows cooldowns and
// returns how many were removed.
func (d *Deduplicator) Sweep(now time.Time) int {
	horizon := time.Duration(evictionWindows) * d.cooldown

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for k, sentAt := range d.lastSent {
		if now.Sub(sentAt) > horizon {
			delete(d.lastSent, k)
			removed++
		}
	}
	metrics.DedupRecords.Set(float64(len(d.lastSent)))
	return removed
}

// StartSweeper runs the eviction sweep once per cooldown interval until
// the context is cancelled.
func (d *Deduplicator) StartSweeper(ctx context.Context) {
	log := logger.WithComponent("dedup")

	go func() {
		ticker := time.NewTicker(d.cooldown)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := d.Sweep(now); removed > 0 {
					log.Debug().Int("removed", removed).Msg("swept stale cooldown records")
				}
			}
		}
	}()
}

func (d *Deduplicator) allowed(k key, now time.Time, cooldown time.Duration) bool {
	sentAt, ok := d.lastSent[k]
	if !ok {
		return true
	}
	return now.Sub(sentAt) >= cooldown
}
