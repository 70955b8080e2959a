package monitor

import (
	"sort"
	"sync"

	"fleetmon/internal/models"
)

// AlertBook keeps the most recent alert raised for each machine, so the
// API can list active alerts and acknowledge them.
type AlertBook struct {
	mu     sync.RWMutex
	byID   map[string]*models.Alert
	latest map[string]string // machine ID -> alert ID
}

func NewAlertBook() *AlertBook {
	return &AlertBook{
		byID:   make(map[string]*models.Alert),
		latest: make(map[string]string),
	}
}

// Record stores an alert, replacing the previous alert for the same
// machine. The book keeps its own copy; later acknowledgment never
// mutates the caller's alert, which may still be in flight elsewhere.
func (b *AlertBook) Record(a *models.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := *a
	if prev, ok := b.latest[copied.MachineID]; ok {
		delete(b.byID, prev)
	}
	b.byID[copied.ID] = &copied
	b.latest[copied.MachineID] = copied.ID
}

// Acknowledge marks an alert acknowledged and returns it, or false when
// no alert has that ID.
func (b *AlertBook) Acknowledge(id string) (*models.Alert, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.byID[id]
	if !ok {
		return nil, false
	}
	a.Acknowledged = true
	copied := *a
	return &copied, true
}

// List returns all alerts, newest first.
func (b *AlertBook) List() []models.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Alert, 0, len(b.byID))
	for _, a := range b.byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}
