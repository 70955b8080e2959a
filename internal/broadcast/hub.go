// Package broadcast fans realtime events out to subscribed connections.
package broadcast

import (
	"encoding/json"
	"sync"

	"fleetmon/internal/logger"
	"fleetmon/internal/metrics"
	"fleetmon/internal/models"
)

// AllMachines is the subscription sentinel for every machine's events.
const AllMachines = "all"

// sendBuffer is the per-connection outbound queue size. A connection
// that cannot drain it has events dropped, never queued unboundedly;
// delivery is best-effort, at most once.
const sendBuffer = 64

// Subscriber is one connected consumer. Outbound frames arrive on C
// until the hub closes it on disconnect.
type Subscriber struct {
	ID string
	C  chan []byte
}

// Hub is the publish/subscribe registry. Connections subscribe to "all"
// or to specific machine IDs; publish snapshots the matching set before
// fan-out so concurrent unsubscribes cannot corrupt an in-flight
// broadcast.
type Hub struct {
	mu sync.RWMutex

	subscribers map[string]*Subscriber
	// connID -> set of machine IDs (or AllMachines)
	subscriptions map[string]map[string]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers:   make(map[string]*Subscriber),
		subscriptions: make(map[string]map[string]struct{}),
	}
}

// Connect registers a connection and subscribes it to all updates, the
// default for a dashboard consumer. Returns the subscriber whose channel
// the transport must drain.
func (h *Hub) Connect(connID string) *Subscriber {
	sub := &Subscriber{ID: connID, C: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.subscribers[connID] = sub
	h.subscriptions[connID] = map[string]struct{}{AllMachines: {}}
	n := len(h.subscribers)
	h.mu.Unlock()

	metrics.ConnectedClients.Set(float64(n))
	logger.WithComponent("broadcast").Debug().
		Str("conn_id", connID).
		Int("clients", n).
		Msg("connection registered")
	return sub
}

// Disconnect removes the connection and closes its channel.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	sub, ok := h.subscribers[connID]
	delete(h.subscribers, connID)
	delete(h.subscriptions, connID)
	n := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		close(sub.C)
		metrics.ConnectedClients.Set(float64(n))
		logger.WithComponent("broadcast").Debug().
			Str("conn_id", connID).
			Int("clients", n).
			Msg("connection removed")
	}
}

// Subscribe adds a machine ID (or AllMachines) to the connection's set.
// Subscribing twice is the same as subscribing once.
func (h *Hub) Subscribe(connID, machineID string) {
	if machineID == "" {
		machineID = AllMachines
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subscriptions[connID]
	if !ok {
		return // unknown connection
	}
	set[machineID] = struct{}{}
}

// Unsubscribe removes a machine ID from the connection's set.
func (h *Hub) Unsubscribe(connID, machineID string) {
	if machineID == "" {
		machineID = AllMachines
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subscriptions[connID]; ok {
		delete(set, machineID)
	}
}

// Publish fans an event out to every connection subscribed to "all" plus
// every connection subscribed to the event's machine. Sensor updates go
// only to machine-specific subscribers. Slow consumers have the frame
// dropped; transport errors never reach the publisher.
func (h *Hub) Publish(event models.Event) {
	frame, err := json.Marshal(event)
	if err != nil {
		logger.WithComponent("broadcast").Error().Err(err).
			Str("event", string(event.Type)).
			Msg("event marshal failed")
		return
	}

	targets := h.snapshot(event)
	for _, sub := range targets {
		select {
		case sub.C <- frame:
		default:
			metrics.EventsDropped.Inc()
		}
	}

	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
}

// snapshot collects the matching subscribers under the read lock so the
// fan-out loop runs on a stable set.
func (h *Hub) snapshot(event models.Event) []*Subscriber {
	includeAll := event.Type != models.EventSensorUpdate

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make([]*Subscriber, 0, len(h.subscribers))
	for connID, set := range h.subscriptions {
		_, wantsAll := set[AllMachines]
		_, wantsMachine := set[event.MachineID]

		if (includeAll && wantsAll) || (event.MachineID != "" && wantsMachine) {
			if sub, ok := h.subscribers[connID]; ok {
				targets = append(targets, sub)
			}
		}
	}
	return targets
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
