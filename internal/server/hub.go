package server

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"focustrack/internal/tracker"
)

// Hub fans record changes out to watch subscribers. Subscriptions are
// keyed by user and day; a published record replaces any undelivered
// one, so a slow consumer only ever skips intermediate snapshots, never
// receives stale ones after fresh ones.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[string]chan *tracker.DayRecord
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[string]chan *tracker.DayRecord),
		logger: logger,
	}
}

func topicKey(userID, dateKey string) string {
	return userID + "|" + dateKey
}

// Subscribe registers a watcher for one user's day. The returned
// channel carries the latest stored record, nil when the day was
// deleted. The cancel function must be called exactly once.
func (h *Hub) Subscribe(userID, dateKey string) (<-chan *tracker.DayRecord, func()) {
	key := topicKey(userID, dateKey)
	id := uuid.NewString()
	ch := make(chan *tracker.DayRecord, 1)

	h.mu.Lock()
	subs := h.topics[key]
	if subs == nil {
		subs = make(map[string]chan *tracker.DayRecord)
		h.topics[key] = subs
	}
	subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.topics[key]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(h.topics, key)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers rec to every watcher of the user's day. When a
// watcher has not consumed the previous snapshot yet, that snapshot is
// dropped in favor of this one.
func (h *Hub) Publish(userID, dateKey string, rec *tracker.DayRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.topics[topicKey(userID, dateKey)] {
		select {
		case ch <- rec:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- rec:
		default:
			h.logger.Warn("dropped watch update", "subscriber", id)
		}
	}
}

// Watchers reports how many subscriptions are active for a user's day.
func (h *Hub) Watchers(userID, dateKey string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topicKey(userID, dateKey)])
}
