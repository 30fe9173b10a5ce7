package state_managers

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// PublisherEntry is the latest reading seen from one publisher.
type PublisherEntry struct {
	Temperature float64
	LastSeen    time.Time
}

// PublisherStateManager keeps the freshest temperature per publisher and
// evicts publishers that have been silent for longer than the timeout.
//
// Record never evicts; Average always sweeps first, so a stale publisher can
// never contribute to an average and the table stays bounded by the number of
// publishers heard from within the last timeout.
type PublisherStateManager struct {
	entries cmap.ConcurrentMap[string, PublisherEntry]
	timeout time.Duration
	logger  zerolog.Logger
	onEvict func(publisherID string)
}

// NewPublisherStateManager initializes an empty table with the given staleness timeout.
func NewPublisherStateManager(timeout time.Duration, logger zerolog.Logger) *PublisherStateManager {
	return &PublisherStateManager{
		entries: cmap.New[PublisherEntry](),
		timeout: timeout,
		logger:  logger,
	}
}

// OnEvict registers a callback invoked once per evicted publisher.
func (sm *PublisherStateManager) OnEvict(fn func(publisherID string)) {
	sm.onEvict = fn
}

// Timeout returns the staleness timeout.
func (sm *PublisherStateManager) Timeout() time.Duration {
	return sm.timeout
}

// Record stores the reading, replacing any previous entry for the publisher.
func (sm *PublisherStateManager) Record(publisherID string, temperature float64, now time.Time) {
	sm.entries.Set(publisherID, PublisherEntry{Temperature: temperature, LastSeen: now})
}

// Average evicts every entry last seen strictly before now-timeout and returns
// the unweighted mean of the remaining temperatures. ok is false when no
// publisher is live.
func (sm *PublisherStateManager) Average(now time.Time) (avg float64, ok bool) {
	cutoff := now.Add(-sm.timeout)

	var sum float64
	var count int
	for item := range sm.entries.IterBuffered() {
		if item.Val.LastSeen.Before(cutoff) {
			sm.evict(item.Key, cutoff)
			continue
		}
		sum += item.Val.Temperature
		count++
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// evict removes the entry only if it is still stale, so a Record racing with
// the sweep is never lost.
func (sm *PublisherStateManager) evict(publisherID string, cutoff time.Time) {
	removed := sm.entries.RemoveCb(publisherID, func(_ string, v PublisherEntry, exists bool) bool {
		return exists && v.LastSeen.Before(cutoff)
	})
	if !removed {
		return
	}

	sm.logger.Info().Str("publisher_id", publisherID).Msg("Dropping stale publisher")
	if sm.onEvict != nil {
		sm.onEvict(publisherID)
	}
}

// Len returns the number of entries currently held, stale or not.
func (sm *PublisherStateManager) Len() int {
	return sm.entries.Count()
}

// Get returns the entry for a publisher.
func (sm *PublisherStateManager) Get(publisherID string) (PublisherEntry, bool) {
	return sm.entries.Get(publisherID)
}

// Snapshot returns a copy of the table.
func (sm *PublisherStateManager) Snapshot() map[string]PublisherEntry {
	return sm.entries.Items()
}
