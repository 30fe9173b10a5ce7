package state_managers_test

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/thermo-agent/internal/state_managers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

const timeout = 600 * time.Second

func at(seconds int64) time.Time {
	return time.Unix(seconds, 0)
}

func newTable() *state_managers.PublisherStateManager {
	return state_managers.NewPublisherStateManager(timeout, zerolog.Nop())
}

func TestPublisherStateManager_EmptyTable(t *testing.T) {
	sm := newTable()

	_, ok := sm.Average(at(0))
	assert.False(t, ok)
}

func TestPublisherStateManager_MeanOfLivePublishers(t *testing.T) {
	sm := newTable()
	sm.Record("pico-1", 30.0, at(0))
	sm.Record("pico-2", 20.0, at(0))

	avg, ok := sm.Average(at(5))
	assert.True(t, ok)
	assert.Equal(t, 25.0, avg)
	assert.Equal(t, 2, sm.Len())
}

func TestPublisherStateManager_RecordOverwrites(t *testing.T) {
	sm := newTable()
	sm.Record("pico-1", 30.0, at(0))
	sm.Record("pico-1", 10.0, at(3))
	sm.Record("pico-2", 20.0, at(3))

	avg, ok := sm.Average(at(4))
	assert.True(t, ok)
	assert.Equal(t, 15.0, avg)

	entry, found := sm.Get("pico-1")
	assert.True(t, found)
	assert.Equal(t, 10.0, entry.Temperature)
	assert.Equal(t, at(3), entry.LastSeen)
}

func TestPublisherStateManager_AllStale(t *testing.T) {
	sm := newTable()
	sm.Record("pico-1", 30.0, at(0))
	sm.Record("pico-2", 20.0, at(0))

	_, ok := sm.Average(at(601))
	assert.False(t, ok)
	assert.Equal(t, 0, sm.Len())
}

func TestPublisherStateManager_CutoffBoundaryIsKept(t *testing.T) {
	sm := newTable()
	sm.Record("pico-1", 30.0, at(0))

	avg, ok := sm.Average(at(600))
	assert.True(t, ok)
	assert.Equal(t, 30.0, avg)
	assert.Equal(t, 1, sm.Len())
}

func TestPublisherStateManager_PartialEviction(t *testing.T) {
	sm := newTable()
	var evicted []string
	sm.OnEvict(func(id string) { evicted = append(evicted, id) })

	sm.Record("old", 100.0, at(0))
	sm.Record("fresh-1", 22.0, at(500))
	sm.Record("fresh-2", 24.0, at(700))

	avg, ok := sm.Average(at(700))
	assert.True(t, ok)
	assert.Equal(t, 23.0, avg)

	_, found := sm.Get("old")
	assert.False(t, found)
	assert.Equal(t, []string{"old"}, evicted)
	assert.Equal(t, 2, sm.Len())
}

func TestPublisherStateManager_RecordNeverEvicts(t *testing.T) {
	sm := newTable()
	sm.Record("old", 100.0, at(0))
	sm.Record("new", 20.0, at(5000))

	assert.Equal(t, 2, sm.Len())
	assert.Len(t, sm.Snapshot(), 2)
}

func TestPublisherStateManager_NaNPropagates(t *testing.T) {
	sm := newTable()
	sm.Record("pico-1", math.NaN(), at(0))
	sm.Record("pico-2", 20.0, at(0))

	avg, ok := sm.Average(at(1))
	assert.True(t, ok)
	assert.True(t, math.IsNaN(avg))
}

// The mean always matches a brute-force computation over the live entries.
func TestPublisherStateManager_MatchesReference(t *testing.T) {
	sm := newTable()
	type rec struct {
		id   string
		temp float64
		ts   int64
	}
	records := []rec{
		{"a", 10, 0}, {"b", 20, 100}, {"c", 30, 200}, {"a", 12, 300},
		{"d", 40, 900}, {"e", -5, 1000}, {"b", 21, 1100},
	}
	latest := map[string]rec{}
	for _, r := range records {
		sm.Record(r.id, r.temp, at(r.ts))
		latest[r.id] = r
	}

	now := at(1300)
	var sum float64
	var count int
	for _, r := range latest {
		if r.ts >= 1300-600 {
			sum += r.temp
			count++
		}
	}

	avg, ok := sm.Average(now)
	assert.True(t, ok)
	assert.InDelta(t, sum/float64(count), avg, 1e-9)
	assert.Equal(t, count, sm.Len())
	for id, r := range latest {
		_, found := sm.Get(id)
		assert.Equal(t, r.ts >= 700, found, id)
	}
}

func TestPublisherStateManager_ConcurrentAccess(t *testing.T) {
	sm := newTable()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sm.Record(string(rune('a'+i)), float64(j), at(int64(j)))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sm.Average(at(int64(j)))
			}
		}()
	}
	wg.Wait()

	avg, ok := sm.Average(at(100))
	assert.True(t, ok)
	assert.Equal(t, 99.0, avg)
}
