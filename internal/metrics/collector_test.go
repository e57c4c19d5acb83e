package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// =============================================================================
// Mock StatsProvider
// =============================================================================

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// =============================================================================
// Collector Tests
// =============================================================================

func TestCollectorCollectSetsGauges(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{
			CacheEntries: 12,
			CacheBytes:   4096,
			JobsByStatus: map[string]int{"running": 2, "completed": 7},
		},
	}

	c := NewCollector(provider, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(CacheEntries); got != 12 {
		t.Errorf("CacheEntries = %v, want 12", got)
	}
	if got := testutil.ToFloat64(CacheSizeBytes); got != 4096 {
		t.Errorf("CacheSizeBytes = %v, want 4096", got)
	}
	if got := testutil.ToFloat64(JobsByStatus.WithLabelValues("running")); got != 2 {
		t.Errorf("JobsByStatus{running} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(JobsByStatus.WithLabelValues("failed")); got != 0 {
		t.Errorf("JobsByStatus{failed} = %v, want 0 for an absent status", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	// Must not panic.
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, 10*time.Millisecond)
	c.Start()

	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	if provider.callCount() < 2 {
		t.Errorf("GetStats called %d times, want at least 2 (immediate + ticker)", provider.callCount())
	}
}

func TestStatsFunc(t *testing.T) {
	var p StatsProvider = StatsFunc(func() Stats { return Stats{CacheEntries: 3} })
	if got := p.GetStats().CacheEntries; got != 3 {
		t.Errorf("StatsFunc.GetStats().CacheEntries = %d, want 3", got)
	}
}
