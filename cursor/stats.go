package cursor

import (
	"github.com/squareup/lazyrows/metrics"
)

// Stats is a snapshot of a cursor's activity since it was created.
type Stats struct {
	Epoch uint64
	// Count is -1 while the row count is unknown
	Count               int
	Windows             int
	MaterializedWindows int
	CountQueries        int
	WindowFetches       int
	ActiveWindowHits    int
	Evictions           int
	Invalidations       int
}

// Metrics holds the counters cursors report to. One Metrics is normally shared by every cursor of a process.
type Metrics struct {
	countQueries     metrics.Counter
	windowFetches    metrics.Counter
	activeWindowHits metrics.Counter
	evictions        metrics.Counter
}

func NewMetrics(factory metrics.Factory) (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		counter     *metrics.Counter
		name        string
		description string
	}{
		{&m.countQueries, "lazyrows_count_queries_total", "Count queries issued by cursors"},
		{&m.windowFetches, "lazyrows_window_fetches_total", "Ranged fetches issued to materialize windows"},
		{&m.activeWindowHits, "lazyrows_active_window_hits_total", "Moves served by the active window"},
		{&m.evictions, "lazyrows_window_evictions_total", "Windows released to respect the resident window bound"},
	}
	for _, c := range counters {
		counter, err := factory.CreateCounter(c.name, c.description)
		if err != nil {
			return nil, err
		}
		*c.counter = counter
	}
	return m, nil
}

func nopMetrics() *Metrics {
	m, err := NewMetrics(metrics.NewNopFactory())
	if err != nil {
		panic(err)
	}
	return m
}
