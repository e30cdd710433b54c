package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Lightweight cumulative profiler for pipeline stages. Stages run on pool
// workers, so totals are summed across goroutines and may exceed wall time.

type stat struct {
	total time.Duration
	calls int
}

var (
	mu     sync.Mutex
	totals = make(map[string]stat)
)

// Track returns a stop function that records the elapsed time under name.
// Usage: defer profiling.Track("meshing.Vertices")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		s := totals[name]
		s.total += d
		s.calls++
		totals[name] = s
		mu.Unlock()
	}
}

// Reset clears all recorded totals.
func Reset() {
	mu.Lock()
	clear(totals)
	mu.Unlock()
}

// Snapshot returns a copy of the accumulated durations.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(totals))
	for k, v := range totals {
		out[k] = v.total
	}
	return out
}

// Calls returns how many times name was tracked.
func Calls(name string) int {
	mu.Lock()
	defer mu.Unlock()
	return totals[name].calls
}

// TopN formats the n most expensive stages, most expensive first.
// Example: "meshing.Vertices:4.2ms/12, grid.Sample:2.1ms/12"
func TopN(n int) string {
	mu.Lock()
	type entry struct {
		name string
		stat
	}
	list := make([]entry, 0, len(totals))
	for k, v := range totals {
		list = append(list, entry{k, v})
	}
	mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].total != list[j].total {
			return list[i].total > list[j].total
		}
		return list[i].name < list[j].name
	})
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, e := range list[:n] {
		ms := float64(e.total.Microseconds()) / 1000
		parts = append(parts, fmt.Sprintf("%s:%.1fms/%d", e.name, ms, e.calls))
	}
	return strings.Join(parts, ", ")
}
