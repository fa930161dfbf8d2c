// Package telemetry provides a tiny process-global timing log for
// orchestrator phases, adapted from the teacher's profiling helper
// (prof/profile.go) and its PIOP/run.go consumer: Track/SnapshotAndReset
// collect raw samples, Summarize aggregates them the way RunOnce's report
// builder does, into a per-label count/total/mean that cmd/brakecli can
// print after an enrol/verify call. A basic ambient concern carried
// regardless of spec.md's Non-goals (which exclude replay/freshness
// defences and proof-of-security claims, not timing logs).
package telemetry

import (
	"sort"
	"sync"
	"time"
)

// Entry is a single timing measurement.
type Entry struct {
	Label string
	Dur   time.Duration
}

var (
	mu     sync.Mutex
	record []Entry
)

// Track logs the duration since start under name. Call as
// defer telemetry.Track(time.Now(), "enrol").
func Track(start time.Time, name string) {
	elapsed := time.Since(start)
	mu.Lock()
	record = append(record, Entry{Label: name, Dur: elapsed})
	mu.Unlock()
}

// SnapshotAndReset returns the collected entries and clears them.
func SnapshotAndReset() []Entry {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Entry, len(record))
	copy(out, record)
	record = nil
	return out
}

// Summary is one label's aggregated timing across a snapshot.
type Summary struct {
	Label string
	Count int
	Total time.Duration
	Mean  time.Duration
}

// Summarize aggregates entries by label, sorted by descending total
// duration (ties broken by label), mirroring the teacher's RunOnce report
// builder (PIOP/run.go): group repeated phases under the same label and
// report both the count and the total time spent in it.
func Summarize(entries []Entry) []Summary {
	totals := make(map[string]time.Duration)
	counts := make(map[string]int)
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, seen := totals[e.Label]; !seen {
			order = append(order, e.Label)
		}
		totals[e.Label] += e.Dur
		counts[e.Label]++
	}
	out := make([]Summary, 0, len(order))
	for _, label := range order {
		count := counts[label]
		total := totals[label]
		out = append(out, Summary{
			Label: label,
			Count: count,
			Total: total,
			Mean:  total / time.Duration(count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Label < out[j].Label
	})
	return out
}
