package telemetry

import (
	"testing"
	"time"
)

func TestSummarizeAggregatesByLabel(t *testing.T) {
	entries := []Entry{
		{Label: "enrol", Dur: 10 * time.Millisecond},
		{Label: "verify", Dur: 40 * time.Millisecond},
		{Label: "enrol", Dur: 20 * time.Millisecond},
	}
	summaries := Summarize(entries)
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	// verify has the larger total (40ms vs 30ms), so it sorts first.
	if summaries[0].Label != "verify" || summaries[0].Count != 1 || summaries[0].Total != 40*time.Millisecond {
		t.Fatalf("unexpected first summary: %+v", summaries[0])
	}
	if summaries[1].Label != "enrol" || summaries[1].Count != 2 || summaries[1].Total != 30*time.Millisecond {
		t.Fatalf("unexpected second summary: %+v", summaries[1])
	}
	if summaries[1].Mean != 15*time.Millisecond {
		t.Fatalf("enrol mean = %v, want 15ms", summaries[1].Mean)
	}
}

func TestSnapshotAndResetClears(t *testing.T) {
	Track(time.Now(), "enrol")
	if got := SnapshotAndReset(); len(got) != 1 {
		t.Fatalf("len(SnapshotAndReset()) = %d, want 1", len(got))
	}
	if got := SnapshotAndReset(); len(got) != 0 {
		t.Fatalf("second SnapshotAndReset() = %v, want empty", got)
	}
}
