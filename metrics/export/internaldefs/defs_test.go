package internaldefs

import (
	"strings"
	"testing"

	goCred "github.com/MrEthical07/goCred"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[goCred.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("metric %d defined twice", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("name %q used twice", def.Name)
		}
		if !strings.HasPrefix(def.Name, "gocred_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}

	// Every counter except the latency histogram must be exported.
	if len(CounterDefs)+len(HistogramDefs) != int(goCred.MetricValidateLatency)+1 {
		t.Fatalf("expected %d definitions, got %d", int(goCred.MetricValidateLatency)+1, len(CounterDefs)+len(HistogramDefs))
	}
}

func TestBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [BucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}

	long := make([]uint64, BucketCount+3)
	for i := range long {
		long[i] = 1
	}
	if got := CumulativeBuckets(NormalizeBuckets(long)); got[BucketCount-1] != BucketCount {
		t.Fatalf("expected extra buckets to be dropped, got %v", got)
	}
}
