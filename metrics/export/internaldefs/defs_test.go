package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[goSession.MetricID]string{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if prev, ok := seen[def.ID]; ok {
			t.Fatalf("metric id %d defined twice (%s, %s)", def.ID, prev, def.Name)
		}
		if names[def.Name] {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %s does not follow gosession_*_total", def.Name)
		}
		seen[def.ID] = def.Name
		names[def.Name] = true
	}

	snap := goSession.NewMetrics(goSession.MetricsConfig{Enabled: true}).Snapshot()
	for id := range snap.Counters {
		if _, ok := seen[id]; !ok {
			t.Fatalf("counter id %d has no export definition", id)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2, 0, 0, 0, 0, 3}))
	want := [BucketCount]uint64{1, 1, 3, 3, 3, 3, 3, 6}
	if got != want {
		t.Fatalf("cumulative = %v, want %v", got, want)
	}
}

func TestNormalizeBucketsShortInput(t *testing.T) {
	got := NormalizeBuckets([]uint64{4})
	if got[0] != 4 || got[BucketCount-1] != 0 {
		t.Fatalf("normalize = %v", got)
	}
	if NormalizeBuckets(nil) != ([BucketCount]uint64{}) {
		t.Fatal("nil input should produce zero buckets")
	}
}
