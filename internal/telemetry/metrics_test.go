package telemetry

import "testing"

func TestAggregate(t *testing.T) {
	stats := Aggregate([]map[string]float64{
		{"turns": 10, "damage": 20},
		{"turns": 20, "damage": 0},
		{"turns": 30},
	})

	turns := stats["turns"]
	if turns.Count != 3 || turns.Sum != 60 || turns.Mean != 20 || turns.Min != 10 || turns.Max != 30 {
		t.Errorf("turns stat = %+v", turns)
	}
	damage := stats["damage"]
	if damage.Count != 2 || damage.Mean != 10 {
		t.Errorf("damage stat = %+v", damage)
	}
}

func TestAggregateEmpty(t *testing.T) {
	if stats := Aggregate(nil); len(stats) != 0 {
		t.Errorf("stats from no summaries: %v", stats)
	}
}

func TestAggregateBy(t *testing.T) {
	summaries := []map[string]float64{
		{"turns": 10},
		{"turns": 20},
		{"turns": 40},
	}
	grouped := AggregateBy(summaries, []string{"aggro", "control", "aggro"})

	if got := grouped["aggro"]["turns"].Mean; got != 25 {
		t.Errorf("aggro mean = %v, want 25", got)
	}
	if got := grouped["control"]["turns"].Count; got != 1 {
		t.Errorf("control count = %v, want 1", got)
	}
}

func TestKeysSorted(t *testing.T) {
	stats := Aggregate([]map[string]float64{{"b": 1, "a": 2, "c": 3}})
	keys := Keys(stats)
	want := []string{"a", "b", "c"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}
