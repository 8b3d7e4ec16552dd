package fusion

import "testing"

func TestAggregateTopTenPlusOther(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 15; i++ {
		agent := "agent-a"
		if i >= 10 {
			agent = "agent-b" // only two distinct values here, too few to overflow; replaced below
		}
		candidates = append(candidates, Candidate{Agent: agent})
	}
	// Give agent-b enough distinct-ish values so we actually exercise overflow:
	// build 12 distinct single-count agents plus one heavy agent.
	candidates = nil
	for i := 0; i < 12; i++ {
		candidates = append(candidates, Candidate{Agent: string(rune('a' + i))})
	}
	for i := 0; i < 5; i++ {
		candidates = append(candidates, Candidate{Agent: "heavy"})
	}

	aggs := Aggregate(candidates, []string{FacetAgent})
	if len(aggs) != 1 {
		t.Fatalf("Aggregate() returned %d aggregations, want 1", len(aggs))
	}
	agg := aggs[0]
	if len(agg.Buckets) != 10 {
		t.Fatalf("Aggregate() bucket count = %d, want 10", len(agg.Buckets))
	}
	if agg.Buckets[0].Value != "heavy" || agg.Buckets[0].Count != 5 {
		t.Errorf("Aggregate() top bucket = %+v, want heavy:5", agg.Buckets[0])
	}
	if agg.OtherCount != 3 {
		t.Errorf("Aggregate() other_count = %d, want 3", agg.OtherCount)
	}
}

func TestAggregateDateBucketing(t *testing.T) {
	candidates := []Candidate{
		{CreatedAt: 1704067200000}, // 2024-01-01T00:00:00Z
		{CreatedAt: 1704067260000}, // same day
		{CreatedAt: 0},             // no timestamp, excluded
	}
	aggs := Aggregate(candidates, []string{FacetDate})
	if len(aggs[0].Buckets) != 1 {
		t.Fatalf("Aggregate() date buckets = %+v, want one bucket", aggs[0].Buckets)
	}
	if aggs[0].Buckets[0].Value != "2024-01-01" || aggs[0].Buckets[0].Count != 2 {
		t.Errorf("Aggregate() date bucket = %+v, want 2024-01-01:2", aggs[0].Buckets[0])
	}
}
