package timeline

import (
	"encoding/json"
	"testing"
	"time"
)

func mustDataset(t *testing.T, doc string) *Dataset {
	t.Helper()
	ds := &Dataset{}
	if err := json.Unmarshal([]byte(doc), ds); err != nil {
		t.Fatalf("Failed to parse dataset: %v", err)
	}
	return ds
}

func mustTime(t *testing.T, v string) time.Time {
	t.Helper()
	ts, err := ParseTimestamp(v)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", v, err)
	}
	return ts
}

func TestExtractDateRangeSemantic(t *testing.T) {
	ds := mustDataset(t, `{
		"semanticSegments": [
			{"startTime": "2024-01-01T00:00Z", "endTime": "2024-01-02T00:00Z"},
			{"startTime": "2024-02-01T00:00Z", "endTime": "2024-02-03T00:00Z"}
		]
	}`)

	r := ExtractDateRange(ds)
	if r.Start == nil || r.End == nil {
		t.Fatalf("Expected both bounds, got %+v", r)
	}
	if !r.Start.Equal(mustTime(t, "2024-01-01T00:00Z")) {
		t.Errorf("Start = %v, want 2024-01-01T00:00Z", r.Start)
	}
	if !r.End.Equal(mustTime(t, "2024-02-03T00:00Z")) {
		t.Errorf("End = %v, want 2024-02-03T00:00Z", r.End)
	}
}

func TestExtractDateRangeUnsortedSegments(t *testing.T) {
	// The extractor scans all segments, so an out-of-order sequence still
	// yields the true span.
	ds := mustDataset(t, `{
		"semanticSegments": [
			{"startTime": "2024-02-01T00:00Z", "endTime": "2024-02-03T00:00Z"},
			{"startTime": "2024-01-01T00:00Z", "endTime": "2024-01-02T00:00Z"}
		]
	}`)

	r := ExtractDateRange(ds)
	if r.Start == nil || !r.Start.Equal(mustTime(t, "2024-01-01T00:00Z")) {
		t.Errorf("Start = %v, want 2024-01-01T00:00Z", r.Start)
	}
	if r.End == nil || !r.End.Equal(mustTime(t, "2024-02-03T00:00Z")) {
		t.Errorf("End = %v, want 2024-02-03T00:00Z", r.End)
	}
}

func TestExtractDateRangeEmptySemantic(t *testing.T) {
	ds := mustDataset(t, `{"semanticSegments": []}`)
	r := ExtractDateRange(ds)
	if !r.IsZero() {
		t.Errorf("Expected nil bounds for empty sequence, got %+v", r)
	}
}

func TestExtractDateRangeLegacyFallback(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		start string
		end   string
	}{
		{
			name: "StartTimeFields",
			doc: `{"timelineObjects": [
				{"startTime": "2023-05-01T08:00:00Z", "endTime": "2023-05-01T09:00:00Z"},
				{"startTime": "2023-05-02T08:00:00Z", "endTime": "2023-05-02T09:30:00Z"}
			]}`,
			start: "2023-05-01T08:00:00Z",
			end:   "2023-05-02T09:30:00Z",
		},
		{
			name: "TimestampFallback",
			doc: `{"timelineObjects": [
				{"timestamp": "2023-05-01T08:00:00Z"},
				{"timestamp": "2023-05-03T08:00:00Z"}
			]}`,
			start: "2023-05-01T08:00:00Z",
			end:   "2023-05-03T08:00:00Z",
		},
		{
			name: "DateFallback",
			doc: `{"timelineObjects": [
				{"date": "2023-05-01"},
				{"date": "2023-05-04"}
			]}`,
			start: "2023-05-01",
			end:   "2023-05-04",
		},
		{
			name: "NestedActivityStart",
			doc: `{"timelineObjects": [
				{"activity": {"startTime": "2023-06-01T10:00:00Z"}},
				{"visit": {"startTime": "2023-06-02T10:00:00Z"}}
			]}`,
			start: "2023-06-01T10:00:00Z",
			end:   "2023-06-02T10:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ExtractDateRange(mustDataset(t, tt.doc))
			if r.Start == nil || !r.Start.Equal(mustTime(t, tt.start)) {
				t.Errorf("Start = %v, want %s", r.Start, tt.start)
			}
			if r.End == nil || !r.End.Equal(mustTime(t, tt.end)) {
				t.Errorf("End = %v, want %s", r.End, tt.end)
			}
		})
	}
}

func TestExtractDateRangeNoUsableShape(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"EmptyDocument", `{}`},
		{"EmptyLegacyArray", `{"timelineObjects": []}`},
		{"UnrelatedFields", `{"settings": {"unit": "km"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := ExtractDateRange(mustDataset(t, tt.doc)); !r.IsZero() {
				t.Errorf("Expected nil bounds, got %+v", r)
			}
		})
	}
}

func TestExtractDateRangeNil(t *testing.T) {
	if r := ExtractDateRange(nil); !r.IsZero() {
		t.Errorf("Expected nil bounds for nil dataset, got %+v", r)
	}
}
