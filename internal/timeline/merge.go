package timeline

import (
	"encoding/json"
	"sort"
)

// segmentKey identifies a segment by its exact time span. Two segments with
// the same span describe the same slice of history and collide on merge.
type segmentKey struct {
	start int64
	end   int64
}

func keyOf(s Segment) segmentKey {
	return segmentKey{start: s.StartTime.UnixNano(), end: s.EndTime.UnixNano()}
}

// Merge combines two datasets of the same semantic shape into a new one.
// Neither input is mutated.
//
// Segments are keyed by their (start, end) span; where both datasets carry
// a segment for the same span, b's segment replaces a's wholesale
// (later-write-wins). The result is sorted ascending by start time, with
// end time as the tie-break so the ordering is deterministic.
//
// Top-level fields are the union of both datasets. On a conflicting field
// name b wins, consistent with the segment-level policy.
func Merge(a, b *Dataset) *Dataset {
	byKey := make(map[segmentKey]Segment, len(a.Segments)+len(b.Segments))
	order := make([]segmentKey, 0, len(a.Segments)+len(b.Segments))

	for _, seg := range a.Segments {
		k := keyOf(seg)
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = seg
	}
	for _, seg := range b.Segments {
		k := keyOf(seg)
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = seg
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].start != order[j].start {
			return order[i].start < order[j].start
		}
		return order[i].end < order[j].end
	})

	merged := &Dataset{
		Segments: make([]Segment, 0, len(order)),
	}
	for _, k := range order {
		merged.Segments = append(merged.Segments, byKey[k])
	}

	if len(a.Fields) > 0 || len(b.Fields) > 0 {
		merged.Fields = make(map[string]json.RawMessage, len(a.Fields)+len(b.Fields))
		for k, v := range a.Fields {
			merged.Fields[k] = v
		}
		for k, v := range b.Fields {
			merged.Fields[k] = v
		}
	}
	return merged
}
