package timeline

import (
	"encoding/json"
	"time"
)

// legacyItemsKey is the top-level field of the legacy export format: an
// ordered array of timeline objects without the semantic segment shape.
const legacyItemsKey = "timelineObjects"

// startFallbackFields is the priority chain probed on legacy items when
// looking for a usable instant.
var startFallbackFields = []string{"startTime", "timestamp", "date"}

// ExtractDateRange determines the overall time span of a dataset.
//
// For semantic datasets every segment is scanned and the minimum start and
// maximum end win, so an out-of-order sequence still yields the correct
// range. Legacy datasets fall back to probing the first and last timeline
// object with a field-name priority chain. When neither shape matches, both
// bounds are nil.
func ExtractDateRange(ds *Dataset) DateRange {
	if ds == nil {
		return DateRange{}
	}
	if len(ds.Segments) > 0 {
		start := ds.Segments[0].StartTime
		end := ds.Segments[0].EndTime
		for _, seg := range ds.Segments[1:] {
			if seg.StartTime.Before(start) {
				start = seg.StartTime
			}
			if seg.EndTime.After(end) {
				end = seg.EndTime
			}
		}
		s, e := start, end
		return DateRange{Start: &s, End: &e}
	}
	return legacyDateRange(ds)
}

func legacyDateRange(ds *Dataset) DateRange {
	raw, ok := ds.Fields[legacyItemsKey]
	if !ok {
		return DateRange{}
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return DateRange{}
	}

	var out DateRange
	if t, ok := probeInstant(items[0]); ok {
		out.Start = &t
	}
	last := items[len(items)-1]
	if t, ok := probeField(last, "endTime"); ok {
		out.End = &t
	} else if t, ok := probeInstant(last); ok {
		// No dedicated end field: reuse the start-side chain.
		out.End = &t
	}
	return out
}

// probeInstant locates a usable timestamp on a legacy item: the start-like
// field first (including the nested activity/visit variants), then the
// generic fallbacks.
func probeInstant(item map[string]json.RawMessage) (t time.Time, ok bool) {
	for _, field := range startFallbackFields {
		if t, ok := probeField(item, field); ok {
			return t, true
		}
		if field != "startTime" {
			continue
		}
		for _, nested := range []string{"activity", "visit"} {
			inner, present := item[nested]
			if !present {
				continue
			}
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(inner, &obj); err != nil {
				continue
			}
			if t, ok := probeField(obj, "startTime"); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func probeField(item map[string]json.RawMessage, field string) (time.Time, bool) {
	raw, ok := item[field]
	if !ok {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
