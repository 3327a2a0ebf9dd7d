// Package timeline defines the domain model for location-history datasets:
// the parsed shape of an uploaded file, the filtered point samples derived
// from it, and the pure functions that operate on them (date-range
// extraction and dataset merging).
package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// segmentsKey is the top-level JSON field holding the semantic
// location-history sequence in the modern export format.
const segmentsKey = "semanticSegments"

// Dataset is the parsed form of an uploaded location-history file.
// Segments holds the semantic-location-history sequence; every other
// top-level field is preserved verbatim in Fields so a round trip through
// the store reproduces the uploaded document.
type Dataset struct {
	Segments []Segment
	Fields   map[string]json.RawMessage
}

// Segment is one entry of the semantic sequence. The complete original JSON
// object is retained in Raw so operations that move segments between
// datasets (merge, filtering) carry every field, not just the recognized
// ones.
type Segment struct {
	StartTime time.Time
	EndTime   time.Time
	Raw       json.RawMessage
}

// Point is one filtered location sample as produced by an external
// filtering step.
type Point struct {
	Time      time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
}

// DateRange spans a dataset or subset. A nil bound means unknown.
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// IsZero reports whether neither bound is known.
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// FilterSettings are the thresholds a subset was filtered with.
type FilterSettings struct {
	DistanceThreshold    float64 `json:"distanceThreshold"`
	TimeThreshold        float64 `json:"timeThreshold"`
	ProbabilityThreshold float64 `json:"probabilityThreshold"`
}

// UnmarshalJSON splits the semantic segment sequence from the remaining
// top-level fields.
func (d *Dataset) UnmarshalJSON(b []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return err
	}
	if raw, ok := top[segmentsKey]; ok {
		if err := json.Unmarshal(raw, &d.Segments); err != nil {
			return fmt.Errorf("decode %s: %w", segmentsKey, err)
		}
		delete(top, segmentsKey)
	}
	// Normalize preserved fields so decode -> encode -> decode is stable:
	// Marshal compacts embedded raw messages, so compact here too.
	for k, v := range top {
		c, err := compactRaw(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		top[k] = c
	}
	d.Fields = top
	return nil
}

func compactRaw(b []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// MarshalJSON reassembles the document. Map encoding sorts keys, so the
// output is deterministic for a given dataset; the store relies on that for
// stable checksums.
func (d Dataset) MarshalJSON() ([]byte, error) {
	top := make(map[string]json.RawMessage, len(d.Fields)+1)
	for k, v := range d.Fields {
		top[k] = v
	}
	if d.Segments != nil {
		raw, err := json.Marshal(d.Segments)
		if err != nil {
			return nil, err
		}
		top[segmentsKey] = raw
	}
	return json.Marshal(top)
}

// segmentProbe pulls the timestamp fields out of a raw segment object.
type segmentProbe struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// UnmarshalJSON parses the start/end timestamps and keeps the full object.
func (s *Segment) UnmarshalJSON(b []byte) error {
	var probe segmentProbe
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	if probe.StartTime != "" {
		t, err := ParseTimestamp(probe.StartTime)
		if err != nil {
			return fmt.Errorf("segment startTime: %w", err)
		}
		s.StartTime = t
	}
	if probe.EndTime != "" {
		t, err := ParseTimestamp(probe.EndTime)
		if err != nil {
			return fmt.Errorf("segment endTime: %w", err)
		}
		s.EndTime = t
	}
	raw, err := compactRaw(b)
	if err != nil {
		return err
	}
	s.Raw = raw
	return nil
}

// MarshalJSON emits the retained original object when present, otherwise a
// minimal object with the recognized timestamps.
func (s Segment) MarshalJSON() ([]byte, error) {
	if s.Raw != nil {
		return s.Raw, nil
	}
	return json.Marshal(segmentProbe{
		StartTime: s.StartTime.UTC().Format(time.RFC3339),
		EndTime:   s.EndTime.UTC().Format(time.RFC3339),
	})
}

// timestampLayouts are tried in order by ParseTimestamp. Exports are not
// consistent about fractional seconds or offset notation, and some tooling
// drops the seconds field entirely.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp notations seen across export
// generations, including legacy epoch-millisecond strings.
func ParseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	// Legacy records carry epoch milliseconds as a decimal string.
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}
