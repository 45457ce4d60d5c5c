package alert

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Shape identifies which of the recognized upstream payload layouts a raw
// response matched. Anything else degrades to ShapeUnknown and zero
// candidates rather than an error.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeArray
	ShapeAlertsObject
	ShapeDataObject
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeAlertsObject:
		return "alerts-object"
	case ShapeDataObject:
		return "data-object"
	default:
		return "unknown"
	}
}

// DetectShape dispatches over the three recognized payload layouts: a bare
// record array, an object wrapping an "alerts" array, or an object wrapping
// a "data" array. Returns the records of the matched variant.
func DetectShape(raw []byte) (Shape, []map[string]any) {
	var arr []map[string]any
	if err := json.Unmarshal(raw, &arr); err == nil && arr != nil {
		return ShapeArray, arr
	}
	var wrap struct {
		Alerts []map[string]any `json:"alerts"`
		Data   []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrap); err == nil {
		if wrap.Alerts != nil {
			return ShapeAlertsObject, wrap.Alerts
		}
		if wrap.Data != nil {
			return ShapeDataObject, wrap.Data
		}
	}
	return ShapeUnknown, nil
}

// Normalize maps a raw upstream payload to alert candidates. Records without
// a recognizable location are dropped; records without a usable event time
// fall back to now. Output is not deduplicated.
func Normalize(raw []byte, now time.Time) []Candidate {
	_, records := DetectShape(raw)
	out := make([]Candidate, 0, len(records))
	for _, rec := range records {
		loc := getPropStr(rec, "location", "city", "area", "name")
		if loc == "" {
			continue
		}
		at := now
		if t, ok := parseEventTime(rec["time"]); ok {
			at = t
		} else if t, ok := parseEventTime(rec["timestamp"]); ok {
			at = t
		}
		id := getPropStr(rec, "id")
		if id == "" {
			id = SynthesizeID(loc, at)
		}
		out = append(out, Candidate{ID: id, Location: loc, At: at})
	}
	return out
}

// parseEventTime accepts the time encodings seen across upstream feeds:
// RFC3339 and plain datetime strings, epoch seconds or millis as numbers or
// numeric strings, and the mongo-ish {"sec": ...} object.
func parseEventTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "02/01/2006 15:04"}
		for _, layout := range layouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(f)
		}
	case float64:
		return epochToTime(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return epochToTime(f)
		}
	case map[string]any:
		if sec, ok := t["sec"]; ok {
			if f, ok2 := toFloat(sec); ok2 {
				return epochToTime(f)
			}
		}
	}
	return time.Time{}, false
}

func epochToTime(f float64) (time.Time, bool) {
	if f <= 0 {
		return time.Time{}, false
	}
	// Values past the year ~33658 in seconds are epoch millis.
	if f > 1e12 {
		return time.UnixMilli(int64(f)), true
	}
	return time.Unix(int64(f), 0), true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, true
		}
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func getPropStr(p map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := p[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
			if f, ok := toFloat(v); ok && f != 0 {
				return fmt.Sprintf("%.0f", f)
			}
		}
	}
	return ""
}
