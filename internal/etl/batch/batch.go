// Package batch defines the in-memory value model the transform stages
// operate on: ordered batches of loosely-typed records decoded from provider
// JSON payloads. Stages never mutate a caller's batch; they work on a copy
// returned by Clone.
package batch

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is a single row: column name to cell value. Values are whatever
// encoding/json produced (float64, string, bool, nil, nested maps/slices)
// plus time.Time once a datetime column has been normalized.
type Record map[string]any

// Batch is an ordered sequence of records.
type Batch []Record

// Clone returns a new batch with each record shallow-copied. Stage code
// replaces cell values rather than mutating nested structures, so a shallow
// copy is enough to keep the caller's batch intact.
func (b Batch) Clone() Batch {
	out := make(Batch, len(b))
	for i, rec := range b {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// Columns returns the sorted union of column names across all records.
func (b Batch) Columns() []string {
	seen := make(map[string]struct{})
	for _, rec := range b {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// HasColumn reports whether any record in the batch carries the column.
func (b Batch) HasColumn(col string) bool {
	for _, rec := range b {
		if _, ok := rec[col]; ok {
			return true
		}
	}
	return false
}

// Missing reports whether a cell value counts as absent for imputation
// purposes: nil or a float NaN. Empty strings are present values.
func Missing(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok {
		return math.IsNaN(f)
	}
	return false
}

// Falsy reports whether a value is empty in the loose, provider-payload
// sense used by the quality rules: nil, NaN, empty string, numeric zero,
// false, or an empty map/slice.
func Falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0 || math.IsNaN(t)
	case int:
		return t == 0
	case int64:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// AsFloat coerces a cell to float64. Strings are trimmed and parsed.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return 0, false
		}
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsString coerces a cell to its string form. Integral floats render
// without a trailing ".0" so JSON-decoded numeric ids stay usable as keys.
func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		if math.IsNaN(t) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// timeLayouts are tried in order when parsing datetime-ish strings.
// Layouts without a zone produce UTC times (naive timestamps are assumed
// UTC throughout the pipeline).
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseTime parses a datetime string against the known layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AsTime coerces a cell to a timestamp.
func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return ParseTime(t)
	default:
		return time.Time{}, false
	}
}
