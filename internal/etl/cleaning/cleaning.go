// Package cleaning implements the deduplication and missing-value
// imputation stage of the transform pipeline.
package cleaning

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/etl/backend/internal/etl/batch"
)

// KeepPolicy selects which row of a duplicate group survives.
type KeepPolicy string

const (
	KeepFirst KeepPolicy = "first"
	KeepLast  KeepPolicy = "last"
	// KeepNone drops every row of a duplicate group.
	KeepNone KeepPolicy = "none"
)

// RemoveDuplicates returns the batch with duplicate rows removed and the
// number of rows dropped. Rows are equal when they match on every column in
// subset (all columns when subset is empty). Surviving rows keep their
// input order.
func RemoveDuplicates(b batch.Batch, subset []string, keep KeepPolicy) (batch.Batch, int) {
	if len(b) == 0 {
		return batch.Batch{}, 0
	}

	cols := subset
	if len(cols) == 0 {
		cols = b.Columns()
	}

	keys := make([]string, len(b))
	counts := make(map[string]int, len(b))
	lastIndex := make(map[string]int, len(b))
	for i, rec := range b {
		k := rowKey(rec, cols)
		keys[i] = k
		counts[k]++
		lastIndex[k] = i
	}

	seen := make(map[string]struct{}, len(counts))
	out := make(batch.Batch, 0, len(counts))
	for i, rec := range b {
		k := keys[i]
		switch keep {
		case KeepLast:
			if i != lastIndex[k] {
				continue
			}
		case KeepNone:
			if counts[k] > 1 {
				continue
			}
		default: // KeepFirst
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, rec)
	}

	return out, len(b) - len(out)
}

// rowKey builds a deterministic equality key over the given columns.
// fmt renders maps with sorted keys, so nested payloads compare stably.
func rowKey(rec batch.Record, cols []string) string {
	var sb strings.Builder
	for _, c := range cols {
		v, ok := rec[c]
		if !ok || batch.Missing(v) {
			sb.WriteString("\x00")
		} else {
			fmt.Fprintf(&sb, "%T:%v", v, v)
		}
		sb.WriteString("\x1f")
	}
	return sb.String()
}

// Strategy names for missing-value imputation, per column kind.
const (
	NumericMedian = "median"
	NumericMean   = "mean"
	NumericZero   = "zero"

	CategoricalMode    = "mode"
	CategoricalUnknown = "unknown"

	DatetimeEpoch = "epoch"

	// ForwardFill and BackFill are valid for every column kind.
	ForwardFill = "ffill"
	BackFill    = "bfill"
)

// unknownSentinel fills categorical cells under the "unknown" strategy.
const unknownSentinel = "<unknown>"

// ImputeOptions configures ImputeMissing. Zero values select the defaults
// (numeric median, categorical mode, datetime forward-fill).
type ImputeOptions struct {
	Numeric     string
	Categorical string
	Datetime    string

	// Overrides maps column name to an explicit fill value and always wins
	// over the per-kind strategy.
	Overrides map[string]any

	// Kinds declares column kinds explicitly. Undeclared columns fall back
	// to sampling-based inference.
	Kinds map[string]batch.Kind
}

func (o *ImputeOptions) defaults() {
	if o.Numeric == "" {
		o.Numeric = NumericMedian
	}
	if o.Categorical == "" {
		o.Categorical = CategoricalMode
	}
	if o.Datetime == "" {
		o.Datetime = ForwardFill
	}
}

// ImputeMissing fills null cells per column on a private copy of the batch.
// A computed fill value that is itself unavailable (median of an all-null
// column) degrades to zero.
func ImputeMissing(b batch.Batch, opts ImputeOptions) batch.Batch {
	opts.defaults()
	out := b.Clone()
	if len(out) == 0 {
		return out
	}

	for _, col := range out.Columns() {
		if fill, ok := opts.Overrides[col]; ok {
			fillMissing(out, col, fill)
			continue
		}

		kind, ok := opts.Kinds[col]
		if !ok {
			kind = out.InferKind(col)
		}

		switch kind {
		case batch.KindNumeric:
			imputeNumeric(out, col, opts.Numeric)
		case batch.KindDatetime:
			imputeDatetime(out, col, opts.Datetime)
		default:
			imputeCategorical(out, col, opts.Categorical)
		}
	}
	return out
}

func fillMissing(b batch.Batch, col string, fill any) {
	for _, rec := range b {
		if batch.Missing(rec[col]) {
			rec[col] = fill
		}
	}
}

func imputeNumeric(b batch.Batch, col, strategy string) {
	switch strategy {
	case ForwardFill:
		forwardFill(b, col)
		return
	case BackFill:
		backFill(b, col)
		return
	}

	var fill float64
	switch strategy {
	case NumericMean:
		fill = numericAgg(b, col, mean)
	case NumericZero:
		fill = 0
	default: // median, and any unrecognized strategy
		fill = numericAgg(b, col, median)
	}
	fillMissing(b, col, fill)
}

// numericAgg computes an aggregate over the column's parseable values,
// degrading to zero when there are none.
func numericAgg(b batch.Batch, col string, agg func([]float64) float64) float64 {
	var vals []float64
	for _, rec := range b {
		if v, ok := rec[col]; ok && !batch.Missing(v) {
			if f, ok := batch.AsFloat(v); ok {
				vals = append(vals, f)
			}
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return agg(vals)
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func imputeCategorical(b batch.Batch, col, strategy string) {
	switch strategy {
	case ForwardFill:
		forwardFill(b, col)
	case BackFill:
		backFill(b, col)
	case CategoricalUnknown:
		fillMissing(b, col, unknownSentinel)
	case CategoricalMode:
		fillMissing(b, col, modeOf(b, col))
	default:
		fillMissing(b, col, "")
	}
}

// modeOf returns the most frequent non-missing value rendered as a string,
// breaking ties toward the lexicographically smallest value. An all-null
// column yields the empty string.
func modeOf(b batch.Batch, col string) string {
	counts := make(map[string]int)
	for _, rec := range b {
		v, ok := rec[col]
		if !ok || batch.Missing(v) {
			continue
		}
		if s, ok := batch.AsString(v); ok {
			counts[s]++
		}
	}
	best := ""
	bestCount := 0
	for s, n := range counts {
		if n > bestCount || (n == bestCount && s < best) {
			best = s
			bestCount = n
		}
	}
	return best
}

func imputeDatetime(b batch.Batch, col, strategy string) {
	// Parse date-like cells first so fills carry timestamps, mirroring the
	// coerce-then-fill order of the cleaning contract.
	for _, rec := range b {
		v, ok := rec[col]
		if !ok || batch.Missing(v) {
			continue
		}
		if t, ok := batch.AsTime(v); ok {
			rec[col] = t
		} else {
			rec[col] = nil
		}
	}

	switch strategy {
	case BackFill:
		backFill(b, col)
	case DatetimeEpoch:
		fillMissing(b, col, time.Unix(0, 0).UTC())
	default: // ffill
		forwardFill(b, col)
	}
}

func forwardFill(b batch.Batch, col string) {
	var last any
	haveLast := false
	for _, rec := range b {
		v := rec[col]
		if batch.Missing(v) {
			if haveLast {
				rec[col] = last
			}
			continue
		}
		last = v
		haveLast = true
	}
}

func backFill(b batch.Batch, col string) {
	var next any
	haveNext := false
	for i := len(b) - 1; i >= 0; i-- {
		v := b[i][col]
		if batch.Missing(v) {
			if haveNext {
				b[i][col] = next
			}
			continue
		}
		next = v
		haveNext = true
	}
}
