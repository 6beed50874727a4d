package batch

import (
	"strings"
	"time"
)

// Kind classifies a column for strategy selection during imputation.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
)

// kindSampleSize bounds how many non-missing cells are inspected per column.
const kindSampleSize = 20

// InferKind guesses a column's kind from a sample of its non-missing values.
// Numeric wins when every sampled value is a number. String columns where at
// least a quarter of the sample contains a date/time separator ('-', ':' or
// 'T') are treated as datetime. Everything else is categorical.
//
// This is a best-effort heuristic for unlabeled ingestion paths; callers
// that know their schema should declare kinds explicitly instead.
func (b Batch) InferKind(col string) Kind {
	sample := make([]any, 0, kindSampleSize)
	for _, rec := range b {
		v, ok := rec[col]
		if !ok || Missing(v) {
			continue
		}
		sample = append(sample, v)
		if len(sample) == kindSampleSize {
			break
		}
	}
	if len(sample) == 0 {
		return KindCategorical
	}

	numeric := true
	for _, v := range sample {
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			numeric = false
		}
	}
	if numeric {
		return KindNumeric
	}

	dateLike := 0
	for _, v := range sample {
		switch t := v.(type) {
		case time.Time, *time.Time:
			dateLike++
		case string:
			if strings.ContainsAny(t, "-:T") {
				dateLike++
			}
		}
	}
	threshold := len(sample) / 4
	if threshold < 1 {
		threshold = 1
	}
	if dateLike >= threshold {
		return KindDatetime
	}
	return KindCategorical
}
