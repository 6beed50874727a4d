// Package normalize implements the datetime and currency normalization
// stage of the transform pipeline.
package normalize

import (
	"time"

	"github.com/etl/backend/internal/etl/batch"
)

// DatetimeOptions configures NormalizeDatetime.
type DatetimeOptions struct {
	// Columns to parse. Cells that cannot be parsed become nil.
	Columns []string

	// Location to convert parsed timestamps into. Naive timestamps are
	// treated as UTC before conversion. Nil leaves timestamps in UTC.
	Location *time.Location

	// Format, when set, renders each timestamp back to a string using the
	// given reference layout. This makes the column string-typed again; it
	// is a lossy, presentation-oriented option.
	Format string
}

// NormalizeDatetime parses the configured columns to timestamps on a copy
// of the batch. Unparseable cells become nil rather than failing the batch.
func NormalizeDatetime(b batch.Batch, opts DatetimeOptions) batch.Batch {
	out := b.Clone()
	for _, col := range opts.Columns {
		for _, rec := range out {
			v, ok := rec[col]
			if !ok {
				continue
			}
			t, parsed := batch.AsTime(v)
			if !parsed {
				rec[col] = nil
				continue
			}
			if opts.Location != nil {
				t = t.In(opts.Location)
			}
			if opts.Format != "" {
				rec[col] = t.Format(opts.Format)
			} else {
				rec[col] = t
			}
		}
	}
	return out
}
